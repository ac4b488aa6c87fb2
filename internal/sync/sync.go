// Package sync implements the remote source synchronization engine: it
// resolves declared or ad-hoc source references, fetches skill directories
// over the hosting provider's REST content API, writes them into the working
// tree, and maintains the lockfile that makes re-fetches reproducible.
package sync

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/dyoshikawa/rulesync-sub010/internal/fetcher"
)

// Well-known directories under the project base directory.
const (
	// LocalSkillsDir holds user-authored skills. Anything here always wins
	// over a same-named remote skill.
	LocalSkillsDir = ".rulesync/skills"
	// RemoteSkillsDir is the curated output area. It is populated
	// exclusively by the sync engine and wiped and rebuilt on every
	// declarative run.
	RemoteSkillsDir = ".rulesync/remote/skills"
	// DefaultSkillsPath is the repository subtree listed when a source
	// declares no explicit path.
	DefaultSkillsPath = "skills"
)

// DefaultMaxFileSize caps individual remote files. Larger entries are
// excluded before fetch.
const DefaultMaxFileSize int64 = 1 << 20

// Orchestrator sequences parsing, resolution, fetching, conflict handling,
// and lock maintenance. Construct one per run; it holds no global state.
type Orchestrator struct {
	provider    Provider
	fs          afero.Fs
	log         *slog.Logger
	maxFileSize int64
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMaxFileSize overrides the per-file size cap.
func WithMaxFileSize(n int64) Option {
	return func(o *Orchestrator) { o.maxFileSize = n }
}

// WithConcurrency sizes the per-source request limiter.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// New creates an Orchestrator backed by the given provider client and
// filesystem.
func New(provider Provider, fs afero.Fs, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:    provider,
		fs:          fs,
		log:         slog.Default(),
		maxFileSize: DefaultMaxFileSize,
		concurrency: fetcher.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
