// Package lockfile persists the mapping from declared source strings to
// resolved commits and fetched skill manifests. The lock is advisory: a
// missing or corrupt file degrades to an empty lock so a bad checkout can
// never wedge a run.
package lockfile

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

// FileName is the lockfile's name within the base directory. The file is
// pretty-printed JSON intended to be committed to version control.
const FileName = "rulesync.lock"

// LockedSource records what one declared source resolved to on the last run.
type LockedSource struct {
	// ResolvedRef is always a full 40-hex commit id, never a branch or tag
	// name, so reuse is deterministic.
	ResolvedRef string `json:"resolvedRef"`
	// Skills lists the fetched skill names in fetch order.
	Skills []string `json:"skills"`
}

// Lock maps each declared source string to its locked state.
//
// The key is the raw source string as written in the config, not the parsed
// owner/repo: "owner/repo" and "github:owner/repo" are distinct entries even
// though they name the same repository.
type Lock struct {
	Sources map[string]LockedSource `json:"sources"`
}

// NewLock returns an empty lock.
func NewLock() *Lock {
	return &Lock{Sources: map[string]LockedSource{}}
}

// Get returns the entry for sourceKey, if present.
func (l *Lock) Get(sourceKey string) (LockedSource, bool) {
	ls, ok := l.Sources[sourceKey]
	return ls, ok
}

// Set returns a new lock with the entry for sourceKey replaced. The receiver
// is left untouched.
func (l *Lock) Set(sourceKey string, ls LockedSource) *Lock {
	out := NewLock()
	for k, v := range l.Sources {
		out.Sources[k] = v
	}
	out.Sources[sourceKey] = ls
	return out
}

// Prune returns a new lock containing only entries whose key appears in
// keep. Stale entries from sources no longer declared do not survive a run.
func (l *Lock) Prune(keep []string) *Lock {
	out := NewLock()
	for k, v := range l.Sources {
		if slices.Contains(keep, k) {
			out.Sources[k] = v
		}
	}
	return out
}

// SortedKeys returns the source keys in lexical order, for stable display.
func (l *Lock) SortedKeys() []string {
	keys := make([]string, 0, len(l.Sources))
	for k := range l.Sources {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Encode serializes the lock with stable, human-diffable formatting:
// 2-space indent and a trailing newline.
func Encode(l *Lock) ([]byte, error) {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Read parses the lockfile under baseDir. Missing file, unreadable file, or
// malformed JSON all return an empty lock; the latter two log a warning.
// Read never fails.
func Read(fs afero.Fs, baseDir string) *Lock {
	path := filepath.Join(baseDir, FileName)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read lockfile, starting from an empty lock", "path", path, "error", err)
		}
		return NewLock()
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		slog.Warn("lockfile is corrupt, starting from an empty lock", "path", path, "error", err)
		return NewLock()
	}
	if lock.Sources == nil {
		lock.Sources = map[string]LockedSource{}
	}
	return &lock
}

// Write serializes lock to the lockfile under baseDir, via a temporary file
// and rename so readers never observe a half-written lock.
func Write(fs afero.Fs, baseDir string, lock *Lock) error {
	data, err := Encode(lock)
	if err != nil {
		return err
	}

	path := filepath.Join(baseDir, FileName)
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}
