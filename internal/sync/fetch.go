package sync

import (
	"context"
	"fmt"
	pathpkg "path"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/dyoshikawa/rulesync-sub010/internal/fetcher"
	"github.com/dyoshikawa/rulesync-sub010/internal/fsutil"
	"github.com/dyoshikawa/rulesync-sub010/internal/github"
	"github.com/dyoshikawa/rulesync-sub010/internal/source"
)

// FileStatus is the outcome recorded for one output file of an ad-hoc fetch.
type FileStatus string

const (
	StatusCreated     FileStatus = "created"
	StatusOverwritten FileStatus = "overwritten"
	StatusSkipped     FileStatus = "skipped"
)

// FileResult is the per-file record of an ad-hoc fetch.
type FileResult struct {
	RelativePath string
	Status       FileStatus
}

// Summary aggregates an ad-hoc fetch.
type Summary struct {
	Source      string
	Ref         string
	Files       []FileResult
	Created     int
	Overwritten int
	Skipped     int
}

// FetchOptions controls the ad-hoc fetch flow.
type FetchOptions struct {
	// Ref overrides the ref embedded in the source string.
	Ref string
	// Path overrides the subtree path embedded in the source string. Empty
	// means the repository root (or the source's own path).
	Path string
	// Output is the local directory files are written under.
	Output string
	// Strategy decides what happens when an output file already exists.
	// Defaults to StrategyOverwrite.
	Strategy Strategy
	// Features optionally restricts the fetch to named subdirectories of
	// the source path (e.g. "rules", "commands", "skills"). A feature
	// directory missing upstream is warned about and skipped.
	Features []string
}

// Fetch runs the ad-hoc, lockless flow for a single source. Unlike the
// declarative flow, errors here are hard failures that propagate to the
// caller.
func (o *Orchestrator) Fetch(ctx context.Context, rawSource string, opts FetchOptions) (*Summary, error) {
	spec, err := source.Parse(rawSource)
	if err != nil {
		return nil, err
	}
	if spec.Provider != source.ProviderGitHub {
		return nil, github.ErrGitLabUnsupported
	}

	if opts.Strategy == "" {
		opts.Strategy = StrategyOverwrite
	}
	if !opts.Strategy.Valid() {
		return nil, fmt.Errorf("unknown conflict strategy %q (expected %q or %q)", opts.Strategy, StrategyOverwrite, StrategySkip)
	}
	output := opts.Output
	if output == "" {
		output = ".rulesync"
	}

	ref := spec.Ref
	if opts.Ref != "" {
		ref = opts.Ref
	}
	if ref == "" {
		branch, err := o.provider.GetDefaultBranch(ctx, spec.Owner, spec.Repo)
		if err != nil {
			return nil, err
		}
		ref = branch
	}
	resolvedRef, err := o.provider.ResolveRef(ctx, spec.Owner, spec.Repo, ref)
	if err != nil {
		return nil, err
	}

	root := spec.Path
	if opts.Path != "" {
		root = opts.Path
	}

	lim := fetcher.NewLimiter(o.concurrency)
	summary := &Summary{Source: rawSource, Ref: resolvedRef}

	if len(opts.Features) == 0 {
		files, err := fetcher.WalkTree(ctx, o.provider, lim, spec.Owner, spec.Repo, root, resolvedRef)
		if err != nil {
			return nil, err
		}
		if err := o.writeFetched(ctx, lim, files, output, "", opts.Strategy, summary, spec.Owner, spec.Repo, resolvedRef); err != nil {
			return nil, err
		}
	} else {
		for _, feature := range opts.Features {
			if err := fsutil.ValidateName(feature); err != nil {
				return nil, fmt.Errorf("invalid feature name %q: %w", feature, err)
			}
			files, err := fetcher.WalkTree(ctx, o.provider, lim, spec.Owner, spec.Repo, pathpkg.Join(root, feature), resolvedRef)
			if err != nil {
				if github.IsNotFound(err) {
					o.log.Warn("feature directory not found upstream, skipping", "feature", feature, "source", rawSource)
					continue
				}
				return nil, err
			}
			if err := o.writeFetched(ctx, lim, files, output, feature, opts.Strategy, summary, spec.Owner, spec.Repo, resolvedRef); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].RelativePath < summary.Files[j].RelativePath
	})
	return summary, nil
}

// writeFetched applies the shared safety checks and the per-file strategy,
// downloads surviving files under lim, and records the outcomes in summary.
// subdir, when non-empty, prefixes each file's output path.
func (o *Orchestrator) writeFetched(ctx context.Context, lim *fetcher.Limiter, files []fetcher.RemoteFile, output, subdir string, strategy Strategy, summary *Summary, owner, repo, ref string) error {
	var mu sync.Mutex
	p := pool.New().WithContext(ctx).WithCancelOnError()

	for _, f := range files {
		f := f
		rel := f.RelPath
		if subdir != "" {
			rel = pathpkg.Join(subdir, f.RelPath)
		}

		if f.Entry.Size > o.maxFileSize {
			o.log.Warn("file exceeds size limit, excluding",
				"file", f.Entry.Path, "size", f.Entry.Size, "limit", o.maxFileSize)
			continue
		}
		target, err := fsutil.SafeJoin(output, rel)
		if err != nil {
			o.log.Warn("rejecting file with unsafe path", "file", f.Entry.Path, "error", err)
			continue
		}

		exists := fsutil.Exists(o.fs, target)
		if exists && strategy == StrategySkip {
			mu.Lock()
			summary.Files = append(summary.Files, FileResult{RelativePath: rel, Status: StatusSkipped})
			summary.Skipped++
			mu.Unlock()
			continue
		}

		status := StatusCreated
		if exists {
			status = StatusOverwritten
		}
		p.Go(func(ctx context.Context) error {
			if err := lim.Acquire(ctx); err != nil {
				return err
			}
			data, err := o.download(ctx, owner, repo, ref, f.Entry)
			lim.Release()
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if _, err := fsutil.WriteFile(o.fs, output, rel, data); err != nil {
				return err
			}
			summary.Files = append(summary.Files, FileResult{RelativePath: rel, Status: status})
			if status == StatusCreated {
				summary.Created++
			} else {
				summary.Overwritten++
			}
			return nil
		})
	}

	return p.Wait()
}
