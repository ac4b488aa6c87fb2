package sync

import (
	"bytes"
	"context"
	"fmt"
	pathpkg "path"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/dyoshikawa/rulesync-sub010/internal/config"
	"github.com/dyoshikawa/rulesync-sub010/internal/fetcher"
	"github.com/dyoshikawa/rulesync-sub010/internal/fsutil"
	"github.com/dyoshikawa/rulesync-sub010/internal/github"
	"github.com/dyoshikawa/rulesync-sub010/internal/lockfile"
	"github.com/dyoshikawa/rulesync-sub010/internal/source"
)

// Options controls a declarative run.
type Options struct {
	// UpdateSources forces re-resolution of every ref, ignoring the lock.
	UpdateSources bool
	// SkipSources skips remote synchronization entirely.
	SkipSources bool
}

// Result summarizes a declarative run.
type Result struct {
	FetchedSkillCount int
	SourcesProcessed  int
}

// ResolveAndFetchSources runs the declarative, lockfile-backed flow over the
// ordered source declarations. Sources are processed sequentially in list
// order; a failure in one source is logged and contributes nothing, and the
// remaining sources still run. The only hard failure mode is the lockfile
// write itself.
func (o *Orchestrator) ResolveAndFetchSources(ctx context.Context, sources []config.SourceEntry, baseDir string, opts Options) (*Result, error) {
	if len(sources) == 0 || opts.SkipSources {
		return &Result{}, nil
	}

	prevLock := lockfile.Read(o.fs, baseDir)
	workLock := prevLock
	if opts.UpdateSources {
		workLock = lockfile.NewLock()
	}

	localNames, err := fsutil.ListDirNames(o.fs, filepath.Join(baseDir, LocalSkillsDir))
	if err != nil {
		return nil, fmt.Errorf("list local skills: %w", err)
	}
	resolver := newSkillResolver(localNames)

	// Full wipe then refetch, so stale curated skills never linger.
	curatedDir := filepath.Join(baseDir, RemoteSkillsDir)
	if err := o.fs.RemoveAll(curatedDir); err != nil {
		return nil, fmt.Errorf("clear curated skills directory: %w", err)
	}
	if err := o.fs.MkdirAll(curatedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create curated skills directory: %w", err)
	}

	result := &Result{}
	for _, entry := range sources {
		fetched, lock, err := o.syncSource(ctx, entry, curatedDir, resolver, workLock, opts.UpdateSources)
		if err != nil {
			if github.IsAuth(err) {
				o.log.Error("authentication failed for source; set GITHUB_TOKEN or GH_TOKEN, or run 'rulesync config set github_token <token>'",
					"source", entry.Source, "error", err)
			} else {
				o.log.Error("skipping source after error", "source", entry.Source, "error", err)
			}
			continue
		}
		workLock = lock
		resolver.markFetched(entry.Source, fetched)
		result.FetchedSkillCount += len(fetched)
		result.SourcesProcessed++
	}

	// Lock entries for sources no longer declared do not survive the run.
	keys := make([]string, 0, len(sources))
	for _, entry := range sources {
		keys = append(keys, entry.Source)
	}
	workLock = workLock.Prune(keys)

	if err := o.persistLockIfChanged(baseDir, prevLock, workLock); err != nil {
		return nil, err
	}
	return result, nil
}

// syncSource processes one declared source: resolve its ref, list its skills
// directory, apply precedence and safety policy, and fetch the surviving
// skills. It returns the fetched skill names and the updated lock.
func (o *Orchestrator) syncSource(ctx context.Context, entry config.SourceEntry, curatedDir string, resolver *skillResolver, lock *lockfile.Lock, update bool) ([]string, *lockfile.Lock, error) {
	spec, err := source.Parse(entry.Source)
	if err != nil {
		return nil, nil, err
	}
	if spec.Provider != source.ProviderGitHub {
		return nil, nil, github.ErrGitLabUnsupported
	}

	resolvedRef, err := o.resolveRef(ctx, spec, entry.Source, lock, update)
	if err != nil {
		return nil, nil, err
	}

	skillsPath := spec.Path
	if skillsPath == "" {
		skillsPath = DefaultSkillsPath
	}

	entries, err := o.provider.ListDirectory(ctx, spec.Owner, spec.Repo, skillsPath, resolvedRef)
	if err != nil {
		if github.IsNotFound(err) {
			o.log.Warn("source has no skills directory", "source", entry.Source, "path", skillsPath)
			return nil, lock.Set(entry.Source, lockfile.LockedSource{ResolvedRef: resolvedRef, Skills: []string{}}), nil
		}
		return nil, nil, err
	}

	lim := fetcher.NewLimiter(o.concurrency)

	var fetched []string
	for _, remote := range entries {
		if remote.Type != github.EntryDir {
			o.log.Debug("ignoring non-directory entry in skills path", "entry", remote.Path, "type", remote.Type)
			continue
		}
		name := remote.Name
		if !entry.Wants(name) {
			o.log.Debug("skill not requested by source declaration", "source", entry.Source, "skill", name)
			continue
		}
		if err := fsutil.ValidateName(name); err != nil {
			o.log.Warn("rejecting skill with unsafe name", "source", entry.Source, "skill", name, "error", err)
			continue
		}

		switch d, earlier := resolver.decide(name); d {
		case decideSkipLocal:
			o.log.Debug("local skill takes precedence over remote candidate", "skill", name, "source", entry.Source)
			continue
		case decideSkipEarlierSource:
			o.log.Warn("skill already provided by an earlier source, skipping", "skill", name, "source", entry.Source, "provided_by", earlier)
			continue
		}

		ok, err := o.fetchSkill(ctx, lim, spec, resolvedRef, pathpkg.Join(skillsPath, name), name, curatedDir)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			fetched = append(fetched, name)
		}
	}

	if fetched == nil {
		fetched = []string{}
	}
	lock = lock.Set(entry.Source, lockfile.LockedSource{ResolvedRef: resolvedRef, Skills: fetched})
	return fetched, lock, nil
}

// resolveRef returns the commit SHA for the source's ref, reusing the locked
// SHA verbatim when present and not forcing an update. The lock only ever
// stores full commit ids, so reuse performs zero provider calls.
func (o *Orchestrator) resolveRef(ctx context.Context, spec *source.Spec, sourceKey string, lock *lockfile.Lock, update bool) (string, error) {
	if !update {
		if ls, ok := lock.Get(sourceKey); ok && ls.ResolvedRef != "" {
			return ls.ResolvedRef, nil
		}
	}

	ref := spec.Ref
	if ref == "" {
		branch, err := o.provider.GetDefaultBranch(ctx, spec.Owner, spec.Repo)
		if err != nil {
			return "", err
		}
		ref = branch
	}
	return o.provider.ResolveRef(ctx, spec.Owner, spec.Repo, ref)
}

// fetchSkill walks one remote skill directory and writes its files under
// curatedDir/name. It returns false (with no error) when every file was
// excluded by policy, in which case the skill is not considered fetched.
func (o *Orchestrator) fetchSkill(ctx context.Context, lim *fetcher.Limiter, spec *source.Spec, resolvedRef, remotePath, name, curatedDir string) (bool, error) {
	files, err := fetcher.WalkTree(ctx, o.provider, lim, spec.Owner, spec.Repo, remotePath, resolvedRef)
	if err != nil {
		return false, fmt.Errorf("walk skill %s: %w", name, err)
	}

	destDir := filepath.Join(curatedDir, name)
	surviving := o.filterFiles(files, destDir)
	if len(surviving) == 0 {
		if len(files) > 0 {
			o.log.Warn("no files of skill survived policy checks, skipping skill", "skill", name)
		}
		return false, nil
	}

	if err := o.downloadFiles(ctx, lim, surviving, destDir, spec.Owner, spec.Repo, resolvedRef); err != nil {
		return false, fmt.Errorf("fetch skill %s: %w", name, err)
	}
	return true, nil
}

// filterFiles applies the shared safety checks: the size cap and the
// traversal check against the destination root. Violations skip the single
// offending file with a warning.
func (o *Orchestrator) filterFiles(files []fetcher.RemoteFile, destDir string) []fetcher.RemoteFile {
	var out []fetcher.RemoteFile
	for _, f := range files {
		if f.Entry.Size > o.maxFileSize {
			o.log.Warn("file exceeds size limit, excluding",
				"file", f.Entry.Path, "size", f.Entry.Size, "limit", o.maxFileSize)
			continue
		}
		if _, err := fsutil.SafeJoin(destDir, f.RelPath); err != nil {
			o.log.Warn("rejecting file with unsafe path", "file", f.Entry.Path, "error", err)
			continue
		}
		out = append(out, f)
	}
	return out
}

// download retrieves one file's bytes, preferring the raw download URL and
// falling back to the contents endpoint when the listing carries none.
func (o *Orchestrator) download(ctx context.Context, owner, repo, ref string, e github.RemoteEntry) ([]byte, error) {
	if e.DownloadURL == "" {
		return o.provider.GetFileContent(ctx, owner, repo, e.Path, ref)
	}
	return o.provider.DownloadRawContent(ctx, e.DownloadURL)
}

// downloadFiles retrieves file contents concurrently under lim and writes
// them below destDir. Writes are not transactional: a failure may leave a
// partially-written directory behind, which the next run's wipe clears.
func (o *Orchestrator) downloadFiles(ctx context.Context, lim *fetcher.Limiter, files []fetcher.RemoteFile, destDir, owner, repo, ref string) error {
	var mu sync.Mutex
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, f := range files {
		f := f
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
			_, err = fsutil.WriteFile(o.fs, destDir, f.RelPath, data)
			return err
		})
	}
	return p.Wait()
}

// persistLockIfChanged writes the lock only when its serialized form differs
// from what was read, keeping no-op runs byte-identical.
func (o *Orchestrator) persistLockIfChanged(baseDir string, prev, next *lockfile.Lock) error {
	prevData, err := lockfile.Encode(prev)
	if err != nil {
		return fmt.Errorf("encode previous lock: %w", err)
	}
	nextData, err := lockfile.Encode(next)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	if bytes.Equal(prevData, nextData) {
		return nil
	}
	if err := lockfile.Write(o.fs, baseDir, next); err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}
