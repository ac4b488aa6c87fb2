package fetcher

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/dyoshikawa/rulesync-sub010/internal/github"
)

// Lister is the slice of the provider client the tree walker needs.
type Lister interface {
	ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]github.RemoteEntry, error)
}

// RemoteFile is one file discovered under the walked root, with its path
// relative to that root.
type RemoteFile struct {
	RelPath string
	Entry   github.RemoteEntry
}

// WalkTree recursively lists the directory at root and returns the flat set
// of all file entries beneath it. Each discovered subdirectory is walked in
// its own goroutine; lim bounds how many listing calls run at once. The
// limiter is released before descending, so a full limiter never deadlocks
// the recursion.
//
// A failure while listing any subtree fails the whole walk: silently
// returning a partial, apparently-complete list would corrupt the manifest
// recorded in the lockfile. Symlink and submodule entries are skipped with a
// debug log. A listed file whose path is not beneath root is rejected with a
// warning rather than renamed.
func WalkTree(ctx context.Context, lister Lister, lim *Limiter, owner, repo, root, ref string) ([]RemoteFile, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		files   []RemoteFile
		walkErr error
	)

	fail := func(err error) {
		mu.Lock()
		if walkErr == nil {
			walkErr = err
		}
		mu.Unlock()
		cancel()
	}

	var walk func(dir string)
	walk = func(dir string) {
		defer wg.Done()
		if err := lim.Acquire(ctx); err != nil {
			fail(err)
			return
		}
		entries, err := lister.ListDirectory(ctx, owner, repo, dir, ref)
		lim.Release()
		if err != nil {
			fail(err)
			return
		}

		for _, e := range entries {
			switch e.Type {
			case github.EntryFile:
				rel, ok := relPath(root, e.Path)
				if !ok {
					slog.Warn("rejecting listed file outside the walked root", "file", e.Path, "root", root)
					continue
				}
				mu.Lock()
				files = append(files, RemoteFile{RelPath: rel, Entry: e})
				mu.Unlock()
			case github.EntryDir:
				wg.Add(1)
				go walk(e.Path)
			default:
				slog.Debug("skipping unsupported entry", "path", e.Path, "type", e.Type)
			}
		}
	}
	wg.Add(1)
	go walk(root)
	wg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

// relPath returns full relative to root. It reports false when full is not
// beneath root.
func relPath(root, full string) (string, bool) {
	root = strings.Trim(root, "/")
	full = strings.Trim(full, "/")
	if root == "" {
		return full, true
	}
	if strings.HasPrefix(full, root+"/") {
		return strings.TrimPrefix(full, root+"/"), true
	}
	return "", false
}
