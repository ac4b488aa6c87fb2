package fetcher

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyoshikawa/rulesync-sub010/internal/github"
)

// fakeLister serves a canned directory tree and tracks concurrency.
type fakeLister struct {
	dirs     map[string][]github.RemoteEntry
	failOn   string
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (f *fakeLister) ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]github.RemoteEntry, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if path == f.failOn {
		return nil, errors.New("listing failed")
	}
	entries, ok := f.dirs[path]
	if !ok {
		return nil, errors.New("no such directory")
	}
	return entries, nil
}

func file(path string, size int64) github.RemoteEntry {
	return github.RemoteEntry{Name: basename(path), Path: path, Type: github.EntryFile, Size: size, DownloadURL: "https://raw.test/" + path}
}

func dir(path string) github.RemoteEntry {
	return github.RemoteEntry{Name: basename(path), Path: path, Type: github.EntryDir}
}

func basename(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

func TestWalkTreeFlattensRecursively(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]github.RemoteEntry{
		"skills/alpha": {
			file("skills/alpha/SKILL.md", 10),
			dir("skills/alpha/scripts"),
		},
		"skills/alpha/scripts": {
			file("skills/alpha/scripts/run.sh", 20),
			dir("skills/alpha/scripts/lib"),
		},
		"skills/alpha/scripts/lib": {
			file("skills/alpha/scripts/lib/util.sh", 30),
		},
	}}

	files, err := WalkTree(context.Background(), lister, NewLimiter(4), "acme", "skills", "skills/alpha", "main")
	if err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}

	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
	}
	sort.Strings(got)
	want := []string{"SKILL.md", "scripts/lib/util.sh", "scripts/run.sh"}
	if len(got) != len(want) {
		t.Fatalf("WalkTree() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("WalkTree()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalkTreeDeepNestingWithFullLimiter(t *testing.T) {
	// A chain of nested directories walked under a limiter of one. Each
	// level must release the listing slot before descending or the walk
	// would never reach the leaf.
	dirs := map[string][]github.RemoteEntry{}
	parent := "root"
	for i := 0; i < 8; i++ {
		child := parent + "/d"
		dirs[parent] = []github.RemoteEntry{dir(child)}
		parent = child
	}
	dirs[parent] = []github.RemoteEntry{file(parent+"/leaf.md", 1)}
	lister := &fakeLister{dirs: dirs}

	files, err := WalkTree(context.Background(), lister, NewLimiter(1), "acme", "skills", "root", "main")
	if err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "d/d/d/d/d/d/d/d/leaf.md" {
		t.Errorf("WalkTree() = %+v, want the single deeply nested leaf", files)
	}
}

func TestWalkTreeRejectsFilesOutsideRoot(t *testing.T) {
	// A hostile listing that reports a file under a sibling directory.
	lister := &fakeLister{dirs: map[string][]github.RemoteEntry{
		"skills/alpha": {
			file("skills/alpha/SKILL.md", 10),
			file("skills/zeta/escape.md", 5),
		},
	}}

	files, err := WalkTree(context.Background(), lister, NewLimiter(2), "acme", "skills", "skills/alpha", "main")
	if err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "SKILL.md" {
		t.Errorf("WalkTree() = %+v, want only SKILL.md", files)
	}
}

func TestWalkTreeSkipsSymlinksAndSubmodules(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]github.RemoteEntry{
		"skills/alpha": {
			file("skills/alpha/SKILL.md", 10),
			{Name: "link", Path: "skills/alpha/link", Type: github.EntrySymlink},
			{Name: "vendored", Path: "skills/alpha/vendored", Type: github.EntrySubmodule},
		},
	}}

	files, err := WalkTree(context.Background(), lister, NewLimiter(2), "acme", "skills", "skills/alpha", "main")
	if err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "SKILL.md" {
		t.Errorf("WalkTree() = %+v, want only SKILL.md", files)
	}
}

func TestWalkTreeFailureAbortsWholeWalk(t *testing.T) {
	lister := &fakeLister{
		dirs: map[string][]github.RemoteEntry{
			"skills/alpha": {
				file("skills/alpha/SKILL.md", 10),
				dir("skills/alpha/good"),
				dir("skills/alpha/bad"),
			},
			"skills/alpha/good": {file("skills/alpha/good/a.md", 1)},
		},
		failOn: "skills/alpha/bad",
	}

	files, err := WalkTree(context.Background(), lister, NewLimiter(4), "acme", "skills", "skills/alpha", "main")
	if err == nil {
		t.Fatal("WalkTree() succeeded, want error from failed subtree")
	}
	if files != nil {
		t.Errorf("WalkTree() returned partial files %v alongside error", files)
	}
}

func TestWalkTreeRespectsLimiter(t *testing.T) {
	// A wide tree: one root with many subdirectories, each listing slow
	// enough that unbounded walking would overlap far beyond the limit.
	dirs := map[string][]github.RemoteEntry{"root": nil}
	for _, sub := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		path := "root/" + sub
		dirs["root"] = append(dirs["root"], dir(path))
		dirs[path] = []github.RemoteEntry{file(path+"/x.md", 1)}
	}
	lister := &fakeLister{dirs: dirs, delay: 10 * time.Millisecond}

	const bound = 3
	if _, err := WalkTree(context.Background(), lister, NewLimiter(bound), "acme", "skills", "root", "main"); err != nil {
		t.Fatalf("WalkTree() error = %v", err)
	}
	if seen := lister.maxSeen.Load(); seen > bound {
		t.Errorf("observed %d concurrent listings, bound is %d", seen, bound)
	}
}

func TestLimiterAcquireRespectsContext(t *testing.T) {
	lim := NewLimiter(1)
	if err := lim.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := lim.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() with full limiter = %v, want deadline exceeded", err)
	}
}
