// Package fsutil provides path-safe filesystem helpers. All writes performed
// by the sync engine go through SafeJoin so remote-controlled names can never
// escape their intended root.
package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PathError reports a name or relative path that failed the traversal check.
// The offending item is skipped; it is never sanitized into something else.
type PathError struct {
	Root string
	Name string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("unsafe path %q: escapes root %q", e.Name, e.Root)
}

// ValidateName checks a single path component (a skill or directory name).
// Separators and dot-dot segments are rejected outright.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return &PathError{Name: name}
	}
	if strings.ContainsAny(name, `/\`) {
		return &PathError{Name: name}
	}
	return nil
}

// SafeJoin joins rel onto root and verifies the result stays strictly inside
// root. rel may contain multiple segments but no traversal.
func SafeJoin(root, rel string) (string, error) {
	if rel == "" {
		return "", &PathError{Root: root, Name: rel}
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", &PathError{Root: root, Name: rel}
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return "", &PathError{Root: root, Name: rel}
		}
	}

	joined := filepath.Join(root, filepath.FromSlash(rel))
	cleanRoot := filepath.Clean(root)
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return "", &PathError{Root: root, Name: rel}
	}
	return joined, nil
}

// WriteFile writes data to the path rel under root, creating parent
// directories as needed. The path is validated with SafeJoin first.
func WriteFile(fs afero.Fs, root, rel string, data []byte) (string, error) {
	target, err := SafeJoin(root, rel)
	if err != nil {
		return "", err
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", target, err)
	}
	if err := afero.WriteFile(fs, target, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

// Exists reports whether the path exists on fs.
func Exists(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && ok
}

// ListDirNames returns the names of the directories directly under dir, in
// lexical order. A missing dir yields an empty list.
func ListDirNames(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		if ok, _ := afero.DirExists(fs, dir); !ok {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}
