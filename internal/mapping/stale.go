package mapping

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// errNewer stops a staleness walk at the first entry newer than the cache.
var errNewer = errors.New("newer entry found")

// IsStale reports whether the table no longer reflects the tree under
// roots: it was never generated, the roots changed, or a file or
// directory below a root (excluded subtrees skipped) was modified after
// the last discovery. The cache file's own directory is ignored.
func (s *Store) IsStale(repoRoot string, roots []RootSpec) (bool, error) {
	if s.generatedAt.IsZero() {
		return true, nil
	}
	if !SameRoots(s.roots, roots) {
		return true, nil
	}

	cacheDir, _ := filepath.Abs(filepath.Dir(s.path))
	for _, root := range roots {
		newer, err := newerThan(filepath.Join(repoRoot, filepath.FromSlash(root.Path)), root, s.generatedAt, cacheDir)
		if err != nil {
			return false, err
		}
		if newer {
			return true, nil
		}
	}
	return false, nil
}

func newerThan(dir string, root RootSpec, since time.Time, skipDir string) (bool, error) {
	err := walkRoot(dir, root, skipDir, func(info fs.FileInfo) error {
		if info.ModTime().After(since) {
			return errNewer
		}
		return nil
	})
	if errors.Is(err, errNewer) {
		return true, nil
	}
	return false, err
}

// walkRoot visits the root directory and everything below it that
// discovery would see. Unreadable entries are skipped; a missing root is
// not an error.
func walkRoot(dir string, root RootSpec, skipDir string, visit func(fs.FileInfo) error) error {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && p != dir {
			if root.Excludes(d.Name()) {
				return filepath.SkipDir
			}
			if skipDir != "" {
				if abs, _ := filepath.Abs(p); abs == skipDir {
					return filepath.SkipDir
				}
			}
			if root.MaxDepth > 0 && depth(dir, p) > root.MaxDepth {
				return filepath.SkipDir
			}
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		return visit(info)
	})
}

func depth(base, p string) int {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
