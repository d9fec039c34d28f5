package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// collectFiles walks every source root and gathers the Go files to
// parse. Overlapping roots are deduplicated by absolute path.
func (s *scanJob) collectFiles() ([]fileEntry, error) {
	var files []fileEntry

	seen := map[string]bool{}

	for _, root := range s.roots {
		rootDir := filepath.Join(s.opts.Dir, filepath.FromSlash(root))

		walkErr := filepath.WalkDir(rootDir, func(p string, entry os.DirEntry, err error) error {
			entryFile, skipErr := s.visit(rootDir, p, entry, err)
			if skipErr != nil {
				return skipErr
			}

			if entryFile == nil || seen[entryFile.abs] {
				return nil
			}

			seen[entryFile.abs] = true
			files = append(files, *entryFile)

			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("walk %s: %w", rootDir, walkErr)
		}
	}

	return files, nil
}

// visit applies the skip rules to one walk entry and returns the file
// to collect, if any. The returned error is filepath.SkipDir for
// pruned directories and fatal otherwise.
func (s *scanJob) visit(rootDir, p string, entry os.DirEntry, walkErr error) (*fileEntry, error) {
	if walkErr != nil {
		// Unreadable or vanished entries are tolerated, the rest of the
		// tree still gets scanned.
		if errors.Is(walkErr, fs.ErrPermission) || errors.Is(walkErr, fs.ErrNotExist) {
			if entry != nil && entry.IsDir() {
				return nil, filepath.SkipDir
			}

			return nil, nil
		}

		return nil, walkErr
	}

	if entry == nil {
		return nil, nil
	}

	rel := relSlash(rootDir, p)

	if entry.IsDir() {
		if rel == "" {
			return nil, nil
		}

		if skipDirName(entry.Name()) || s.matchesExclude(rel) {
			return nil, filepath.SkipDir
		}

		return nil, nil
	}

	if !entry.Type().IsRegular() {
		return nil, nil
	}

	name := entry.Name()
	if !strings.HasSuffix(name, ".go") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return nil, nil
	}

	test := strings.HasSuffix(name, "_test.go")
	if test && s.opts.SkipTestFiles {
		return nil, nil
	}

	if s.matchesExclude(rel) {
		return nil, nil
	}

	info, statErr := entry.Info()
	if statErr != nil {
		if errors.Is(statErr, fs.ErrPermission) || errors.Is(statErr, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("stat %s: %w", p, statErr)
	}

	size := info.Size()
	if s.opts.MaxFileSize > 0 && size >= 0 && uint64(size) > s.opts.MaxFileSize {
		s.stats.SkippedLarge++
		s.logger.Debug("skipping large file", "path", p, "size", size)

		return nil, nil
	}

	return &fileEntry{
		abs:     p,
		relPath: relSlash(s.opts.Dir, p),
		pkg:     dirOf(rel),
		size:    size,
		mtime:   info.ModTime().UnixNano(),
		test:    test,
	}, nil
}

// dirOf returns the slash-form directory of rel, "" for top-level
// entries.
func dirOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}

	return dir
}

// skipDirName reports whether a directory is never scanned: VCS and
// vendor trees, testdata, and hidden or underscore-prefixed names,
// matching what the Go toolchain ignores.
func skipDirName(name string) bool {
	if name == "vendor" || name == "testdata" {
		return true
	}

	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// matchesExclude reports whether the root-relative path matches any of
// the configured exclude patterns.
func (s *scanJob) matchesExclude(rel string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, matchErr := doublestar.Match(pattern, rel); matchErr == nil && ok {
			return true
		}
	}

	return false
}

// relSlash returns p relative to base in slash form, "" when p is base
// itself.
func relSlash(base, p string) string {
	rel, relErr := filepath.Rel(base, p)
	if relErr != nil || rel == "." {
		return ""
	}

	return filepath.ToSlash(rel)
}
