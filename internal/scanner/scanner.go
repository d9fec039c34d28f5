// Package scanner walks the configured source roots and extracts the
// observed import edges from Go files. Files are discovered
// sequentially, then parsed in parallel using a worker pool; only the
// import clause of each file is read.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/mod/modfile"
)

// ErrNoModulePath is returned when go.mod lacks a module declaration.
var ErrNoModulePath = errors.New("go.mod has no module declaration")

// ImportKind classifies an observed import.
type ImportKind uint8

// Import kinds.
const (
	ImportInternal ImportKind = iota
	ImportExternal
	ImportStdlib
)

// Import is one observed import with its location.
type Import struct {
	// Path is the import path as written in the file.
	Path string
	// Rel is, for internal imports, the package path relative to the
	// source-root namespace. Empty for external and stdlib imports.
	Rel    string
	Kind   ImportKind
	Line   int
	Column int
}

// FileImports is the parse result of one Go file.
type FileImports struct {
	// Path is the file path relative to the project directory, in slash
	// form.
	Path string
	// Package is the file's package path relative to the source-root
	// namespace. Empty for files directly under a source root.
	Package string
	// Test marks _test.go files.
	Test    bool
	Imports []Import
}

// Cache is consulted before parsing a file. Implementations key entries
// by path, size and modification time; a miss returns false.
type Cache interface {
	Get(path string, size, mtime int64) (*FileImports, bool)
	Put(path string, size, mtime int64, fi *FileImports)
}

// Options configures a scan.
type Options struct {
	// Dir is the project directory: the config file location, where
	// go.mod is resolved.
	Dir string
	// SourceRoots are the scan roots relative to Dir.
	SourceRoots []string
	// Exclude holds doublestar glob patterns matched against paths
	// relative to each source root.
	Exclude []string
	// Workers sets the parse pool size; 0 selects runtime.NumCPU.
	Workers int
	// MaxFileSize caps parsed file size in bytes; larger files are
	// skipped. 0 means no cap.
	MaxFileSize uint64
	// SkipTestFiles drops _test.go files from the scan entirely.
	SkipTestFiles bool
	// Cache, when non-nil, short-circuits parsing of unchanged files.
	Cache Cache
	// Logger receives scan progress; nil selects slog.Default.
	Logger *slog.Logger
}

// Stats summarizes a finished scan.
type Stats struct {
	FilesParsed  int
	CacheHits    int
	SkippedLarge int
	Bytes        uint64
	Elapsed      time.Duration
}

// Result is the outcome of a scan.
type Result struct {
	// ModulePath is the Go module path from go.mod.
	ModulePath string
	// Files lists every scanned file, ordered by path.
	Files []FileImports
	Stats Stats
}

// Scan discovers Go files under the source roots and extracts their
// imports.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	modulePath, modErr := ModulePath(opts.Dir)
	if modErr != nil {
		return nil, modErr
	}

	job := &scanJob{
		opts:       opts,
		logger:     logger,
		modulePath: modulePath,
		roots:      cleanRoots(opts.SourceRoots),
	}

	files, collectErr := job.collectFiles()
	if collectErr != nil {
		return nil, collectErr
	}

	parsed, parseErr := job.parseFilesParallel(ctx, files)
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(parsed, func(i, j int) bool {
		return parsed[i].Path < parsed[j].Path
	})

	job.stats.Elapsed = time.Since(started)

	logger.Info("scan finished",
		"files", len(parsed),
		"parsed", job.stats.FilesParsed,
		"cache_hits", job.stats.CacheHits,
		"bytes", humanize.Bytes(job.stats.Bytes),
		"elapsed", job.stats.Elapsed,
	)

	return &Result{
		ModulePath: modulePath,
		Files:      parsed,
		Stats:      job.stats,
	}, nil
}

// scanJob carries the state of one scan across its phases.
type scanJob struct {
	opts       Options
	logger     *slog.Logger
	modulePath string
	// roots holds the source roots relative to Dir in slash form, ""
	// standing for Dir itself.
	roots []string
	stats Stats
}

// fileEntry is one discovered file awaiting parsing.
type fileEntry struct {
	abs     string
	relPath string // report path relative to Dir, slash form
	pkg     string // package path in the source-root namespace
	size    int64
	mtime   int64
	test    bool
}

// ModulePath reads the module path out of go.mod in dir.
func ModulePath(dir string) (string, error) {
	goModPath := filepath.Join(dir, "go.mod")

	data, readErr := os.ReadFile(goModPath)
	if readErr != nil {
		return "", fmt.Errorf("read %s: %w", goModPath, readErr)
	}

	file, parseErr := modfile.ParseLax(goModPath, data, nil)
	if parseErr != nil {
		return "", fmt.Errorf("parse %s: %w", goModPath, parseErr)
	}

	if file.Module == nil || file.Module.Mod.Path == "" {
		return "", fmt.Errorf("%w: %s", ErrNoModulePath, goModPath)
	}

	return file.Module.Mod.Path, nil
}

// cleanRoots normalizes the configured source roots to slash-relative
// form, with "" standing for the project directory itself.
func cleanRoots(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	seen := map[string]bool{}

	for _, root := range roots {
		c := filepath.ToSlash(filepath.Clean(filepath.FromSlash(root)))
		if c == "." {
			c = ""
		}

		if !seen[c] {
			seen[c] = true
			cleaned = append(cleaned, c)
		}
	}

	return cleaned
}
