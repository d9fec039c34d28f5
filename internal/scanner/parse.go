package scanner

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// workerState is the shared state of the parse pool. Results and stats
// accumulate under the mutex; the first error wins and stops the pool.
type workerState struct {
	mu       sync.Mutex
	files    []FileImports
	firstErr error
	parsed   int
	cached   int
	bytes    uint64
}

func (w *workerState) setError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *workerState) failed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.firstErr != nil
}

// parseFilesParallel fans the collected files out over a worker pool
// and extracts the imports of each.
func (s *scanJob) parseFilesParallel(ctx context.Context, files []fileEntry) ([]FileImports, error) {
	numWorkers := s.opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	numWorkers = max(1, numWorkers)

	state := &workerState{files: make([]FileImports, 0, len(files))}
	fileChan := make(chan fileEntry, numWorkers)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			fset := token.NewFileSet()

			for entry := range fileChan {
				if s.processFile(ctx, fset, entry, state) {
					// Drain remaining files so the feeder never blocks.
					for range fileChan {
						continue
					}

					return
				}
			}
		}()
	}

	for _, entry := range files {
		fileChan <- entry
	}

	close(fileChan)
	wg.Wait()

	if state.firstErr != nil {
		return nil, state.firstErr
	}

	s.stats.FilesParsed = state.parsed
	s.stats.CacheHits = state.cached
	s.stats.Bytes = state.bytes

	return state.files, nil
}

// processFile parses one file and records its imports. The returned
// bool tells the worker to stop.
func (s *scanJob) processFile(ctx context.Context, fset *token.FileSet, entry fileEntry, state *workerState) bool {
	if ctxErr := ctx.Err(); ctxErr != nil {
		state.setError(ctxErr)

		return true
	}

	if state.failed() {
		return true
	}

	if cached, ok := s.cacheGet(entry); ok {
		state.mu.Lock()
		state.files = append(state.files, *cached)
		state.cached++
		state.mu.Unlock()

		return false
	}

	file, parseErr := parser.ParseFile(fset, entry.abs, nil, parser.ImportsOnly)
	if parseErr != nil {
		// Files that vanish or become unreadable mid-scan are skipped,
		// syntax errors are not.
		if errors.Is(parseErr, fs.ErrPermission) || errors.Is(parseErr, fs.ErrNotExist) {
			return false
		}

		state.setError(fmt.Errorf("parse %s: %w", entry.relPath, parseErr))

		return true
	}

	fi := FileImports{
		Path:    entry.relPath,
		Package: entry.pkg,
		Test:    entry.test,
		Imports: make([]Import, 0, len(file.Imports)),
	}

	for _, spec := range file.Imports {
		importPath, unquoteErr := strconv.Unquote(spec.Path.Value)
		if unquoteErr != nil {
			continue
		}

		position := fset.Position(spec.Path.Pos())

		fi.Imports = append(fi.Imports, s.classify(Import{
			Path:   importPath,
			Line:   position.Line,
			Column: position.Column,
		}))
	}

	s.cachePut(entry, &fi)

	state.mu.Lock()
	state.files = append(state.files, fi)
	state.parsed++

	if entry.size > 0 {
		state.bytes += uint64(entry.size)
	}
	state.mu.Unlock()

	return false
}

// classify fills in the kind of an import and, for internal ones, its
// package path in the source-root namespace.
func (s *scanJob) classify(imp Import) Import {
	switch {
	case imp.Path == s.modulePath:
		imp.Kind = ImportInternal
		imp.Rel = s.stripRoot("")
	case strings.HasPrefix(imp.Path, s.modulePath+"/"):
		imp.Kind = ImportInternal
		imp.Rel = s.stripRoot(imp.Path[len(s.modulePath)+1:])
	case isStandardImportPath(imp.Path):
		imp.Kind = ImportStdlib
	default:
		imp.Kind = ImportExternal
	}

	return imp
}

// stripRoot maps a module-relative package path into the source-root
// namespace by removing the first matching root prefix.
func (s *scanJob) stripRoot(pkg string) string {
	for _, root := range s.roots {
		if root == "" {
			continue
		}

		if pkg == root {
			return ""
		}

		if strings.HasPrefix(pkg, root+"/") {
			return pkg[len(root)+1:]
		}
	}

	return pkg
}

// isStandardImportPath mirrors the toolchain rule: an import path
// belongs to the standard library when its first segment contains no
// dot.
func isStandardImportPath(importPath string) bool {
	first := importPath
	if idx := strings.Index(importPath, "/"); idx >= 0 {
		first = importPath[:idx]
	}

	return !strings.Contains(first, ".")
}

func (s *scanJob) cacheGet(entry fileEntry) (*FileImports, bool) {
	if s.opts.Cache == nil {
		return nil, false
	}

	return s.opts.Cache.Get(entry.abs, entry.size, entry.mtime)
}

func (s *scanJob) cachePut(entry fileEntry, fi *FileImports) {
	if s.opts.Cache == nil {
		return
	}

	s.opts.Cache.Put(entry.abs, entry.size, entry.mtime, fi)
}
