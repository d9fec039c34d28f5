// Package cache persists scan results between runs so files that have
// not changed skip parsing. Entries are keyed by path, size and
// modification time; a JSON manifest next to the compressed payload
// guards the layout version and the scan configuration.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Sumatoshi-tech/depfence/internal/persist"
	"github.com/Sumatoshi-tech/depfence/internal/scanner"
)

const (
	cacheVersion = 1

	metaBasename    = "meta"
	entriesBasename = "imports"

	projectHashLen = 16
	dirPerm        = 0o755
)

// Fingerprint identifies the configuration a cache was built under.
// Any change discards the cache wholesale, since cached entries carry
// classifications derived from it.
type Fingerprint struct {
	ModulePath  string   `json:"module_path"`
	SourceRoots []string `json:"source_roots"`
}

// Meta is the on-disk manifest written next to the payload.
type Meta struct {
	Version     int         `json:"version"`
	Project     string      `json:"project"`
	Fingerprint Fingerprint `json:"fingerprint"`
	SavedAt     time.Time   `json:"saved_at"`
}

// fileKey identifies one cached file.
type fileKey struct {
	Path  string
	Size  int64
	Mtime int64
}

// entriesState is the gob payload.
type entriesState struct {
	Entries map[fileKey]scanner.FileImports
}

// ScanCache is a disk-backed scan cache. It implements scanner.Cache
// and is safe for concurrent use.
type ScanCache struct {
	dir         string
	project     string
	fingerprint Fingerprint
	logger      *slog.Logger

	metaPersister    *persist.Persister[Meta]
	entriesPersister *persist.Persister[entriesState]

	mu      sync.RWMutex
	entries map[fileKey]scanner.FileImports
}

// DefaultDir returns the per-project cache directory under the user
// cache root.
func DefaultDir(projectDir string) (string, error) {
	base, baseErr := os.UserCacheDir()
	if baseErr != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", baseErr)
	}

	abs, absErr := filepath.Abs(projectDir)
	if absErr != nil {
		return "", fmt.Errorf("resolve project dir: %w", absErr)
	}

	sum := sha256.Sum256([]byte(abs))

	return filepath.Join(base, "depfence", hex.EncodeToString(sum[:])[:projectHashLen]), nil
}

// OpenProject opens and loads the default cache for the project rooted
// at dir. Failures degrade to a nil cache so the scan proceeds uncached.
func OpenProject(dir string, sourceRoots []string, logger *slog.Logger) *ScanCache {
	if logger == nil {
		logger = slog.Default()
	}

	cacheDir, dirErr := DefaultDir(dir)
	if dirErr != nil {
		logger.Warn("scan cache disabled", "error", dirErr)

		return nil
	}

	modPath, modErr := scanner.ModulePath(dir)
	if modErr != nil {
		// Scan surfaces the go.mod problem itself.
		return nil
	}

	fingerprint := Fingerprint{
		ModulePath:  modPath,
		SourceRoots: sourceRoots,
	}

	c := Open(cacheDir, dir, fingerprint, logger)
	c.Load()

	return c
}

// Open creates a cache rooted at dir for the given project. The cache
// starts empty until Load is called.
func Open(dir, project string, fingerprint Fingerprint, logger *slog.Logger) *ScanCache {
	if logger == nil {
		logger = slog.Default()
	}

	return &ScanCache{
		dir:              dir,
		project:          project,
		fingerprint:      fingerprint,
		logger:           logger,
		metaPersister:    persist.NewPersister[Meta](metaBasename, persist.NewJSONCodec()),
		entriesPersister: persist.NewPersister[entriesState](entriesBasename, persist.NewCompressedCodec(persist.NewGobCodec())),
		entries:          map[fileKey]scanner.FileImports{},
	}
}

// Load reads the cache from disk. A missing, stale or corrupt cache
// leaves the cache empty; a scan must never fail because of it.
func (c *ScanCache) Load() {
	meta, metaErr := c.metaPersister.Load(c.dir)
	if metaErr != nil {
		c.logger.Debug("scan cache cold", "dir", c.dir, "reason", metaErr)

		return
	}

	if meta.Version != cacheVersion || !meta.Fingerprint.equal(c.fingerprint) {
		c.logger.Debug("scan cache discarded", "dir", c.dir,
			"version", meta.Version, "module", meta.Fingerprint.ModulePath)

		return
	}

	state, loadErr := c.entriesPersister.Load(c.dir)
	if loadErr != nil {
		c.logger.Debug("scan cache unreadable", "dir", c.dir, "reason", loadErr)

		return
	}

	if state.Entries == nil {
		return
	}

	c.mu.Lock()
	c.entries = state.Entries
	c.mu.Unlock()
}

// Save writes the cache to disk, creating the directory on first use.
func (c *ScanCache) Save() error {
	if mkdirErr := os.MkdirAll(c.dir, dirPerm); mkdirErr != nil {
		return fmt.Errorf("create cache dir: %w", mkdirErr)
	}

	c.mu.RLock()
	snapshot := make(map[fileKey]scanner.FileImports, len(c.entries))
	for key, fi := range c.entries {
		snapshot[key] = fi
	}
	c.mu.RUnlock()

	meta := &Meta{
		Version:     cacheVersion,
		Project:     c.project,
		Fingerprint: c.fingerprint,
		SavedAt:     time.Now().UTC(),
	}

	if metaErr := c.metaPersister.Save(c.dir, meta); metaErr != nil {
		return fmt.Errorf("save cache meta: %w", metaErr)
	}

	if entriesErr := c.entriesPersister.Save(c.dir, &entriesState{Entries: snapshot}); entriesErr != nil {
		return fmt.Errorf("save cache entries: %w", entriesErr)
	}

	return nil
}

// Get implements scanner.Cache.
func (c *ScanCache) Get(path string, size, mtime int64) (*scanner.FileImports, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fi, ok := c.entries[fileKey{Path: path, Size: size, Mtime: mtime}]
	if !ok {
		return nil, false
	}

	return &fi, true
}

// Put implements scanner.Cache.
func (c *ScanCache) Put(path string, size, mtime int64, fi *scanner.FileImports) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fileKey{Path: path, Size: size, Mtime: mtime}] = *fi
}

// Len returns the number of cached entries.
func (c *ScanCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (f Fingerprint) equal(other Fingerprint) bool {
	return f.ModulePath == other.ModulePath && slices.Equal(f.SourceRoots, other.SourceRoots)
}
