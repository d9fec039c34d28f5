package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	tmpExtension = ".tmp"
	filePerm     = 0o644
)

// SaveState writes state to dir atomically: the encoding goes to a
// temporary file that is fsynced and renamed over the target. The
// filename is the basename plus the codec's extension.
func SaveState(dir, basename string, codec Codec, state any) error {
	finalPath := filepath.Join(dir, basename+codec.Extension())
	tmpPath := finalPath + tmpExtension

	fd, createErr := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if createErr != nil {
		return fmt.Errorf("create state file: %w", createErr)
	}

	if encodeErr := codec.Encode(fd, state); encodeErr != nil {
		fd.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("encode state: %w", encodeErr)
	}

	if syncErr := fd.Sync(); syncErr != nil {
		fd.Close()

		return fmt.Errorf("sync state file: %w", syncErr)
	}

	if closeErr := fd.Close(); closeErr != nil {
		return fmt.Errorf("close state file: %w", closeErr)
	}

	if renameErr := os.Rename(tmpPath, finalPath); renameErr != nil {
		return fmt.Errorf("rename state file: %w", renameErr)
	}

	return nil
}

// LoadState reads state from dir. The filename is the basename plus the
// codec's extension; state must be a pointer to the target.
func LoadState(dir, basename string, codec Codec, state any) error {
	path := filepath.Join(dir, basename+codec.Extension())

	fd, openErr := os.Open(path)
	if openErr != nil {
		return fmt.Errorf("open state file: %w", openErr)
	}
	defer fd.Close()

	if decodeErr := codec.Decode(fd, state); decodeErr != nil {
		return fmt.Errorf("decode state: %w", decodeErr)
	}

	return nil
}

// Persister handles I/O for a specific state type using a Codec.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister creates a persister with the given basename and codec.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{
		basename: basename,
		codec:    codec,
	}
}

// Save writes state to the given directory.
func (p *Persister[T]) Save(dir string, state *T) error {
	return SaveState(dir, p.basename, p.codec, state)
}

// Load restores state from the given directory.
func (p *Persister[T]) Load(dir string) (*T, error) {
	var state T

	if err := LoadState(dir, p.basename, p.codec, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// Path returns the file the persister reads and writes under dir.
func (p *Persister[T]) Path(dir string) string {
	return filepath.Join(dir, p.basename+p.codec.Extension())
}
