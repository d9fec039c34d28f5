package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState is a struct for round-trip codec testing.
type testState struct {
	Name   string         `json:"name"`
	Count  int            `json:"count"`
	Values map[string]int `json:"values"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	original := testState{
		Name:   "test",
		Count:  42,
		Values: map[string]int{"a": 1, "b": 2},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func TestJSONCodec_PrettyPrint(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testState{Name: "pretty"}))
	assert.Contains(t, buf.String(), defaultIndent)
}

func TestJSONCodec_DecodeError(t *testing.T) {
	t.Parallel()

	codec := NewJSONCodec()

	var decoded testState

	err := codec.Decode(strings.NewReader("not valid json{{{"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json decode")
}

func TestGobCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewGobCodec()

	original := testState{
		Name:   "gob-test",
		Count:  123,
		Values: map[string]int{"x": 10, "y": 20},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func TestGobCodec_DecodeError(t *testing.T) {
	t.Parallel()

	codec := NewGobCodec()

	var decoded testState

	err := codec.Decode(strings.NewReader("not gob data"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gob decode")
}

func TestCompressedCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewCompressedCodec(NewGobCodec())

	original := testState{
		Name:   "compressed",
		Count:  7,
		Values: map[string]int{"k": 5},
	}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, original))

	var decoded testState

	require.NoError(t, codec.Decode(&buf, &decoded))
	assert.Equal(t, original, decoded)
}

func TestCompressedCodec_Extension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".gob.lz4", NewCompressedCodec(NewGobCodec()).Extension())
	assert.Equal(t, ".json.lz4", NewCompressedCodec(NewJSONCodec()).Extension())
}

func TestCompressedCodec_Compresses(t *testing.T) {
	t.Parallel()

	state := testState{Name: strings.Repeat("abcd", 4096)}

	var plain, packed bytes.Buffer

	require.NoError(t, NewGobCodec().Encode(&plain, state))
	require.NoError(t, NewCompressedCodec(NewGobCodec()).Encode(&packed, state))

	assert.Less(t, packed.Len(), plain.Len())
}

func TestSaveState_AtomicWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	require.NoError(t, SaveState(dir, "run", codec, testState{Name: "atomic"}))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.json", entries[0].Name())
}

func TestSaveState_InvalidDirectory(t *testing.T) {
	t.Parallel()

	err := SaveState("/nonexistent/path/that/does/not/exist", "run", NewJSONCodec(), testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestLoadState_FileNotFound(t *testing.T) {
	t.Parallel()

	var state testState

	err := LoadState(t.TempDir(), "nonexistent", NewJSONCodec(), &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}

func TestLoadState_DecodeError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")

	require.NoError(t, os.WriteFile(path, []byte("not json{{{"), 0o600))

	var state testState

	err := LoadState(dir, "corrupt", NewJSONCodec(), &state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestPersister_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	persister := NewPersister[testState]("imports", NewCompressedCodec(NewGobCodec()))

	original := &testState{Name: "persisted", Count: 3}

	require.NoError(t, persister.Save(dir, original))

	assert.Equal(t, filepath.Join(dir, "imports.gob.lz4"), persister.Path(dir))

	loaded, loadErr := persister.Load(dir)
	require.NoError(t, loadErr)
	assert.Equal(t, original, loaded)
}

func TestPersister_LoadMissing(t *testing.T) {
	t.Parallel()

	persister := NewPersister[testState]("imports", NewGobCodec())

	_, err := persister.Load(t.TempDir())
	require.Error(t, err)
}
