// Package persist provides codec-based file persistence for cache and
// state types, with optional LZ4 compression and atomic writes.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
	lz4Extension  = ".lz4"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec.
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional
// indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with 2-space pretty-printing.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	if err := encoder.Encode(state); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	if err := json.NewDecoder(r).Decode(state); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	if err := gob.NewDecoder(r).Decode(state); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}

// CompressedCodec wraps another codec in an LZ4 frame.
type CompressedCodec struct {
	inner Codec
}

// NewCompressedCodec creates an LZ4-compressed variant of the given
// codec.
func NewCompressedCodec(inner Codec) *CompressedCodec {
	return &CompressedCodec{inner: inner}
}

// Encode implements Codec.Encode, compressing the inner encoding.
func (c *CompressedCodec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	if err := c.inner.Encode(zw, state); err != nil {
		zw.Close()

		return err
	}

	if closeErr := zw.Close(); closeErr != nil {
		return fmt.Errorf("lz4 flush: %w", closeErr)
	}

	return nil
}

// Decode implements Codec.Decode, decompressing before the inner
// decoding.
func (c *CompressedCodec) Decode(r io.Reader, state any) error {
	return c.inner.Decode(lz4.NewReader(r), state)
}

// Extension implements Codec.Extension by stacking ".lz4" onto the
// inner extension.
func (c *CompressedCodec) Extension() string {
	return c.inner.Extension() + lz4Extension
}
