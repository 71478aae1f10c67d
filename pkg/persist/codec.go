// Package persist provides codec-based file persistence for record types.
// Writes are atomic: content goes to a temp file first and is renamed into
// place, so readers never observe a half-written record.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// File extensions for the supported codecs.
const (
	jsonExtension = ".json"
	gobExtension  = ".gob"
	lz4Suffix     = ".lz4"
)

// defaultIndent is the indentation for pretty-printed JSON.
const defaultIndent = "  "

// Codec defines how a record is serialized and deserialized.
type Codec interface {
	// Encode writes the record to the writer.
	Encode(w io.Writer, record any) error
	// Decode reads the record from the reader.
	Decode(r io.Reader, record any) error
	// Extension returns the file extension for this codec (e.g. ".json").
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent is the indentation string. Empty means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, record any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(record)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, record any) error {
	err := json.NewDecoder(r).Decode(record)
	if err != nil {
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
func (c *GobCodec) Encode(w io.Writer, record any) error {
	err := gob.NewEncoder(w).Encode(record)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, record any) error {
	err := gob.NewDecoder(r).Decode(record)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}

// LZ4Codec wraps another codec with LZ4 stream compression. Useful for
// stores holding match lists over long histories.
type LZ4Codec struct {
	inner Codec
}

// NewLZ4Codec wraps the given codec with LZ4 compression.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	return &LZ4Codec{inner: inner}
}

// Encode implements Codec.Encode, compressing the inner codec's output.
func (c *LZ4Codec) Encode(w io.Writer, record any) error {
	zw := lz4.NewWriter(w)

	err := c.inner.Encode(zw, record)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode, decompressing before the inner codec runs.
func (c *LZ4Codec) Decode(r io.Reader, record any) error {
	return c.inner.Decode(lz4.NewReader(r), record)
}

// Extension implements Codec.Extension, suffixing the inner extension.
func (c *LZ4Codec) Extension() string {
	return c.inner.Extension() + lz4Suffix
}

// ErrUnknownCodec is returned by NewCodec for unrecognized codec names.
var ErrUnknownCodec = errors.New("unknown codec")

// NewCodec returns the codec registered under the given configuration name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "json":
		return NewJSONCodec(), nil
	case "gob":
		return NewGobCodec(), nil
	case "json.lz4":
		return NewLZ4Codec(NewJSONCodec()), nil
	case "gob.lz4":
		return NewLZ4Codec(NewGobCodec()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// SaveRecord atomically saves the record to <dir>/<basename><ext>.
func SaveRecord(dir, basename string, codec Codec, record any) error {
	path := filepath.Join(dir, basename+codec.Extension())

	tmp, err := os.CreateTemp(dir, basename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record file: %w", err)
	}

	encodeErr := codec.Encode(tmp, record)

	closeErr := tmp.Close()

	if encodeErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("encode record: %w", encodeErr)
	}

	if closeErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("close temp record file: %w", closeErr)
	}

	renameErr := os.Rename(tmp.Name(), path)
	if renameErr != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("publish record file: %w", renameErr)
	}

	return nil
}

// LoadRecord loads a record from <dir>/<basename><ext>. The record parameter
// must be a pointer to the target struct.
func LoadRecord(dir, basename string, codec Codec, record any) error {
	path := filepath.Join(dir, basename+codec.Extension())

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer file.Close()

	err = codec.Decode(file, record)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	return nil
}
