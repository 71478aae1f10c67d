package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleRecord is a struct for codec round-trip testing.
type sampleRecord struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

func TestSaveLoadRecord_AllCodecs(t *testing.T) {
	t.Parallel()

	codecs := []struct {
		name  string
		codec Codec
		ext   string
	}{
		{name: "json", codec: NewJSONCodec(), ext: ".json"},
		{name: "gob", codec: NewGobCodec(), ext: ".gob"},
		{name: "lz4+json", codec: NewLZ4Codec(NewJSONCodec()), ext: ".json.lz4"},
		{name: "lz4+gob", codec: NewLZ4Codec(NewGobCodec()), ext: ".gob.lz4"},
	}

	for _, tc := range codecs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			original := sampleRecord{Label: "hello", Value: 42}

			err := SaveRecord(dir, "rec", tc.codec, &original)

			require.NoError(t, err)
			assert.Equal(t, tc.ext, tc.codec.Extension())

			_, statErr := os.Stat(filepath.Join(dir, "rec"+tc.ext))
			require.NoError(t, statErr)

			var restored sampleRecord

			err = LoadRecord(dir, "rec", tc.codec, &restored)

			require.NoError(t, err)
			assert.Equal(t, original, restored)
		})
	}
}

func TestSaveRecord_Overwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	codec := NewJSONCodec()

	require.NoError(t, SaveRecord(dir, "rec", codec, &sampleRecord{Value: 1}))
	require.NoError(t, SaveRecord(dir, "rec", codec, &sampleRecord{Value: 2}))

	var restored sampleRecord

	require.NoError(t, LoadRecord(dir, "rec", codec, &restored))
	assert.Equal(t, int64(2), restored.Value)
}

func TestSaveRecord_LeavesNoTempFilesBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	require.NoError(t, SaveRecord(dir, "rec", NewJSONCodec(), &sampleRecord{}))

	entries, err := os.ReadDir(dir)

	require.NoError(t, err)

	for _, entry := range entries {
		assert.False(t, strings.Contains(entry.Name(), ".tmp-"), "leftover temp file %s", entry.Name())
	}
}

func TestLoadRecord_MissingFile(t *testing.T) {
	t.Parallel()

	var restored sampleRecord

	err := LoadRecord(t.TempDir(), "missing", NewJSONCodec(), &restored)

	assert.Error(t, err)
}

func TestSaveRecord_InvalidDir(t *testing.T) {
	t.Parallel()

	err := SaveRecord(filepath.Join(t.TempDir(), "nope", "nope"), "rec", NewJSONCodec(), &sampleRecord{})

	assert.Error(t, err)
}
