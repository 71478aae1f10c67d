package collectors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

// binarySniffLength is the number of bytes to scan for null bytes when
// detecting binary content.
const binarySniffLength = 8000

// otherLanguage buckets files enry cannot classify.
const otherLanguage = "Other"

// lineCommentPrefixes maps enry language names to their line-comment
// marker. Languages not listed here have all non-blank lines counted.
var lineCommentPrefixes = map[string]string{
	"Go":         "//",
	"C":          "//",
	"C++":        "//",
	"C#":         "//",
	"Java":       "//",
	"JavaScript": "//",
	"TypeScript": "//",
	"Rust":       "//",
	"Kotlin":     "//",
	"Swift":      "//",
	"Scala":      "//",
	"Python":     "#",
	"Ruby":       "#",
	"Shell":      "#",
	"Perl":       "#",
	"R":          "#",
	"YAML":       "#",
	"TOML":       "#",
	"Lua":        "--",
	"Haskell":    "--",
	"SQL":        "--",
}

// blockComment is a pair of block-comment delimiters.
type blockComment struct {
	open  string
	close string
}

// blockComments maps enry language names to their block-comment
// delimiters. Python docstrings are string literals, not comments, and
// count as code.
var blockComments = map[string]blockComment{
	"Go":         {"/*", "*/"},
	"C":          {"/*", "*/"},
	"C++":        {"/*", "*/"},
	"C#":         {"/*", "*/"},
	"Java":       {"/*", "*/"},
	"JavaScript": {"/*", "*/"},
	"TypeScript": {"/*", "*/"},
	"Rust":       {"/*", "*/"},
	"Kotlin":     {"/*", "*/"},
	"Swift":      {"/*", "*/"},
	"Scala":      {"/*", "*/"},
	"SQL":        {"/*", "*/"},
	"CSS":        {"/*", "*/"},
	"HTML":       {"<!--", "-->"},
	"XML":        {"<!--", "-->"},
	"Lua":        {"--[[", "]]"},
	"Haskell":    {"{-", "-}"},
}

// LOC counts lines of code per language across the working tree.
type LOC struct{}

// NewLOC returns the lines-of-code collector.
func NewLOC() *LOC {
	return &LOC{}
}

// Kind implements Collector.
func (*LOC) Kind() string {
	return config.KindLOC
}

// Collect implements Collector. Binary and vendored files are skipped;
// blank lines and line or block comments do not count.
func (*LOC) Collect(ctx context.Context, root string, _ config.MetricDefinition) (Value, error) {
	byLanguage := map[string]int64{}

	var total int64

	walkErr := walkFiles(ctx, root, func(path, rel string) error {
		if enry.IsVendor(rel) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", rel, readErr)
		}

		if isBinary(data) {
			return nil
		}

		language := enry.GetLanguage(filepath.Base(path), data)
		if language == "" {
			language = otherLanguage
		}

		lines := countCodeLines(language, data)
		if lines == 0 {
			return nil
		}

		byLanguage[language] += lines
		total += lines

		return nil
	})
	if walkErr != nil {
		return Value{}, walkErr
	}

	return Value{Total: total, ByLanguage: byLanguage}, nil
}

// isBinary reports whether data looks binary, using the same null-byte
// sniff git applies to the first block of a file.
func isBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLength {
		sniff = sniff[:binarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// countCodeLines counts the non-blank lines of data that are not line
// or block comments for the given language. A line holding code next to
// a comment delimiter still counts.
func countCodeLines(language string, data []byte) int64 {
	commentPrefix := lineCommentPrefixes[language]
	block, hasBlock := blockComments[language]

	var count int64

	inBlock := false

	for len(data) > 0 {
		line := data

		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			line = data[:idx]
			data = data[idx+1:]
		} else {
			data = nil
		}

		trimmed := bytes.TrimSpace(line)

		if inBlock {
			closeIdx := bytes.Index(trimmed, []byte(block.close))
			if closeIdx < 0 {
				continue
			}

			inBlock = false
			trimmed = bytes.TrimSpace(trimmed[closeIdx+len(block.close):])
		}

		if len(trimmed) == 0 {
			continue
		}

		if commentPrefix != "" && bytes.HasPrefix(trimmed, []byte(commentPrefix)) {
			continue
		}

		if hasBlock && bytes.HasPrefix(trimmed, []byte(block.open)) {
			rest := trimmed[len(block.open):]

			closeIdx := bytes.Index(rest, []byte(block.close))
			if closeIdx < 0 {
				inBlock = true

				continue
			}

			trimmed = bytes.TrimSpace(rest[closeIdx+len(block.close):])
			if len(trimmed) == 0 {
				continue
			}
		}

		count++
	}

	return count
}
