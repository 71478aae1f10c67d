package collectors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/Sumatoshi-tech/gitpulse/pkg/config"
)

// Patterns finds occurrences of a configured regular expression across
// the text files of the working tree.
type Patterns struct{}

// NewPatterns returns the pattern-occurrence collector.
func NewPatterns() *Patterns {
	return &Patterns{}
}

// Kind implements Collector.
func (*Patterns) Kind() string {
	return config.KindPatterns
}

// Collect implements Collector. Matches are reported per line with
// 1-based positions; binary files are skipped. Total equals the number
// of matches.
func (*Patterns) Collect(ctx context.Context, root string, def config.MetricDefinition) (Value, error) {
	pattern, compileErr := regexp.Compile(def.Pattern)
	if compileErr != nil {
		return Value{}, fmt.Errorf("compile pattern %q: %w", def.Pattern, compileErr)
	}

	var matches []Match

	walkErr := walkFiles(ctx, root, func(path, rel string) error {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", rel, readErr)
		}

		if isBinary(data) {
			return nil
		}

		matches = append(matches, matchLines(pattern, rel, data)...)

		return nil
	})
	if walkErr != nil {
		return Value{}, walkErr
	}

	return Value{Total: int64(len(matches)), Matches: matches}, nil
}

// matchLines runs pattern over each line of data and records every
// occurrence with its position in the file.
func matchLines(pattern *regexp.Regexp, rel string, data []byte) []Match {
	var matches []Match

	lineNumber := 0

	for len(data) > 0 {
		line := data

		if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
			line = data[:idx]
			data = data[idx+1:]
		} else {
			data = nil
		}

		lineNumber++

		for _, loc := range pattern.FindAllIndex(line, -1) {
			matches = append(matches, Match{
				Path:   rel,
				Line:   lineNumber,
				Column: loc[0] + 1,
			})
		}
	}

	return matches
}
