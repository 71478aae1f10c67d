package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var configSchema []byte

// ErrSchema reports a configuration file that does not match the expected
// structure, before any semantic validation runs.
var ErrSchema = errors.New("configuration does not match schema")

// validateSchema checks the raw decoded settings against the embedded JSON
// schema. This catches misspelled keys and wrongly typed values early, with
// field paths in the error message.
func validateSchema(settings map[string]any) error {
	schemaLoader := gojsonschema.NewBytesLoader(configSchema)
	inputLoader := gojsonschema.NewGoLoader(settings)

	result, err := gojsonschema.Validate(schemaLoader, inputLoader)
	if err != nil {
		return fmt.Errorf("validate configuration schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		descriptions = append(descriptions, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(descriptions, "; "))
}
