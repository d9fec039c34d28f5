// Package schema validates the structural shape of depfence.toml against
// the embedded JSON Schema before any semantic checking runs. Unknown
// keys and wrong value types surface here with field paths.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
)

// Regenerate with tools/schemagen when the config structs change.
//
//go:embed depfence.schema.json
var schemaJSON []byte

// Issue describes one structural deviation from the config schema.
type Issue struct {
	Field       string `json:"field"       yaml:"field"`
	Description string `json:"description" yaml:"description"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Description)
}

// JSON returns a copy of the embedded schema document.
func JSON() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)

	return out
}

// ValidateFile decodes the TOML document at path and checks it against
// the embedded schema. Schema issues are data, not errors: the error
// return covers unreadable or unparseable input only.
func ValidateFile(path string) ([]Issue, error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	var doc map[string]any

	decodeErr := toml.Unmarshal(raw, &doc)
	if decodeErr != nil {
		return nil, fmt.Errorf("parse config: %w", decodeErr)
	}

	return ValidateDocument(doc)
}

// ValidateDocument checks an already-decoded document against the schema.
func ValidateDocument(doc any) ([]Issue, error) {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, validateErr := gojsonschema.Validate(schemaLoader, docLoader)
	if validateErr != nil {
		return nil, fmt.Errorf("schema validation: %w", validateErr)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		issues = append(issues, Issue{
			Field:       resultErr.Field(),
			Description: resultErr.Description(),
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Field != issues[j].Field {
			return issues[i].Field < issues[j].Field
		}

		return issues[i].Description < issues[j].Description
	})

	return issues, nil
}
