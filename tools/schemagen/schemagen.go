// Package main generates the JSON Schema for depfence.toml from the
// config structs. The structural skeleton comes from reflection over
// mapstructure tags; value constraints the type system cannot express
// live in the constraints table below.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/Sumatoshi-tech/depfence/internal/config"
)

// Schema represents a JSON Schema node. Field order matters: it is the
// key order of the emitted document.
type Schema struct {
	Schema               string        `json:"$schema,omitempty"`
	Title                string        `json:"title,omitempty"`
	Description          string        `json:"description,omitempty"`
	Ref                  string        `json:"$ref,omitempty"`
	Type                 string        `json:"type,omitempty"`
	AdditionalProperties *bool         `json:"additionalProperties,omitempty"`
	Required             []string      `json:"required,omitempty"`
	Properties           *orderedProps `json:"properties,omitempty"`
	Items                *Schema       `json:"items,omitempty"`
	MinItems             int           `json:"minItems,omitempty"`
	MinLength            int           `json:"minLength,omitempty"`
	Minimum              *int          `json:"minimum,omitempty"`
	Definitions          *orderedProps `json:"definitions,omitempty"`
}

// orderedProps marshals properties in insertion order, so the emitted
// document follows the struct field order instead of sorted map keys.
type orderedProps struct {
	keys   []string
	values map[string]*Schema
}

func (p *orderedProps) Set(key string, value *Schema) {
	if p.values == nil {
		p.values = map[string]*Schema{}
	}

	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}

	p.values[key] = value
}

func (p *orderedProps) Has(key string) bool {
	_, exists := p.values[key]

	return exists
}

func (p *orderedProps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, nameErr := json.Marshal(key)
		if nameErr != nil {
			return nil, nameErr
		}

		buf.Write(name)
		buf.WriteByte(':')

		value, valueErr := json.Marshal(p.values[key])
		if valueErr != nil {
			return nil, valueErr
		}

		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// zero is the pointer target for "minimum": 0.
var zero = 0

// boolFalse is the pointer target for "additionalProperties": false.
var boolFalse = false

// constraints attaches the value rules reflection cannot see, keyed by
// Go type name and mapstructure tag.
var constraints = map[string]func(*Schema){
	"Config.source_roots":   func(s *Schema) { s.MinItems = 1 },
	"ScanConfig.workers":    func(s *Schema) { s.Minimum = &zero },
	"ModuleConfig.path":     func(s *Schema) { s.MinLength = 1 },
	"DependencyConfig.path": func(s *Schema) { s.MinLength = 1 },
}

// requiredFields lists the properties a definition cannot omit.
var requiredFields = map[string][]string{
	"Module":     {"path"},
	"Dependency": {"path"},
}

func main() {
	var outputPath string

	flag.StringVar(&outputPath, "o", "internal/schema/depfence.schema.json", "Output path for the schema")
	flag.Parse()

	gen := &generator{definitions: &orderedProps{}}

	schema := gen.rootSchema(reflect.TypeOf(config.Config{}))

	if err := writeSchema(outputPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outputPath)
}

type generator struct {
	definitions *orderedProps
}

func (g *generator) rootSchema(t reflect.Type) *Schema {
	schema := g.objectSchema(t)
	schema.Schema = "https://json-schema.org/draft-07/schema#"
	schema.Title = "depfence configuration"
	schema.Description = "JSON schema for the depfence.toml module-boundary declaration"

	if len(g.definitions.keys) > 0 {
		schema.Definitions = g.definitions
	}

	return schema
}

// objectSchema builds a closed object from a struct's mapstructure tags.
func (g *generator) objectSchema(t reflect.Type) *Schema {
	props := &orderedProps{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		fieldSchema := g.fieldSchema(field.Type)

		if constrain, ok := constraints[t.Name()+"."+tag]; ok {
			constrain(fieldSchema)
		}

		props.Set(tag, fieldSchema)
	}

	return &Schema{
		Type:                 "object",
		AdditionalProperties: &boolFalse,
		Required:             requiredFields[definitionName(t)],
		Properties:           props,
	}
}

func (g *generator) fieldSchema(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Struct {
			// Repeated structs become shared definitions.
			return &Schema{Type: "array", Items: g.definition(t.Elem())}
		}

		return &Schema{Type: "array", Items: g.fieldSchema(t.Elem())}

	case reflect.Struct:
		// Single-use section structs inline.
		return g.objectSchema(t)

	case reflect.Ptr:
		return g.fieldSchema(t.Elem())

	default:
		return &Schema{Type: "object"}
	}
}

// definition registers a named struct under #/definitions and returns
// the reference node.
func (g *generator) definition(t reflect.Type) *Schema {
	name := definitionName(t)

	if !g.definitions.Has(name) {
		// Reserve the slot first so self-referential types terminate.
		g.definitions.Set(name, nil)
		g.definitions.Set(name, g.objectSchema(t))
	}

	return &Schema{Ref: "#/definitions/" + name}
}

// definitionName strips the Go naming suffix: ModuleConfig -> Module.
func definitionName(t reflect.Type) string {
	return strings.TrimSuffix(t.Name(), "Config")
}

func writeSchema(path string, schema *Schema) error {
	data, marshalErr := json.MarshalIndent(schema, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("marshal schema: %w", marshalErr)
	}

	data = append(data, '\n')

	if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
		return fmt.Errorf("write schema: %w", writeErr)
	}

	return nil
}
