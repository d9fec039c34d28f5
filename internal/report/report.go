// Package report renders check and validation results for humans and
// machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/depfence/internal/checker"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/schema"
)

// Format selects an output encoding.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported format names.
var ErrUnknownFormat = errors.New("unknown output format")

const yamlIndent = 2

// ParseFormat maps a flag value to a Format.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatText, FormatJSON, FormatYAML:
		return Format(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// CheckDocument is the machine shape of a check result.
type CheckDocument struct {
	Passed     bool                `json:"passed" yaml:"passed"`
	Files      int                 `json:"files" yaml:"files"`
	Imports    int                 `json:"imports" yaml:"imports"`
	Violations []checker.Violation `json:"violations" yaml:"violations"`
}

// NewCheckDocument converts a checker result.
func NewCheckDocument(res *checker.Result) CheckDocument {
	violations := res.Violations
	if violations == nil {
		violations = []checker.Violation{}
	}

	return CheckDocument{
		Passed:     res.Passed(),
		Files:      res.Files,
		Imports:    res.Imports,
		Violations: violations,
	}
}

// ValidationDocument is the machine shape of a validation result.
type ValidationDocument struct {
	Valid    bool             `json:"valid" yaml:"valid"`
	Issues   []schema.Issue   `json:"schema_issues,omitempty" yaml:"schema_issues,omitempty"`
	Problems []policy.Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// NewValidationDocument combines structural issues and graph problems.
func NewValidationDocument(issues []schema.Issue, problems []policy.Problem) ValidationDocument {
	return ValidationDocument{
		Valid:    len(issues) == 0 && len(problems) == 0,
		Issues:   issues,
		Problems: problems,
	}
}

// Renderer writes results in one of the supported formats.
type Renderer struct {
	w      io.Writer
	format Format
}

// NewRenderer creates a renderer for the given writer and format.
func NewRenderer(w io.Writer, format Format) *Renderer {
	return &Renderer{w: w, format: format}
}

// Check renders a check result.
func (r *Renderer) Check(res *checker.Result) error {
	doc := NewCheckDocument(res)

	switch r.format {
	case FormatJSON:
		return r.encodeJSON(doc)
	case FormatYAML:
		return r.encodeYAML(doc)
	case FormatText:
	}

	if doc.Passed {
		color.New(color.FgGreen).Fprintf(r.w,
			"ok: no boundary violations (checked %d files, %d imports)\n",
			doc.Files, doc.Imports)

		return nil
	}

	color.New(color.FgRed).Fprintf(r.w, "found %d boundary violations (checked %d files, %d imports)\n\n",
		len(doc.Violations), doc.Files, doc.Imports)

	r.violationsTable(doc.Violations)

	return nil
}

// Validation renders a validation result.
func (r *Renderer) Validation(doc ValidationDocument) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(doc)
	case FormatYAML:
		return r.encodeYAML(doc)
	case FormatText:
	}

	if doc.Valid {
		color.New(color.FgGreen).Fprintln(r.w, "ok: configuration is valid")

		return nil
	}

	color.New(color.FgRed).Fprintln(r.w, "configuration is invalid")

	if len(doc.Issues) > 0 {
		fmt.Fprintln(r.w, "\nStructure:")

		for _, issue := range doc.Issues {
			color.New(color.FgRed).Fprintf(r.w, "  - %s: %s\n", issue.Field, issue.Description)
		}
	}

	if len(doc.Problems) > 0 {
		fmt.Fprintln(r.w, "\nGraph:")

		for _, problem := range doc.Problems {
			color.New(color.FgRed).Fprintf(r.w, "  - [%s] %s\n", problem.Kind, problem.Detail)
		}
	}

	return nil
}

// violationsTable prints the violations in a compact table.
func (r *Renderer) violationsTable(violations []checker.Violation) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(r.w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"KIND", "LOCATION", "EDGE", "DETAIL"})

	for _, v := range violations {
		tbl.AppendRow(table.Row{v.Kind, location(v), edge(v), v.Detail})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(violations))})
	tbl.Render()
}

func location(v checker.Violation) string {
	if v.File == "" {
		return "-"
	}

	if v.Line == 0 {
		return v.File
	}

	return fmt.Sprintf("%s:%d:%d", v.File, v.Line, v.Column)
}

func edge(v checker.Violation) string {
	if v.From == "" && v.To == "" {
		return "-"
	}

	return fmt.Sprintf("%s -> %s", v.From, v.To)
}

func (r *Renderer) encodeJSON(doc any) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func (r *Renderer) encodeYAML(doc any) error {
	encoder := yaml.NewEncoder(r.w)
	encoder.SetIndent(yamlIndent)

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close yaml encoder: %w", err)
	}

	return nil
}
