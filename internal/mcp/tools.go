package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/depfence/internal/config"
)

// Tool name constants.
const (
	ToolNameCheck    = "depfence_check"
	ToolNameValidate = "depfence_validate"
	ToolNameModules  = "depfence_modules"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyPath indicates the path parameter is empty.
	ErrEmptyPath = errors.New("path parameter is required and must not be empty")
	// ErrPathNotAbsolute indicates the path is not an absolute path.
	ErrPathNotAbsolute = errors.New("path must be an absolute path")
	// ErrPathNotFound indicates the project path does not exist.
	ErrPathNotFound = errors.New("project path does not exist")
	// ErrPathNotDirectory indicates the project path is not a directory.
	ErrPathNotDirectory = errors.New("project path is not a directory")
	// ErrConfigNotFound indicates no depfence.toml exists for the project.
	ErrConfigNotFound = errors.New("no depfence.toml found for project")
)

// Input types (auto-generate JSON schemas via struct tags).

// CheckInput is the input schema for the depfence_check tool.
type CheckInput struct {
	Config  string `json:"config,omitempty"   jsonschema:"optional explicit config file path (default: depfence.toml found from path upward)"`
	NoCache bool   `json:"no_cache,omitempty" jsonschema:"disable the scan cache for this run"`
	Path    string `json:"path"               jsonschema:"absolute path to a Go project directory"`
}

// ValidateInput is the input schema for the depfence_validate tool.
type ValidateInput struct {
	Config string `json:"config,omitempty" jsonschema:"optional explicit config file path (default: depfence.toml found from path upward)"`
	Path   string `json:"path"             jsonschema:"absolute path to a Go project directory"`
}

// ModulesInput is the input schema for the depfence_modules tool.
type ModulesInput struct {
	Config string `json:"config,omitempty" jsonschema:"optional explicit config file path (default: depfence.toml found from path upward)"`
	Path   string `json:"path"             jsonschema:"absolute path to a Go project directory"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// validatePathInput checks common project path constraints.
func validatePathInput(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathNotDirectory, path)
	}

	return nil
}

// resolveConfigPath resolves an explicit config path against the project
// path. Returns "" when no explicit path was given.
func resolveConfigPath(path, configPath string) string {
	if configPath != "" && !filepath.IsAbs(configPath) {
		return filepath.Join(path, configPath)
	}

	return configPath
}

// loadProject loads the depfence configuration for a tool invocation.
// A relative explicit config path is resolved against the project path.
// Tools require a config file to exist; a defaults-only load is rejected.
func loadProject(path, configPath string) (*config.Config, error) {
	cfg, loadErr := config.LoadFrom(resolveConfigPath(path, configPath), path)
	if loadErr != nil {
		return nil, loadErr
	}

	if cfg.File == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	return cfg, nil
}
