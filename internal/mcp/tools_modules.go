package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
)

// ModuleInfo describes one declared module boundary.
type ModuleInfo struct {
	Path      string   `json:"path"`
	Strict    bool     `json:"strict,omitempty"`
	DependsOn []string `json:"depends_on"`
	External  []string `json:"external,omitempty"`
}

// ModulesDocument is the depfence_modules tool result.
type ModulesDocument struct {
	Modules []ModuleInfo `json:"modules"`
}

// handleModules processes depfence_modules tool calls.
func (s *Server) handleModules(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ModulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePathInput(input.Path)
	if err != nil {
		return errorResult(err)
	}

	cfg, err := loadProject(input.Path, input.Config)
	if err != nil {
		return errorResult(err)
	}

	pol, problems := policy.Compile(cfg)
	if len(problems) > 0 {
		result, output, jsonErr := jsonResult(report.NewValidationDocument(nil, problems))
		if result != nil {
			result.IsError = true
		}

		return result, output, jsonErr
	}

	modules := pol.Modules()
	doc := ModulesDocument{Modules: make([]ModuleInfo, 0, len(modules))}

	for _, mod := range modules {
		dependsOn := mod.DependsOn
		if dependsOn == nil {
			dependsOn = []string{}
		}

		doc.Modules = append(doc.Modules, ModuleInfo{
			Path:      mod.Path,
			Strict:    mod.Strict,
			DependsOn: dependsOn,
			External:  mod.ExternalDeps,
		})
	}

	return jsonResult(doc)
}
