package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/depfence/internal/config"
	"github.com/Sumatoshi-tech/depfence/internal/policy"
	"github.com/Sumatoshi-tech/depfence/internal/report"
	"github.com/Sumatoshi-tech/depfence/internal/schema"
)

// handleValidate processes depfence_validate tool calls. An invalid
// configuration is a successful tool result carrying the findings, not
// a tool error.
func (s *Server) handleValidate(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ValidateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePathInput(input.Path)
	if err != nil {
		return errorResult(err)
	}

	cfgPath := resolveConfigPath(input.Path, input.Config)
	if cfgPath == "" {
		cfgPath = config.Find(input.Path)
	}

	if cfgPath == "" {
		return errorResult(fmt.Errorf("%w: %s", ErrConfigNotFound, input.Path))
	}

	issues, err := schema.ValidateFile(cfgPath)
	if err != nil {
		return errorResult(err)
	}

	var problems []policy.Problem

	cfg, loadErr := config.LoadFrom(cfgPath, input.Path)
	if loadErr == nil {
		_, problems = policy.Compile(cfg)
	} else if len(issues) == 0 {
		// Load failed with a clean schema: the load error is the finding.
		return errorResult(loadErr)
	}

	return jsonResult(report.NewValidationDocument(issues, problems))
}
