package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MrCreosote/contigfilter/internal/config"
	"github.com/MrCreosote/contigfilter/internal/errors"
	"github.com/MrCreosote/contigfilter/internal/gateway"
	"github.com/MrCreosote/contigfilter/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	pipeline *ops.Pipeline
	cfg      *config.Config
	build    ops.BuildInfo
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance. A nil logger discards output.
func NewHandlers(pipeline *ops.Pipeline, cfg *config.Config, build ops.BuildInfo, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = discardLogger()
	}
	return &Handlers{pipeline: pipeline, cfg: cfg, build: build, logger: logger}
}

// FilterContigsRequest represents the arguments for filter_contigs.
type FilterContigsRequest struct {
	WorkspaceName    string `json:"workspace_name"`
	AssemblyInputRef string `json:"assembly_input_ref"`
	MinLength        *int64 `json:"min_length"`
}

// HandleFilterContigs handles the filter_contigs tool call. The caller token
// comes from the server configuration; stdio carries no per-call identity.
func (h *Handlers) HandleFilterContigs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilterContigsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidParameter("arguments", err.Error())), nil
	}

	result, err := h.pipeline.FilterContigs(ctx, gateway.Identity{Token: h.cfg.Token}, ops.FilterContigsInput{
		WorkspaceName:    input.WorkspaceName,
		AssemblyInputRef: input.AssemblyInputRef,
		MinLength:        input.MinLength,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatus handles the status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Status(h.build))
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": fErr.Message,
			"status":  fErr.Status,
		}
		if fErr.Stage != "" {
			errorObj["stage"] = fErr.Stage
		}
		if fErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if fErr.Details != nil {
			errorObj["details"] = fErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
