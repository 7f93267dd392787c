package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/MrCreosote/contigfilter/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"filter_contigs": {
		def:     filterContigsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilterContigs },
	},
	"status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the contigfilter tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"contigfilter",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		h.logger.Warn("unknown tool in disabled_tools", "tool", name)
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, cfg *config.Config, version string) error {
	s := NewServer(h, cfg, version)
	h.logger.Info("mcp server starting", "transport", "stdio", "version", version)
	return server.ServeStdio(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
