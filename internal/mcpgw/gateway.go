// Package mcpgw exposes the catalog tools over the Model Context Protocol.
//
// Every registry tool becomes an MCP tool with the same name and input
// schema. Tool failures are returned as text content with isError set, so
// MCP clients see the same messages the agent does.
package mcpgw

import (
	"context"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/agentoven/catalog-assistant/internal/tools"
)

// ServerName is advertised in the MCP initialize handshake.
const ServerName = "catalog-assistant"

// Gateway owns the MCP server built from a tool registry.
type Gateway struct {
	server *mcp.Server
	reg    *tools.Registry
}

// NewGateway registers every tool in reg on a new MCP server.
func NewGateway(reg *tools.Registry, version string) *Gateway {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	gw := &Gateway{server: server, reg: reg}

	for _, t := range reg.List() {
		server.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema(),
		}, gw.handler(t.Name))
	}

	log.Info().Int("tools", len(reg.List())).Msg("MCP gateway initialized")
	return gw
}

// Server returns the underlying MCP server.
func (gw *Gateway) Server() *mcp.Server {
	return gw.server
}

// Handler serves MCP over streamable HTTP.
func (gw *Gateway) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return gw.server
	}, nil)
}

func (gw *Gateway) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw string
		if req.Params != nil {
			raw = strings.TrimSpace(string(req.Params.Arguments))
		}

		out := gw.reg.Call(ctx, name, raw)
		isErr := tools.IsErrorText(out)

		log.Debug().Str("tool", name).Bool("is_error", isErr).Msg("MCP tool call")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
			IsError: isErr,
		}, nil
	}
}
