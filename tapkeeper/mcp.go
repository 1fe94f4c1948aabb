package tapkeeper

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/taptarget/kit"
)

// RegisterMCP registers tapkeeper tools on an MCP server.
func (k *Keeper) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name: "tapaudit_evaluate",
		Description: "Audit tap targets from pre-collected artifacts. Returns the report with " +
			"the score and the ranked table of targets that are too small and too close to a neighbour.",
		InputSchema: inputSchema(map[string]any{
			"page_url": map[string]any{"type": "string", "description": "URL of the audited page"},
			"artifacts": map[string]any{
				"type":        "object",
				"description": "viewport_optimized (bool) and targets (client_rects, href, node)",
			},
		}, []string{"page_url", "artifacts"}),
	}, k.evaluateEndpoint(), kit.DecodeArgs[evaluateRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tapaudit_audit_url",
		Description: "Load a page on an emulated phone and audit its tap targets.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL (http or https)"},
		}, []string{"url"}),
	}, k.auditURLEndpoint(), kit.DecodeArgs[auditURLRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tapaudit_get_run",
		Description: "Fetch a stored audit run with its full table.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Run ID"},
		}, []string{"id"}),
	}, k.getRunEndpoint(), kit.DecodeArgs[getRunRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tapaudit_list_runs",
		Description: "List recent audit runs, newest first.",
		InputSchema: inputSchema(map[string]any{
			"page_url": map[string]any{"type": "string", "description": "Only runs of this page"},
			"limit":    map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}, k.listRunsEndpoint(), kit.DecodeArgs[listRunsRequest])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "tapaudit_stats",
		Description: "Aggregate statistics over stored runs and the most frequently failing targets.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, k.statsEndpoint(), kit.DecodeArgs[statsRequest])
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
