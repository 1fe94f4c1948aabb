package tapkeeper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/taptarget/report"
)

var testImpl = &mcp.Implementation{Name: "tapkeeper-test", Version: "0.1.0"}

func mcpSession(t *testing.T) (*Keeper, *mcp.ClientSession) {
	t.Helper()
	k, _ := testKeeper(t, nil)

	srv := mcp.NewServer(testImpl, nil)
	k.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(testImpl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return k, session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func TestMCP_ListTools(t *testing.T) {
	_, session := mcpSession(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tools) != 5 {
		t.Errorf("tools: got %d, want 5", len(res.Tools))
	}
}

func TestMCP_EvaluateAndGetRun(t *testing.T) {
	_, session := mcpSession(t)

	text := callTool(t, session, "tapaudit_evaluate", map[string]any{
		"page_url":  "https://example.com/",
		"artifacts": overlapping(),
	})
	var rep report.Report
	if err := json.Unmarshal([]byte(text), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rep.ID == "" || len(rep.Result.Rows) != 1 {
		t.Fatalf("report: got %+v", rep)
	}
	if rep.Result.DisplayValue != "0% appropriately sized tap targets" {
		t.Errorf("DisplayValue: got %q", rep.Result.DisplayValue)
	}

	text = callTool(t, session, "tapaudit_get_run", map[string]any{"id": rep.ID})
	var run Run
	json.Unmarshal([]byte(text), &run)
	if run.PageURL != "https://example.com/" {
		t.Errorf("PageURL: got %q", run.PageURL)
	}

	text = callTool(t, session, "tapaudit_list_runs", map[string]any{"limit": 5})
	var runs []RunSummary
	json.Unmarshal([]byte(text), &runs)
	if len(runs) != 1 {
		t.Errorf("runs: got %d", len(runs))
	}
}

func TestMCP_GetRun_NotFound(t *testing.T) {
	_, session := mcpSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "tapaudit_get_run",
		Arguments: map[string]any{"id": "run_missing"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error")
	}
}
