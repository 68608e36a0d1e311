package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mullnote/mull/internal/engine"
	"github.com/mullnote/mull/internal/store"
)

func setupServer(t *testing.T) (*server.MCPServer, *engine.Engine) {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(st, nil)
	srv := NewServer(ServerConfig{Engine: eng, Store: st, Version: "test"})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	return srv, eng
}

// callTool invokes an MCP tool through the server's JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	raw := mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	})
	result := srv.HandleMessage(context.Background(), raw)

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return callResult
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestCaptureTool(t *testing.T) {
	srv, eng := setupServer(t)

	result := callTool(t, srv, "mull_capture", map[string]interface{}{
		"text": "I am happy and grateful today",
		"tags": "mood, daily",
	})
	if result.IsError {
		t.Fatalf("capture failed: %s", getTextContent(t, result))
	}

	var captured map[string]interface{}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &captured); err != nil {
		t.Fatalf("parsing capture result: %v", err)
	}
	id, _ := captured["id"].(string)
	if id == "" {
		t.Fatal("capture result has no id")
	}
	if captured["valence"].(float64) <= 0 {
		t.Errorf("valence = %v for a positive note, want > 0", captured["valence"])
	}

	n, err := eng.Note(context.Background(), id)
	if err != nil {
		t.Fatalf("captured note not stored: %v", err)
	}
	if len(n.Tags) != 2 {
		t.Errorf("tags = %v, want 2 parsed tags", n.Tags)
	}
}

func TestCaptureToolRejectsEmptyText(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "mull_capture", map[string]interface{}{"text": "   "})
	if !result.IsError {
		t.Fatal("expected error for empty text")
	}
}

func TestEmotionsTool(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "mull_emotions", map[string]interface{}{
		"text": "I was happy and grateful\nnow everything is terrible and sad",
	})
	if result.IsError {
		t.Fatalf("emotions failed: %s", getTextContent(t, result))
	}

	var report engine.EmotionReport
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &report); err != nil {
		t.Fatalf("parsing emotions result: %v", err)
	}
	if !report.Shift.Detected {
		t.Error("no shift detected across opposite halves")
	}

	missing := callTool(t, srv, "mull_emotions", map[string]interface{}{})
	if !missing.IsError {
		t.Fatal("expected error when neither text nor id is given")
	}
}

func TestBiasesTool(t *testing.T) {
	srv, _ := setupServer(t)

	result := callTool(t, srv, "mull_biases", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("biases failed: %s", getTextContent(t, result))
	}

	var signals map[string]float64
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &signals); err != nil {
		t.Fatalf("parsing biases result: %v", err)
	}
	if len(signals) != 5 {
		t.Errorf("got %d signals, want 5: %v", len(signals), signals)
	}
}

func TestLoopsTool(t *testing.T) {
	srv, _ := setupServer(t)

	for i := 0; i < 3; i++ {
		result := callTool(t, srv, "mull_capture", map[string]interface{}{
			"text": "The project deadline is stressing me out",
		})
		if result.IsError {
			t.Fatalf("capture failed: %s", getTextContent(t, result))
		}
	}

	result := callTool(t, srv, "mull_loops", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("loops failed: %s", getTextContent(t, result))
	}

	var payload struct {
		Count    int `json:"count"`
		Clusters []struct {
			NoteIDs []string `json:"NoteIDs"`
			Topic   string   `json:"Topic"`
		} `json:"clusters"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &payload); err != nil {
		t.Fatalf("parsing loops result: %v", err)
	}
	if payload.Count != 1 || len(payload.Clusters) != 1 {
		t.Fatalf("count = %d, want 1 cluster", payload.Count)
	}
	if len(payload.Clusters[0].NoteIDs) != 3 {
		t.Errorf("cluster has %d members, want 3", len(payload.Clusters[0].NoteIDs))
	}
}

func TestPruneToolDryRunAndApply(t *testing.T) {
	srv, eng := setupServer(t)
	ctx := context.Background()

	capture := callTool(t, srv, "mull_capture", map[string]interface{}{"text": "test"})
	if capture.IsError {
		t.Fatalf("capture failed: %s", getTextContent(t, capture))
	}

	dry := callTool(t, srv, "mull_prune", map[string]interface{}{})
	if dry.IsError {
		t.Fatalf("dry-run prune failed: %s", getTextContent(t, dry))
	}
	var dryResult struct {
		Count   int  `json:"count"`
		Applied bool `json:"applied"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, dry)), &dryResult); err != nil {
		t.Fatalf("parsing prune result: %v", err)
	}
	if dryResult.Count != 1 || dryResult.Applied {
		t.Fatalf("dry run = %+v, want 1 unapplied candidate", dryResult)
	}

	stats, err := eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NoteCount != 1 {
		t.Fatalf("dry run deleted notes: count = %d", stats.NoteCount)
	}

	applied := callTool(t, srv, "mull_prune", map[string]interface{}{"apply": true})
	if applied.IsError {
		t.Fatalf("apply prune failed: %s", getTextContent(t, applied))
	}
	var applyResult struct {
		Applied bool `json:"applied"`
		Deleted int  `json:"deleted"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, applied)), &applyResult); err != nil {
		t.Fatalf("parsing prune result: %v", err)
	}
	if !applyResult.Applied || applyResult.Deleted != 1 {
		t.Fatalf("apply = %+v, want 1 deleted", applyResult)
	}

	stats, err = eng.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NoteCount != 0 {
		t.Errorf("note count = %d after apply, want 0", stats.NoteCount)
	}
}
