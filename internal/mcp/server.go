// Package mcp provides a Model Context Protocol server for mull.
//
// It exposes note capture and the batch analyses (emotions, biases, loops,
// pruning) as MCP tools, plus store statistics and recent notes as MCP
// resources, over stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mullnote/mull/internal/engine"
	"github.com/mullnote/mull/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Engine  *engine.Engine
	Store   store.Store
	Version string
}

// dbMu serializes all MCP handlers that touch the database.
// The mcp-go library dispatches handlers concurrently via goroutines, and
// SQLite supports only one writer at a time; the mutex also keeps a capture
// visible to any analysis requested right after it.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all mull tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"mull",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerCaptureTool(s, cfg.Engine)
	registerEmotionsTool(s, cfg.Engine)
	registerBiasesTool(s, cfg.Engine)
	registerLoopsTool(s, cfg.Engine)
	registerPruneTool(s, cfg.Engine)

	registerStatsResource(s, cfg.Store)
	registerRecentResource(s, cfg.Store)

	return s
}

// --- Tools ---

func registerCaptureTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("mull_capture",
		mcp.WithDescription("Capture a self-reflection note. The note is stored with an emotion score (valence/arousal) attached."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The note text"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags (e.g. 'work,mood')"),
		),
		mcp.WithString("modality",
			mcp.Description("How the note was authored: text or voice (default: text)"),
			mcp.Enum("text", "voice"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		if strings.TrimSpace(text) == "" {
			return mcp.NewToolResultError("note text cannot be empty"), nil
		}

		var tags []string
		if raw, err := req.RequireString("tags"); err == nil && raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		modality := store.ModalityText
		if raw, err := req.RequireString("modality"); err == nil && raw != "" {
			modality, err = store.ParseModality(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid modality: %v", err)), nil
			}
		}

		n, err := eng.Capture(ctx, text, tags, modality)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("capture error: %v", err)), nil
		}

		result := map[string]interface{}{
			"id":       n.ID,
			"valence":  n.Emotion.Valence,
			"arousal":  n.Emotion.Arousal,
			"modality": n.Modality,
			"message":  "Note captured",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerEmotionsTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("mull_emotions",
		mcp.WithDescription("Analyze emotional signals of a text or a stored note: valence/arousal, per-emotion breakdown, intensity, life-domain context, and first-half/second-half shift."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("text",
			mcp.Description("Text to analyze directly"),
		),
		mcp.WithString("id",
			mcp.Description("ID of a stored note to analyze (ignored when text is given)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		var report engine.EmotionReport
		if text, err := req.RequireString("text"); err == nil && text != "" {
			report = eng.AnalyzeEmotions(text)
		} else if id, err := req.RequireString("id"); err == nil && id != "" {
			report, err = eng.AnalyzeNoteEmotions(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("emotions error: %v", err)), nil
			}
		} else {
			return mcp.NewToolResultError("either text or id is required"), nil
		}

		data, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerBiasesTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("mull_biases",
		mcp.WithDescription("Evaluate the whole note collection for cognitive-bias proxy signals: confirmation, availability, anchoring, loss aversion, and sunk cost. Each signal is 0.0-1.0."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		signals, err := eng.EvaluateBiases(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("biases error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(signals, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerLoopsTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("mull_loops",
		mcp.WithDescription("Detect recurring thought loops: clusters of similar notes written within a 7-day window, sorted by loop strength."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		clusters, err := eng.ClusterLoops(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loops error: %v", err)), nil
		}

		result := map[string]interface{}{
			"clusters": clusters,
			"count":    len(clusters),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerPruneTool(s *server.MCPServer, eng *engine.Engine) {
	tool := mcp.NewTool("mull_prune",
		mcp.WithDescription("Rank notes by forgettability. Without apply this is a dry run listing candidates with reasons; with apply=true the whole candidate batch is deleted atomically."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithBoolean("apply",
			mcp.Description("Delete the candidate batch (default: false, dry run)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		candidates, err := eng.PruneCandidates(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("prune error: %v", err)), nil
		}

		apply := req.GetBool("apply", false)
		result := map[string]interface{}{
			"candidates": candidates,
			"count":      len(candidates),
			"applied":    false,
		}
		if apply {
			deleted, err := eng.ExecutePrune(ctx, candidates)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("prune error: %v", err)), nil
			}
			result["applied"] = true
			result["deleted"] = deleted
		}

		data, _ := json.MarshalIndent(result, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// --- Resources ---

func registerStatsResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"mull://stats",
		"Store Statistics",
		mcp.WithResourceDescription("Note counts, scored counts, voice counts, and database size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading stats resource: %w", err)
		}

		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerRecentResource(s *server.MCPServer, st store.Store) {
	resource := mcp.NewResource(
		"mull://recent",
		"Recent Notes",
		mcp.WithResourceDescription("The twenty most recently captured notes with their emotion scores."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		notes, err := st.ListNotes(ctx, store.ListOpts{Limit: 20})
		if err != nil {
			return nil, fmt.Errorf("reading recent resource: %w", err)
		}

		payload := map[string]interface{}{
			"notes": notes,
			"count": len(notes),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
