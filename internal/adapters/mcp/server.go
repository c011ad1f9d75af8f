// Package mcpadapter exposes the classifier as Model Context Protocol tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/khmer-text-classifier/internal/core/domain"
	"github.com/kirillkom/khmer-text-classifier/internal/core/ports"
)

const (
	toolClassifyText  = "classify_text"
	toolRecentHistory = "recent_history"
)

type Tools struct {
	predictor ports.Predictor
	history   ports.HistoryReader
}

func NewTools(predictor ports.Predictor, history ports.HistoryReader) *Tools {
	return &Tools{predictor: predictor, history: history}
}

// NewServer registers the tools on a fresh MCP server. classify_text only
// runs inference; nothing is persisted.
func NewServer(tools *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("khmer-text-classifier", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(toolClassifyText,
		mcp.WithDescription("Classify Khmer text into Economic, Entertainment, Politic, Life, Sport or Technology and return the top 3 categories with scores."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Khmer text to classify")),
	), tools.ClassifyText)

	if tools.history != nil {
		s.AddTool(mcp.NewTool(toolRecentHistory,
			mcp.WithDescription("List the most recent stored classifications, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 10, max 100)")),
		), tools.RecentHistory)
	}
	return s
}

func (t *Tools) ClassifyText(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text content is required"), nil
	}

	preds, err := t.predictor.Predict(text)
	if err != nil {
		slog.Error("mcp_classify_failed", "error", err)
		return mcp.NewToolResultError("classification failed"), nil
	}
	return jsonResult(struct {
		PrimaryCategory string              `json:"primary_category"`
		TopPredictions  []domain.Prediction `json:"top_predictions"`
		ModelVersion    string              `json:"model_version"`
	}{
		PrimaryCategory: preds[0].CategoryName,
		TopPredictions:  preds,
		ModelVersion:    t.predictor.Version(),
	})
}

func (t *Tools) RecentHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.history.History(ctx, req.GetInt("limit", 0))
	if err != nil {
		slog.Error("mcp_history_failed", "error", err)
		return mcp.NewToolResultError("Failed to fetch history logs"), nil
	}
	return jsonResult(entries)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
