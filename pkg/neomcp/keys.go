package neomcp

import (
	"context"
	"log/slog"

	"github.com/KyleBrandon/neo/pkg/apikeys"
	"github.com/mark3labs/mcp-go/mcp"
)

type APIKeyRequest struct{}

func (ns *NeoServer) NewGeminiAPIKeyTool() {
	tool := mcp.NewTool(
		"get_gemini_api_key",
		mcp.WithDescription("Get the Gemini API key from the environment"),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.GetGeminiAPIKey))
}

func (ns *NeoServer) NewOpenRouterAPIKeyTool() {
	tool := mcp.NewTool(
		"get_openrouter_api_key",
		mcp.WithDescription("Get the OpenRouter API key from the environment"),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.GetOpenRouterAPIKey))
}

// GetGeminiAPIKey returns the value of GEMINI_API_KEY
func (ns *NeoServer) GetGeminiAPIKey(ctx context.Context, req mcp.CallToolRequest, params APIKeyRequest) (*mcp.CallToolResult, error) {
	return apiKeyResult(apikeys.Gemini())
}

// GetOpenRouterAPIKey returns the value of OPENROUTER_API_KEY
func (ns *NeoServer) GetOpenRouterAPIKey(ctx context.Context, req mcp.CallToolRequest, params APIKeyRequest) (*mcp.CallToolResult, error) {
	return apiKeyResult(apikeys.OpenRouter())
}

func apiKeyResult(key string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		slog.Warn("api key requested but not configured", "error", err)
		return errorResult("%v", err), nil
	}

	return textResult(key), nil
}
