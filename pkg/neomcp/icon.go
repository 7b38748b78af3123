package neomcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
)

type GetAppIconRequest struct {
	AppName string `json:"app_name" mcp:"Display name of the installed application"`
}

func (ns *NeoServer) NewAppIconTool() {
	tool := mcp.NewTool(
		"get_app_icon",
		mcp.WithDescription("Get the icon of an installed macOS application as a 32x32 PNG data URL"),
		mcp.WithString("app_name",
			mcp.Required(),
			mcp.Description("Display name of the installed application, e.g. Calculator"),
		),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.GetAppIcon))
}

// GetAppIcon resolves the application's icon. The first content block is the data URL,
// the second carries the same PNG as image content.
func (ns *NeoServer) GetAppIcon(ctx context.Context, req mcp.CallToolRequest, params GetAppIconRequest) (*mcp.CallToolResult, error) {
	icon, err := ns.icons.Resolve(ctx, params.AppName)
	if err != nil {
		slog.Warn("failed to resolve app icon", "app", params.AppName, "error", err)
		return errorResult("%v", err), nil
	}

	slog.Info("resolved app icon", "app", params.AppName, "bundle", icon.Bundle.Path, "bytes", len(icon.Asset.Data))

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(icon.DataURL()),
			mcp.NewImageContent(icon.Asset.Base64(), icon.Asset.MediaType),
		},
	}, nil
}
