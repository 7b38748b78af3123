package neomcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/KyleBrandon/neo/pkg/dto"
	"github.com/KyleBrandon/neo/pkg/utils"
	"github.com/mark3labs/mcp-go/mcp"
)

type AllowWorkspaceDirRequest struct {
	Path string `json:"path" mcp:"Path of the directory the user selected"`
}

type CheckWorkspacePathRequest struct {
	Path string `json:"path" mcp:"Absolute path to check against the workspace scope"`
}

type ListWorkspaceDirsRequest struct{}

func (ns *NeoServer) NewAllowWorkspaceDirTool() {
	tool := mcp.NewTool(
		"allow_workspace_dir",
		mcp.WithDescription("Allow file access to a user selected workspace directory and everything beneath it"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the directory the user selected"),
		),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.AllowWorkspaceDir))
}

func (ns *NeoServer) NewCheckWorkspacePathTool() {
	tool := mcp.NewTool(
		"check_workspace_path",
		mcp.WithDescription("Check whether a path is inside an allowed workspace directory"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to check against the workspace scope"),
		),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.CheckWorkspacePath))
}

func (ns *NeoServer) NewListWorkspaceDirsTool() {
	tool := mcp.NewTool(
		"list_workspace_dirs",
		mcp.WithDescription("List the directories currently allowed for file access"),
	)

	ns.McpServer.AddTool(tool, mcp.NewTypedToolHandler(ns.ListWorkspaceDirs))
}

// AllowWorkspaceDir validates the selected directory and adds it to the scope
func (ns *NeoServer) AllowWorkspaceDir(ctx context.Context, req mcp.CallToolRequest, params AllowWorkspaceDirRequest) (*mcp.CallToolResult, error) {
	grant, err := ns.grantor.Grant(params.Path)
	if err != nil {
		return errorResult("%v", err), nil
	}

	return textResult(fmt.Sprintf("Workspace directory allowed: %s", grant.Path)), nil
}

// CheckWorkspacePath reports whether a later file operation on the path would be permitted
func (ns *NeoServer) CheckWorkspacePath(ctx context.Context, req mcp.CallToolRequest, params CheckWorkspacePathRequest) (*mcp.CallToolResult, error) {
	if !filepath.IsAbs(params.Path) {
		return errorResult("path must be absolute: %s", params.Path), nil
	}

	access := dto.WorkspaceAccess{Path: filepath.Clean(params.Path)}

	path, err := utils.ResolvePath(params.Path)
	if err != nil {
		slog.Warn("cannot resolve path, denying", "path", params.Path, "error", err)
	} else {
		access.Path = path
		access.Allowed = ns.scope.IsAllowed(path)
	}

	resultJSON, _ := json.MarshalIndent(access, "", "  ")
	return textResult(string(resultJSON)), nil
}

// ListWorkspaceDirs returns every directory in the scope
func (ns *NeoServer) ListWorkspaceDirs(ctx context.Context, req mcp.CallToolRequest, params ListWorkspaceDirsRequest) (*mcp.CallToolResult, error) {
	dirs := make([]dto.WorkspaceDir, 0)
	for _, e := range ns.scope.Entries() {
		dirs = append(dirs, dto.WorkspaceDir{Path: e.Path, Recursive: e.Recursive})
	}

	resultJSON, _ := json.MarshalIndent(dirs, "", "  ")
	return textResult(string(resultJSON)), nil
}
