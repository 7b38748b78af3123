// Package neomcp exposes the host commands of the Neo desktop shell as MCP tools.
package neomcp

import (
	"context"
	"fmt"

	"github.com/KyleBrandon/neo/pkg/appicon"
	"github.com/KyleBrandon/neo/pkg/scope"
	"github.com/KyleBrandon/neo/pkg/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type NeoServer struct {
	ctx       context.Context
	McpServer *server.MCPServer
	scope     *scope.Scope
	grantor   *workspace.Grantor
	icons     *appicon.Resolver
}

func NewNeoServer(ctx context.Context, sc *scope.Scope, grantor *workspace.Grantor, icons *appicon.Resolver) *NeoServer {
	ns := &NeoServer{
		ctx:     ctx,
		scope:   sc,
		grantor: grantor,
		icons:   icons,
	}

	ns.McpServer = server.NewMCPServer("neo-server", "v1.0.0", server.WithToolCapabilities(true))
	ns.addTools()

	return ns
}

// addTools adds all the tools to the server
func (ns *NeoServer) addTools() {
	ns.NewGeminiAPIKeyTool()
	ns.NewOpenRouterAPIKeyTool()
	ns.NewAllowWorkspaceDirTool()
	ns.NewCheckWorkspacePathTool()
	ns.NewListWorkspaceDirsTool()
	ns.NewAppIconTool()
}

// errorResult reports a command failure to the caller as text.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf(format, args...)),
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
