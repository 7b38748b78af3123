package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const dataURLPrefix = "data:image/png;base64,"

type toolCall struct {
	name string
	args map[string]any
}

// plannedCalls returns the tool calls for the requested flags, in execution order.
func plannedCalls(dir, app, check string) []toolCall {
	var calls []toolCall
	if dir != "" {
		calls = append(calls, toolCall{name: "allow_workspace_dir", args: map[string]any{"path": dir}})
	}
	if check != "" {
		calls = append(calls, toolCall{name: "check_workspace_path", args: map[string]any{"path": check}})
	}
	calls = append(calls, toolCall{name: "list_workspace_dirs", args: map[string]any{}})
	if app != "" {
		calls = append(calls, toolCall{name: "get_app_icon", args: map[string]any{"app_name": app}})
	}

	return calls
}

// decodeIcon extracts the PNG bytes from an icon data URL.
func decodeIcon(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, fmt.Errorf("not a PNG data URL")
	}

	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}

func main() {
	server := flag.String("server", "", "Server command to execute")
	dir := flag.String("dir", "", "Workspace directory to allow")
	check := flag.String("check", "", "Path to check against the workspace scope")
	app := flag.String("app", "", "Application name to fetch the icon for")
	out := flag.String("out", "", "Write the fetched icon PNG to this file")
	flag.Parse()

	if *server == "" {
		fmt.Println("Error: You must specify the --server <server> [--dir <folder>] [--app <name>]")
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("Initializing stdio client...")

	c, err := client.NewStdioMCPClient(*server, nil)
	if err != nil {
		slog.Error("Failed to create new client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "neo-client",
		Version: "1.0.0",
	}

	initResult, err := c.Initialize(ctx, initRequest)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	fmt.Printf(
		"Initialized with server: %s %s\n\n",
		initResult.ServerInfo.Name,
		initResult.ServerInfo.Version,
	)

	fmt.Println("Listing available tools...")
	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		log.Fatalf("Failed to list tools: %v", err)
	}
	for _, tool := range tools.Tools {
		fmt.Printf("- %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()

	for _, call := range plannedCalls(*dir, *app, *check) {
		req := mcp.CallToolRequest{}
		req.Params.Name = call.name
		req.Params.Arguments = call.args

		result, err := c.CallTool(ctx, req)
		if err != nil {
			slog.Error("Tool call failed", "tool", call.name, "error", err)
			os.Exit(1)
		}

		fmt.Printf("%s:\n", call.name)
		printToolResult(result)

		if call.name != "get_app_icon" || result.IsError || *out == "" {
			continue
		}

		textContent, ok := result.Content[0].(mcp.TextContent)
		if !ok {
			slog.Error("Invalid content returned from get_app_icon")
			os.Exit(1)
		}

		png, err := decodeIcon(textContent.Text)
		if err != nil {
			slog.Error("Failed to decode the icon", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, png, 0644); err != nil {
			slog.Error("Failed to save the icon", "path", *out, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Saved icon to %s\n", *out)
	}
}

// Helper function to print tool results
func printToolResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Print("error: ")
	}
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			fmt.Println(c.Text)
		case mcp.ImageContent:
			fmt.Printf("[image %s, %d base64 bytes]\n", c.MIMEType, len(c.Data))
		default:
			jsonBytes, _ := json.MarshalIndent(content, "", "  ")
			fmt.Println(string(jsonBytes))
		}
	}
}
