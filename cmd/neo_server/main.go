package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/KyleBrandon/neo/pkg/appicon"
	"github.com/KyleBrandon/neo/pkg/config"
	"github.com/KyleBrandon/neo/pkg/neomcp"
	"github.com/KyleBrandon/neo/pkg/scope"
	"github.com/KyleBrandon/neo/pkg/sysexec"
	"github.com/KyleBrandon/neo/pkg/workspace"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

type flags struct {
	trustedRoot string
	scopeFile   string
	logLevel    string
	logFile     string
	iconSize    int

	unrestricted bool
}

func parseFlags(args []string) (flags, error) {
	var f flags

	fs := flag.NewFlagSet("neo-server", flag.ContinueOnError)
	fs.StringVar(&f.trustedRoot, "trusted-root", "", "Directory that workspace grants must stay inside (defaults to $HOME)")
	fs.StringVar(&f.scopeFile, "scope-file", "", "YAML file that persists allowed workspace directories (optional)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&f.logFile, "log-file", "", "Log file path (optional, logs to stderr if not specified)")
	fs.IntVar(&f.iconSize, "icon-size", 0, "Edge length in pixels of resolved app icons")
	fs.BoolVar(&f.unrestricted, "unrestricted", false, "Allow workspace grants anywhere (same as running with HOME unset)")

	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}

	return f, nil
}

// applyFlags overrides environment values with any flags that were set.
func applyFlags(cfg config.Config, f flags) (config.Config, error) {
	if f.unrestricted && f.trustedRoot != "" {
		return cfg, errors.New("-unrestricted and -trusted-root are mutually exclusive")
	}
	if f.trustedRoot != "" {
		cfg.TrustedRoot = f.trustedRoot
	}
	if f.unrestricted {
		cfg.TrustedRoot = ""
	}
	if f.scopeFile != "" {
		cfg.ScopeFile = f.scopeFile
	}
	if f.logLevel != "" {
		cfg.LogLevel = strings.ToUpper(f.logLevel)
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.iconSize != 0 {
		cfg.IconSize = f.iconSize
	}

	return cfg, cfg.Validate()
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	// Load environment variables if available
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables and command line args")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err = applyFlags(cfg, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Configure logging
	var logOutput io.Writer = os.Stderr
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		logOutput = file
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	ns, err := buildServer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create Neo server", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Neo MCP Server",
		"trusted_root", cfg.TrustedRoot,
		"scope_file", cfg.ScopeFile,
		"log_level", cfg.LogLevel,
		"icon_size", cfg.IconSize,
		"command_timeout", cfg.CommandTimeout)

	if err := server.ServeStdio(ns.McpServer); err != nil {
		slog.Error("Neo MCP Server failed", "error", err)
		os.Exit(1)
	}
}

func buildServer(ctx context.Context, cfg config.Config) (*neomcp.NeoServer, error) {
	var opts []scope.Option
	if cfg.ScopeFile != "" {
		opts = append(opts, scope.WithStore(scope.NewFileStore(cfg.ScopeFile)))
	}

	sc, err := scope.New(opts...)
	if err != nil {
		return nil, err
	}

	if cfg.TrustedRoot == "" {
		slog.Warn("No trusted root known, workspace grants are not restricted")
	}

	grantor := workspace.NewGrantor(sc, cfg.TrustedRoot)
	resolver := appicon.NewResolver(
		appicon.WithRunner(sysexec.NewExecRunner(cfg.CommandTimeout)),
		appicon.WithIconSize(cfg.IconSize),
	)

	return neomcp.NewNeoServer(ctx, sc, grantor, resolver), nil
}
