package appicon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KyleBrandon/neo/pkg/utils"
)

// queryEscaper escapes a value placed inside a quoted Spotlight query string.
// '*' is a wildcard in query values so it is escaped too.
var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`*`, `\*`,
)

func escapeQueryValue(value string) string {
	return queryEscaper.Replace(value)
}

func displayNameQuery(appName string) string {
	return fmt.Sprintf("kMDItemDisplayName == '%s' && kMDItemKind == 'Application'", escapeQueryValue(appName))
}

func fsNameQuery(appName string) string {
	return fmt.Sprintf("kMDItemFSName == '%s%s' && kMDItemKind == 'Application'", escapeQueryValue(appName), bundleSuffix)
}

// locate asks the metadata index by display name, then by bundle file name, and finally
// checks the well-known installation directories.
func (r *Resolver) locate(ctx context.Context, appName string) (BundleLocation, error) {
	for _, query := range []string{displayNameQuery(appName), fsNameQuery(appName)} {
		if path, ok := r.search(ctx, query); ok {
			return BundleLocation{Query: appName, Path: path}, nil
		}
	}

	for _, dir := range r.searchDirs {
		candidate := filepath.Join(dir, appName+bundleSuffix)
		if utils.Exists(candidate) {
			return BundleLocation{Query: appName, Path: candidate}, nil
		}
	}

	return BundleLocation{}, fmt.Errorf("%w: %s", ErrAppNotFound, appName)
}

// search runs mdfind and returns the first result that is an app bundle. A failed search
// counts as no result so the remaining lookups still run.
func (r *Resolver) search(ctx context.Context, query string) (string, bool) {
	result, err := r.runner.Run(ctx, "mdfind", query)
	if err != nil {
		slog.Warn("metadata search failed", "query", query, "error", err)
		return "", false
	}
	if !result.Success() {
		slog.Warn("metadata search exited with error",
			"query", query,
			"exit_code", result.ExitCode,
			"stderr", strings.TrimSpace(string(result.Stderr)))
		return "", false
	}

	for line := range strings.SplitSeq(string(result.Stdout), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasSuffix(line, bundleSuffix) {
			return line, true
		}
	}

	return "", false
}
