package appicon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KyleBrandon/neo/pkg/utils"
)

// iconResource returns the path of the bundle's .icns file.
func (r *Resolver) iconResource(ctx context.Context, bundle BundleLocation) (string, error) {
	name, err := r.iconFileName(ctx, bundle.Path)
	if err != nil {
		return "", err
	}

	iconPath := filepath.Join(bundle.Path, "Contents", "Resources", name)
	if !utils.Exists(iconPath) {
		return "", fmt.Errorf("%w: %s", ErrIconNotFound, iconPath)
	}

	return iconPath, nil
}

// iconFileName reads CFBundleIconFile from Info.plist. A missing or empty value falls back
// to AppIcon; only a failure to run the reader is an error.
func (r *Resolver) iconFileName(ctx context.Context, bundlePath string) (string, error) {
	plistPath := filepath.Join(bundlePath, "Contents", "Info.plist")

	result, err := r.runner.Run(ctx, "defaults", "read", plistPath, iconFileKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlistRead, err)
	}

	name := strings.TrimSpace(string(result.Stdout))
	if !result.Success() {
		slog.Debug("icon file key not readable, using default",
			"plist", plistPath,
			"exit_code", result.ExitCode,
			"stderr", strings.TrimSpace(string(result.Stderr)))
		name = ""
	}

	if name == "" {
		name = defaultIconName
	}
	if !strings.HasSuffix(name, iconSuffix) {
		name += iconSuffix
	}

	return name, nil
}
