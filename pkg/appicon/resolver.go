// Package appicon resolves an installed application's icon into an embeddable PNG data URL.
//
// Resolution runs as a linear pipeline: locate the .app bundle, read the icon file name from
// its Info.plist, check the .icns resource exists, convert it with sips and encode the result.
// Every step fails fast; there are no retries.
package appicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/KyleBrandon/neo/pkg/sysexec"
	"github.com/KyleBrandon/neo/pkg/utils"
)

var (
	ErrInvalidAppName   = errors.New("invalid app name")
	ErrAppNotFound      = errors.New("app not found")
	ErrPlistRead        = errors.New("failed to read plist")
	ErrIconNotFound     = errors.New("icon file not found")
	ErrConversionFailed = errors.New("icon conversion failed")
)

const (
	DefaultIconSize = 32

	bundleSuffix    = ".app"
	iconSuffix      = ".icns"
	defaultIconName = "AppIcon"
	iconFileKey     = "CFBundleIconFile"
)

// DefaultSearchDirs are searched in order when the metadata index has no match.
var DefaultSearchDirs = []string{
	"/Applications",
	"/System/Applications",
	"/System/Applications/Utilities",
	"/System/Library/CoreServices",
}

// BundleLocation is the installed bundle found for a query name.
type BundleLocation struct {
	Query string
	Path  string
}

// ResolvedIcon is the result of a successful resolution.
type ResolvedIcon struct {
	Bundle   BundleLocation
	IconPath string
	Asset    IconAsset
}

// DataURL returns the icon as a data URL.
func (ri *ResolvedIcon) DataURL() string {
	return ri.Asset.DataURL()
}

// Resolver runs the icon pipeline. It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	runner     sysexec.Runner
	iconSize   int
	tempDir    string
	searchDirs []string

	// remove deletes staged files.
	remove func(string) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRunner sets the runner used for mdfind, defaults and sips.
func WithRunner(runner sysexec.Runner) Option {
	return func(r *Resolver) {
		r.runner = runner
	}
}

// WithIconSize sets the edge length of the square output image.
func WithIconSize(size int) Option {
	return func(r *Resolver) {
		if size > 0 {
			r.iconSize = size
		}
	}
}

// WithTempDir sets where converted images are staged.
func WithTempDir(dir string) Option {
	return func(r *Resolver) {
		r.tempDir = dir
	}
}

// WithSearchDirs replaces the well-known installation directories.
func WithSearchDirs(dirs ...string) Option {
	return func(r *Resolver) {
		r.searchDirs = slices.Clone(dirs)
	}
}

// NewResolver creates a Resolver that runs the host utilities without a timeout unless
// configured otherwise.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		runner:     sysexec.NewExecRunner(0),
		iconSize:   DefaultIconSize,
		tempDir:    os.TempDir(),
		searchDirs: slices.Clone(DefaultSearchDirs),
		remove:     utils.Remove,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve finds the application named appName and returns its icon.
func (r *Resolver) Resolve(ctx context.Context, appName string) (*ResolvedIcon, error) {
	if err := validateAppName(appName); err != nil {
		return nil, err
	}

	bundle, err := r.locate(ctx, appName)
	if err != nil {
		return nil, err
	}
	slog.Debug("located app bundle", "app", appName, "bundle", bundle.Path)

	iconPath, err := r.iconResource(ctx, bundle)
	if err != nil {
		return nil, err
	}

	asset, err := r.convert(ctx, appName, iconPath)
	if err != nil {
		return nil, err
	}

	return &ResolvedIcon{
		Bundle:   bundle,
		IconPath: iconPath,
		Asset:    asset,
	}, nil
}

func validateAppName(appName string) error {
	switch {
	case strings.TrimSpace(appName) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidAppName)
	case strings.ContainsAny(appName, "/\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidAppName, appName)
	case appName == "." || appName == "..":
		return fmt.Errorf("%w: %q", ErrInvalidAppName, appName)
	}

	return nil
}
