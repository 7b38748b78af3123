// Package workspace grants the application access to a directory the user selected.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/KyleBrandon/neo/pkg/scope"
	"github.com/KyleBrandon/neo/pkg/utils"
)

var (
	ErrInvalidPath        = errors.New("invalid path")
	ErrNotADirectory      = errors.New("selected path is not a directory")
	ErrOutsideAllowedRoot = errors.New("selected folder must be inside your home directory")
	ErrRegistrationFailed = errors.New("failed to allow directory")
)

// DirectoryGrant is a directory that has been accepted into the scope.
// Path is absolute, symlink free and known to be a directory.
type DirectoryGrant struct {
	Path string `json:"path"`
}

// Grantor validates user selected directories and records them in a scope registry.
type Grantor struct {
	registry    scope.Registry
	trustedRoot string
}

// NewGrantor creates a Grantor. When trustedRoot is empty, directories anywhere on disk
// are accepted.
func NewGrantor(registry scope.Registry, trustedRoot string) *Grantor {
	g := &Grantor{registry: registry}
	if trustedRoot != "" {
		g.trustedRoot = utils.CanonicalizeBestEffort(trustedRoot)
	}

	return g
}

// TrustedRoot returns the canonical containment root, or "" when none is enforced.
func (g *Grantor) TrustedRoot() string {
	return g.trustedRoot
}

// Grant allows rawPath and everything beneath it. Granting the same directory again succeeds.
func (g *Grantor) Grant(rawPath string) (DirectoryGrant, error) {
	canonical, err := utils.Canonicalize(rawPath)
	if err != nil {
		slog.Warn("failed to resolve workspace path", "path", rawPath, "error", err)
		return DirectoryGrant{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	info, err := utils.Stat(canonical)
	if err != nil {
		return DirectoryGrant{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return DirectoryGrant{}, fmt.Errorf("%w: %s", ErrNotADirectory, canonical)
	}

	if g.trustedRoot != "" && !utils.IsWithin(g.trustedRoot, canonical) {
		slog.Warn("workspace path outside trusted root", "path", canonical, "root", g.trustedRoot)
		return DirectoryGrant{}, fmt.Errorf("%w: %s", ErrOutsideAllowedRoot, canonical)
	}

	if err := g.registry.AllowDirectory(canonical, true); err != nil {
		slog.Error("failed to register workspace directory", "path", canonical, "error", err)
		return DirectoryGrant{}, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	slog.Info("workspace directory allowed", "path", canonical)

	return DirectoryGrant{Path: canonical}, nil
}
