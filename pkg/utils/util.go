// Package utils contains file system abstraction methods for easier testing
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize resolves the path to an absolute, symlink free form. The path must exist.
func Canonicalize(inputPath string) (string, error) {
	if inputPath == "" {
		return "", errors.New("path is empty")
	}

	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", err
	}

	return filepath.Clean(resolved), nil
}

// ResolvePath resolves the path the way the OS will when a file is later created there.
// Symlinks in the deepest existing ancestor are resolved and the missing components are
// joined back on. A ".." among the missing components cannot be resolved and is an error.
func ResolvePath(inputPath string) (string, error) {
	if inputPath == "" {
		return "", errors.New("path is empty")
	}

	path := inputPath
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = wd + string(filepath.Separator) + path
	}

	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		// split without cleaning, cleaning would fold ".." over a symlink lexically
		trimmed := strings.TrimRight(path, string(filepath.Separator))
		i := strings.LastIndex(trimmed, string(filepath.Separator))
		if i < 0 {
			return "", err
		}

		base := trimmed[i+1:]
		path = trimmed[:i+1]

		switch base {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("cannot resolve .. below a missing directory: %s", inputPath)
		}
		missing = append([]string{base}, missing...)
	}
}

// CanonicalizeBestEffort resolves the path with ResolvePath and falls back to a cleaned
// absolute path when that fails.
func CanonicalizeBestEffort(inputPath string) string {
	if resolved, err := ResolvePath(inputPath); err == nil {
		return resolved
	}

	if absPath, err := filepath.Abs(inputPath); err == nil {
		return absPath
	}

	return filepath.Clean(inputPath)
}

// IsWithin reports whether path equals root or is one of its descendants.
// Comparison is by path component so "/home/bobby" is not within "/home/bob".
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}

	if rel == "." {
		return true
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func Remove(path string) error {
	return os.Remove(path)
}
