package scope

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KyleBrandon/neo/pkg/utils"
	"gopkg.in/yaml.v3"
)

type scopeFile struct {
	Directories []Entry `yaml:"directories"`
}

// FileStore persists scope entries as YAML.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the persisted entries. A missing file is an empty scope.
func (fs *FileStore) Load() ([]Entry, error) {
	data, err := utils.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scope file: %w", err)
	}

	var sf scopeFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse scope file: %w", err)
	}

	return sf.Directories, nil
}

// Save replaces the persisted entries.
func (fs *FileStore) Save(entries []Entry) error {
	data, err := yaml.Marshal(scopeFile{Directories: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal scope: %w", err)
	}

	// Permissions:
	// 	Owner=rwx
	// 	Group=rx
	// 	Other=rx
	if err := utils.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create scope directory: %w", err)
	}

	// Owner read/write only, the file lists user folders.
	if err := utils.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write scope file: %w", err)
	}

	return nil
}

// Path returns the location of the backing file.
func (fs *FileStore) Path() string {
	return fs.path
}
