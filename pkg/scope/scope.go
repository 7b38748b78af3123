// Package scope holds the process-wide set of directories that file operations may touch.
package scope

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KyleBrandon/neo/pkg/utils"
)

// Registry is the permission registry that workspace grants are recorded in.
// Implementations must be safe for concurrent use.
type Registry interface {
	AllowDirectory(path string, recursive bool) error
}

// Entry is a single allowed directory.
type Entry struct {
	Path      string `yaml:"path" json:"path"`
	Recursive bool   `yaml:"recursive" json:"recursive"`
}

// Store persists scope entries across process restarts.
type Store interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// Scope is an in-memory Registry, optionally backed by a Store.
type Scope struct {
	mu      sync.RWMutex
	entries map[string]bool
	store   Store
}

// Option configures a Scope.
type Option func(*Scope)

// WithStore persists every change to store.
func WithStore(store Store) Option {
	return func(s *Scope) {
		s.store = store
	}
}

// New creates a Scope. When a store is configured its entries are loaded first.
func New(opts ...Option) (*Scope, error) {
	s := &Scope{
		entries: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store != nil {
		entries, err := s.store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load scope: %w", err)
		}

		for _, e := range entries {
			path := filepath.Clean(e.Path)
			s.entries[path] = s.entries[path] || e.Recursive
		}
		slog.Info("loaded workspace scope", "entries", len(s.entries))
	}

	return s, nil
}

// AllowDirectory adds path to the scope. A recursive grant covers every present and future
// descendant. Allowing an already allowed directory succeeds; a recursive grant is never
// downgraded by a later non-recursive one.
func (s *Scope) AllowDirectory(path string, recursive bool) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("scope path must be absolute: %s", path)
	}
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.entries[path]
	s.entries[path] = previous || recursive

	if s.store == nil {
		return nil
	}

	if err := s.store.Save(s.snapshot()); err != nil {
		// keep memory and disk in agreement
		if existed {
			s.entries[path] = previous
		} else {
			delete(s.entries, path)
		}
		return fmt.Errorf("failed to persist scope: %w", err)
	}

	return nil
}

// IsAllowed reports whether path falls inside the scope. Recursive entries admit all
// descendants, non-recursive entries admit the directory and its direct children.
func (s *Scope) IsAllowed(path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	path = filepath.Clean(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for dir, recursive := range s.entries {
		if recursive {
			if utils.IsWithin(dir, path) {
				return true
			}
			continue
		}

		if path == dir || filepath.Dir(path) == dir {
			return true
		}
	}

	return false
}

// Entries returns the allowed directories sorted by path.
func (s *Scope) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// snapshot must be called with the lock held.
func (s *Scope) snapshot() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	for path, recursive := range s.entries {
		entries = append(entries, Entry{Path: path, Recursive: recursive})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries
}
