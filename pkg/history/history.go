// Package history tracks recently opened vault paths in a small JSON file,
// most recent first.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MaxEntries caps how many paths the history retains.
const MaxEntries = 10

const fileMode = 0o600

// Store persists the recent-vaults list at a fixed location. The zero value
// is not usable; construct with NewStore.
type Store struct {
	path string
}

// NewStore returns a store backed by the given file.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns the recorded paths, most recent first. A missing file yields
// an empty list.
func (s *Store) List() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: failed to read %s: %w", s.path, err)
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("history: corrupt file %s: %w", s.path, err)
	}
	return paths, nil
}

// Add records a path at the front of the list, removing any previous
// occurrence and trimming the list to MaxEntries.
func (s *Store) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	paths, err := s.List()
	if err != nil {
		// Corrupt history is not worth failing an open for; start over.
		paths = nil
	}

	next := make([]string, 0, len(paths)+1)
	next = append(next, abs)
	for _, p := range paths {
		if p == abs {
			continue
		}
		next = append(next, p)
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}
	return s.save(next)
}

// Remove drops a path from the list. Removing an absent path is a no-op.
func (s *Store) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	paths, err := s.List()
	if err != nil {
		return err
	}
	next := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == abs {
			continue
		}
		next = append(next, p)
	}
	if len(next) == len(paths) {
		return nil
	}
	return s.save(next)
}

// Clear empties the history.
func (s *Store) Clear() error {
	return s.save([]string{})
}

func (s *Store) save(paths []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("history: failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return fmt.Errorf("history: failed to encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, fileMode); err != nil {
		return fmt.Errorf("history: failed to write %s: %w", s.path, err)
	}
	return nil
}
