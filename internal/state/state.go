// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package state persists the set of processed platform-native IDs between
// pipeline runs. An ID is added only after every stage of an item has
// completed, or when an existing archive folder is discovered for it; once
// present, the item is never rediscovered.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"
)

// stateFile is the on-disk shape: a mapping with one recognized key.
type stateFile struct {
	ProcessedIDs []string `yaml:"processed_ids"`
}

// Store tracks processed content IDs. It is a single-writer, single-process
// structure: concurrent pipeline runs are undefined behavior and must be
// serialized by the operator.
type Store struct {
	path string
	ids  map[string]struct{}
}

// Load reads the state file at path. A missing or unparseable file yields
// an empty store rather than an error, so a fresh checkout or a corrupted
// file never aborts a run; the scan self-heals IDs from existing folders.
func Load(path string) *Store {
	s := &Store{path: path, ids: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var f stateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(os.Stderr, "warning: state file %s unreadable, starting empty: %v\n", path, err)
		return s
	}

	for _, id := range f.ProcessedIDs {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

// Contains reports whether id has already been fully processed.
func (s *Store) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add marks id as processed. Adding an existing ID is a no-op; IDs are
// never removed.
func (s *Store) Add(id string) {
	if id == "" {
		return
	}
	s.ids[id] = struct{}{}
}

// Len returns the number of tracked IDs.
func (s *Store) Len() int {
	return len(s.ids)
}

// Save writes the store back to its file atomically (temp then rename),
// creating parent directories as needed. IDs are written sorted so the
// file diffs cleanly between runs.
func (s *Store) Save() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := yaml.Marshal(stateFile{ProcessedIDs: ids})
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing state: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}
