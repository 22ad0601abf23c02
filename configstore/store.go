// Package configstore persists layout configs between sessions and
// serves the 30-day config share links.
package configstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/akulinich/overdraft/layout"
)

// Store keeps one layout config per sheet in a single YAML file.
type Store struct {
	mu      sync.Mutex
	path    string
	layouts map[string]layout.Config
}

// Key builds the sheet identifier layouts are stored under.
func Key(spreadsheetID, gid string) string {
	return spreadsheetID + ":" + gid
}

// Open loads the store from path, starting empty if the file does not
// exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, layouts: make(map[string]layout.Config)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read layout store: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.layouts); err != nil {
		return nil, fmt.Errorf("parse layout store: %w", err)
	}
	return s, nil
}

func (s *Store) Get(key string) (layout.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.layouts[key]
	return cfg, ok
}

func (s *Store) Put(key string, cfg layout.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[key] = cfg
	return s.flush()
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.layouts, key)
	return s.flush()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layouts)
}

// flush writes the whole map; the store is small. Caller holds the
// lock.
func (s *Store) flush() error {
	raw, err := yaml.Marshal(s.layouts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, raw, 0o644)
}
