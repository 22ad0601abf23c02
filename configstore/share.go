package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const shareTTL = 30 * 24 * time.Hour

var (
	ErrInvalidGUID   = errors.New("invalid guid format")
	ErrShareNotFound = errors.New("shared config not found")
	ErrShareExpired  = errors.New("shared config has expired")
)

// SharedConfig is an opaque client-side config blob published under a
// share link. The server never inspects the payload.
type SharedConfig struct {
	Config    string    `json:"config"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareStore writes one JSON file per shared config, named by GUID.
type ShareStore struct {
	dir string
}

func NewShareStore(dir string) *ShareStore {
	return &ShareStore{dir: dir}
}

// Share stores the blob and returns the GUID it is retrievable under.
func (s *ShareStore) Share(config string) (string, SharedConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", SharedConfig{}, fmt.Errorf("create share dir: %w", err)
	}

	now := time.Now().UTC()
	doc := SharedConfig{
		Config:    config,
		CreatedAt: now,
		ExpiresAt: now.Add(shareTTL),
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", SharedConfig{}, err
	}

	guid := uuid.NewString()
	if err := os.WriteFile(s.filePath(guid), raw, 0o644); err != nil {
		return "", SharedConfig{}, fmt.Errorf("store shared config: %w", err)
	}
	return guid, doc, nil
}

// Get returns the shared config for guid. Expired documents are
// removed on read.
func (s *ShareStore) Get(guid string) (SharedConfig, error) {
	if _, err := uuid.Parse(guid); err != nil {
		return SharedConfig{}, ErrInvalidGUID
	}

	raw, err := os.ReadFile(s.filePath(guid))
	if errors.Is(err, os.ErrNotExist) {
		return SharedConfig{}, ErrShareNotFound
	}
	if err != nil {
		return SharedConfig{}, fmt.Errorf("read shared config: %w", err)
	}

	var doc SharedConfig
	if err := json.Unmarshal(raw, &doc); err != nil {
		return SharedConfig{}, fmt.Errorf("parse shared config: %w", err)
	}

	if time.Now().After(doc.ExpiresAt) {
		_ = os.Remove(s.filePath(guid))
		return SharedConfig{}, ErrShareExpired
	}
	return doc, nil
}

// CleanupExpired removes expired and unreadable share files, returning
// the count removed.
func (s *ShareStore) CleanupExpired() int {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0
	}

	now := time.Now()
	removed := 0
	for _, path := range matches {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var doc SharedConfig
		if err := json.Unmarshal(raw, &doc); err != nil || doc.ExpiresAt.Before(now) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed
}

func (s *ShareStore) filePath(guid string) string {
	return filepath.Join(s.dir, guid+".json")
}
