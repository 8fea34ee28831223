// Package catalog persists the game catalog as a single JSON document and keeps a
// day-granular in-memory snapshot of it for the read path.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/repackdex/repackdex/internal/domain"
)

// Store persists the ordered catalog wholesale.
type Store interface {
	Load() ([]domain.CatalogEntry, error)
	Save(entries []domain.CatalogEntry) error
	// ModTime reports when the store was last written; false when it does not exist.
	ModTime() (time.Time, bool)
}

// FileStore keeps the catalog as a 2-space indented JSON array on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the catalog. A missing, empty or malformed document loads as an
// empty catalog; only I/O failures are returned as errors.
func (s *FileStore) Load() ([]domain.CatalogEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.CatalogEntry{}, nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}
	return decodeEntries(data), nil
}

func decodeEntries(data []byte) []domain.CatalogEntry {
	entries := []domain.CatalogEntry{}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return entries
	}

	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		var entry domain.CatalogEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if entry.ID == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		if entry.Slug == "" {
			entry.Slug = entry.ID
		}
		entries = append(entries, entry)
	}
	return entries
}

// Save replaces the document atomically: the new content is written to a temp
// file in the same directory, synced, then renamed over the target.
func (s *FileStore) Save(entries []domain.CatalogEntry) (err error) {
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err = enc.Encode(entries); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp catalog: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace catalog %s: %w", s.path, err)
	}
	return nil
}

// ModTime returns the document's modification time.
func (s *FileStore) ModTime() (time.Time, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
