package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repackdex/repackdex/internal/domain"
)

func TestFileStoreLoadMissingIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "db.json"))
	entries, err := s.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
	if _, ok := s.ModTime(); ok {
		t.Fatalf("missing file should have no mod time")
	}
}

func TestFileStoreLoadMalformedIsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "{not json",
		"object":  `{"id":"a"}`,
		"blank":   "  \n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			entries, err := NewFileStore(path).Load()
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if len(entries) != 0 {
				t.Fatalf("expected empty catalog, got %d entries", len(entries))
			}
		})
	}
}

func TestFileStoreLoadDropsInvalidAndDuplicateEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	content := `[
  {"id":"game-a","slug":"game-a","title":"Game A","link":"https://x/game-a/","image":null,"year":null},
  {"title":"No ID"},
  {"id":"game-b","title":"Game B","link":"https://x/game-b/","image":"https://img/b.jpg","year":2019},
  {"id":"game-a","title":"Game A again"},
  {"id":"game-c","year":"not a number"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %#v", len(entries), entries)
	}
	if entries[0].Title != "Game A" {
		t.Fatalf("first occurrence should win, got %q", entries[0].Title)
	}
	if entries[1].Slug != "game-b" {
		t.Fatalf("missing slug should default to id, got %q", entries[1].Slug)
	}
	if entries[1].Year == nil || *entries[1].Year != 2019 {
		t.Fatalf("unexpected year %v", entries[1].Year)
	}
}

func TestFileStoreSaveWritesIndentedArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "db.json")
	s := NewFileStore(path)

	entries := []domain.CatalogEntry{
		{ID: "game-a", Slug: "game-a", Title: "Game A", Link: "https://x/game-a/?a=1&b=2"},
		{ID: "game-b", Slug: "game-b", Title: "Game B", Link: "https://x/game-b/", Image: domain.StringPtr("https://img/b.jpg"), Year: domain.IntPtr(2021)},
	}
	if err := s.Save(entries); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	if !strings.HasPrefix(text, "[\n  {\n    \"id\": \"game-a\"") {
		t.Fatalf("unexpected layout:\n%s", text)
	}
	if !strings.Contains(text, `"image": null`) || !strings.Contains(text, `"year": null`) {
		t.Fatalf("unknown fields should serialize as null:\n%s", text)
	}
	if !strings.Contains(text, "a=1&b=2") {
		t.Fatalf("links should not be HTML escaped:\n%s", text)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "nested", ".*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(loaded) != 2 || *loaded[1].Image != "https://img/b.jpg" {
		t.Fatalf("unexpected reload %#v", loaded)
	}
	if _, ok := s.ModTime(); !ok {
		t.Fatalf("expected mod time after save")
	}
}

func TestFileStoreSaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	if err := NewFileStore(path).Save(nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Fatalf("expected empty array, got %q", raw)
	}
}
