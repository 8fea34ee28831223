package sources

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRegistryYAMLAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: fitgirl
    name: FitGirl Repacks
    base_url: https://fitgirl-repacks.site/all-my-repacks-a-z/
    request_delay_ms: 750
    config:
      user_agent: Mozilla/5.0
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	src, ok := reg.ByID("fitgirl")
	if !ok {
		t.Fatalf("expected source fitgirl to be loaded")
	}
	if src.Type != TypeLCPCatlist || src.PageParam != "lcp_page0" {
		t.Errorf("unexpected defaults: type=%q param=%q", src.Type, src.PageParam)
	}
	if src.FallbackPages != 127 || src.PauseEvery != 10 {
		t.Errorf("unexpected pagination defaults: %d/%d", src.FallbackPages, src.PauseEvery)
	}
	if src.RequestDelay() != 750*time.Millisecond || src.PauseDuration() != 2*time.Second {
		t.Errorf("unexpected pacing: %v/%v", src.RequestDelay(), src.PauseDuration())
	}
	if got := Headers(src)["User-Agent"]; got != "Mozilla/5.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if len(reg.All()) != 1 {
		t.Errorf("All() = %d entries", len(reg.All()))
	}
}

func TestLoadRegistryRejectsDuplicatesAndMissingFields(t *testing.T) {
	dir := t.TempDir()

	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte(`
sources:
  - {id: a, name: A, base_url: https://a.example}
  - {id: a, name: B, base_url: https://b.example}
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(dup); err == nil {
		t.Fatalf("expected duplicate source error")
	}

	missing := filepath.Join(dir, "missing.json")
	if err := os.WriteFile(missing, []byte(`{"sources":[{"id":"a","name":"A"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(missing); err == nil {
		t.Fatalf("expected base_url validation error")
	}
}
