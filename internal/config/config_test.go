package config

import (
	"os"
	"path/filepath"
	"testing"

	"festplan/internal/tags"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != defaultListen || cfg.Timezone != defaultTimezone {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}

	// Second load reads the file back.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again.Tags) != len(tags.DefaultDefs()) || again.Grid.RowHeightPx != 40 {
		t.Errorf("reloaded config = %+v", again)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
listen: ":9090"
grid:
  start_hour: 25
  end_hour: 10
tags:
  - id: interested
  - id: interested
    label: dup
  - id: " seura-x "
    label: "#x"
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Grid.StartHour != 10 || cfg.Grid.EndHour != 23 {
		t.Errorf("grid hours = %d..%d, want 10..23", cfg.Grid.StartHour, cfg.Grid.EndHour)
	}
	if cfg.Grid.RowHeightPx != 40 || cfg.MaxPaidSelections != 10 {
		t.Errorf("grid/limit defaults = %+v / %d", cfg.Grid, cfg.MaxPaidSelections)
	}

	want := []tags.Def{
		{ID: tags.TagSelected, Label: "#selected"},
		{ID: "interested", Label: "#interested"},
		{ID: "seura-x", Label: "#x"},
	}
	if len(cfg.Tags) != len(want) {
		t.Fatalf("Tags = %+v, want %+v", cfg.Tags, want)
	}
	for i := range want {
		if cfg.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %+v, want %+v", i, cfg.Tags[i], want[i])
		}
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Catalog.URL = "https://example.org/data.json"
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Catalog.URL != cfg.Catalog.URL || got.BasicAuth == nil || got.BasicAuth.Username != "u" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if gl := got.GridLayout(); gl.StartHour != 9 || gl.EndHour != 23 {
		t.Errorf("GridLayout = %+v", gl)
	}
}
