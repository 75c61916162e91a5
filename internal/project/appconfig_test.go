package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piwi3910/CutFrame/internal/model"
)

func TestSaveAndLoadAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := model.DefaultAppConfig()
	cfg.DefaultKerfWidth = 3.0
	cfg.DefaultNoFitPolicy = model.NoFitAbandon
	cfg.LastOpenDirectory = "/data/orders"
	cfg.RecentFiles = []string{"/data/orders/a.xlsx", "/data/orders/b.csv"}

	if err := SaveAppConfig(path, cfg); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}

	loaded, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}

	if loaded.DefaultKerfWidth != 3.0 {
		t.Errorf("expected DefaultKerfWidth=3.0, got %f", loaded.DefaultKerfWidth)
	}
	if loaded.DefaultNoFitPolicy != model.NoFitAbandon {
		t.Errorf("expected abandon policy, got %s", loaded.DefaultNoFitPolicy)
	}
	if loaded.LastOpenDirectory != "/data/orders" {
		t.Errorf("expected LastOpenDirectory=/data/orders, got %s", loaded.LastOpenDirectory)
	}
	if len(loaded.RecentFiles) != 2 {
		t.Errorf("expected 2 recent files, got %d", len(loaded.RecentFiles))
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}

	defaults := model.DefaultAppConfig()
	if cfg.DefaultKerfWidth != defaults.DefaultKerfWidth {
		t.Errorf("expected default kerf width %f, got %f", defaults.DefaultKerfWidth, cfg.DefaultKerfWidth)
	}
	if cfg.RecentFiles == nil {
		t.Error("RecentFiles should not be nil")
	}
}

func TestLoadAppConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"last_save_directory": "/out"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if cfg.LastSaveDirectory != "/out" {
		t.Errorf("expected LastSaveDirectory=/out, got %s", cfg.LastSaveDirectory)
	}
	if cfg.DefaultEndTrim != 6.0 {
		t.Errorf("missing fields should keep defaults, got end trim %f", cfg.DefaultEndTrim)
	}
}

func TestLoadAppConfigCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAppConfig(path); err == nil {
		t.Error("expected error for corrupt config file")
	}
}

func TestSaveAppConfigCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.json")

	if err := SaveAppConfig(path, model.DefaultAppConfig()); err != nil {
		t.Fatalf("SaveAppConfig failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created: %v", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	if !strings.HasSuffix(path, filepath.Join(".cutframe", "config.json")) {
		t.Errorf("unexpected default config path: %s", path)
	}
}
