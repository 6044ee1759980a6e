package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != defaultDBPath {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ordkv.toml")
	contents := "db_path = \"custom.db\"\nfsync_each = true\nlog_level = \"DEBUG\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "custom.db" {
		t.Fatalf("expected custom.db, got %q", cfg.DBPath)
	}
	if !cfg.FsyncEach {
		t.Fatalf("expected fsync_each true")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lowercased debug, got %q", cfg.LogLevel)
	}
}
