package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mapping.OutputRoot != "src" {
		t.Errorf("expected OutputRoot=src, got %s", cfg.Mapping.OutputRoot)
	}
	if cfg.Mapping.DefaultDir != "misc" {
		t.Errorf("expected DefaultDir=misc, got %s", cfg.Mapping.DefaultDir)
	}
	if cfg.Mapping.Extension != ".c" {
		t.Errorf("expected Extension=.c, got %s", cfg.Mapping.Extension)
	}
	if cfg.Validate.LineTolerance != 0.20 {
		t.Errorf("expected LineTolerance=0.20, got %f", cfg.Validate.LineTolerance)
	}
	if cfg.Validate.MaxFileSize != 2048 {
		t.Errorf("expected MaxFileSize=2048, got %d", cfg.Validate.MaxFileSize)
	}
	if len(cfg.Mapping.Rules) != 0 {
		t.Errorf("expected no default rules, got %d", len(cfg.Mapping.Rules))
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected Telemetry.Exporter=none, got %s", cfg.Telemetry.Exporter)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	content := `
mapping:
  default_dir: other
  rules:
    - pattern: "ast_parse_"
      dir: ast/parser
    - pattern: "ast_"
      dir: ast
catalog:
  strict_ambiguity: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Mapping.DefaultDir != "other" {
		t.Errorf("expected DefaultDir=other, got %s", cfg.Mapping.DefaultDir)
	}
	if cfg.Mapping.OutputRoot != "src" {
		t.Errorf("expected OutputRoot to keep its default, got %s", cfg.Mapping.OutputRoot)
	}
	if len(cfg.Mapping.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Mapping.Rules))
	}
	if cfg.Mapping.Rules[0].Dir != "ast/parser" || cfg.Mapping.Rules[1].Dir != "ast" {
		t.Errorf("rule order not preserved: %+v", cfg.Mapping.Rules)
	}
	if !cfg.Catalog.StrictAmbiguity {
		t.Error("expected StrictAmbiguity=true")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(StateDir(tmpDir), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(StateDir(tmpDir), "config.yaml")

	content := `
backup:
  dir: /tmp/genesis-backups
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Backup.Dir != "/tmp/genesis-backups" {
		t.Errorf("expected Backup.Dir=/tmp/genesis-backups, got %s", cfg.Backup.Dir)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, FileName)

	cfg := DefaultConfig()
	cfg.Mapping.Rules = ExampleRules()
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded.Mapping.Rules) != len(ExampleRules()) {
		t.Errorf("expected %d rules, got %d", len(ExampleRules()), len(loaded.Mapping.Rules))
	}
}

func TestLedgerPath(t *testing.T) {
	path := LedgerPath("/home/user/project")
	expected := filepath.Join("/home/user/project", ".genesis", "runs.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
