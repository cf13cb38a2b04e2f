package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"example.com/canview/internal/rows"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "protocols"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "canviewd.yaml")
	if err := os.WriteFile(path, []byte("port: 9000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != 9000 || cfg.RowCap != rows.DefaultRowCap || cfg.Lang != "en" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.ConfigDir != filepath.Join(dir, "protocols") {
		t.Fatalf("config dir not resolved against the config file: %s", cfg.ConfigDir)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.Logs.MaxBackups != 5 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canviewd.yaml")
	doc := `
port: 8181
parseServiceURL: http://parser:8080
rowCap: 500
lang: zh
sessionTTL: 5m
logs:
  directory: /var/log/canviewd
  compress: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RowCap != 500 || cfg.Lang != "zh" || cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.ParseServiceURL != "http://parser:8080" || !cfg.Logs.Compress || cfg.Logs.Directory != "/var/log/canviewd" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canviewd.yaml")
	if err := os.WriteFile(path, []byte("lang: fr\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Fatalf("expected error for unsupported language")
	}
}
