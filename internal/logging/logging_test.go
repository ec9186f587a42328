package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.File.Name != "gem.log" || cfg.File.BackupSuffix != ".old" {
		t.Fatalf("unexpected file config: %+v", cfg.File)
	}
	if cfg.Level != "info" || cfg.DebugLevel != "debug" {
		t.Fatalf("unexpected levels: %+v", cfg)
	}
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("level: warn\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Level != "warn" || cfg.File.Name != "gem.log" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := ParseConfig([]byte("level: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSetupFileRotatesPreviousLog(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gem.log"), []byte("previous run\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	cfg, err := ParseConfig([]byte("console: false\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fl, err := SetupFile(cfg, dir, true)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	fl.Logger.Debug().Str("component", "test").Msg("hello from this run")
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	old, err := os.ReadFile(filepath.Join(dir, "gem.log.old"))
	if err != nil || string(old) != "previous run\n" {
		t.Fatalf("backup = %q, %v", old, err)
	}
	current, err := os.ReadFile(fl.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(current), "hello from this run") {
		t.Fatalf("log content = %q", current)
	}
}

func TestRotateMissingFile(t *testing.T) {
	dir := t.TempDir()
	if err := Rotate(filepath.Join(dir, "gem.log"), filepath.Join(dir, "gem.log.old")); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gem.log.old")); !os.IsNotExist(err) {
		t.Fatal("no backup expected when there was no log")
	}
}
