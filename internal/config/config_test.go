package config

import (
	"path/filepath"
	"testing"
)

func TestLoadReadsExplicitRoots(t *testing.T) {
	cfgHome := t.TempDir()
	dataHome := t.TempDir()
	t.Setenv("GEM_CONFIG_HOME", cfgHome)
	t.Setenv("GEM_DATA_HOME", dataHome)
	t.Setenv("GEM_DEBUG", "yes")
	t.Setenv("GEM_PROGRAM", "gem-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ConfigHome != cfgHome || cfg.DataHome != dataHome {
		t.Fatalf("unexpected roots: %+v", cfg)
	}
	if !cfg.Debug {
		t.Fatal("expected debug to be enabled")
	}
	if cfg.Program != "gem-test" {
		t.Fatalf("unexpected program: %q", cfg.Program)
	}
	if cfg.IsDevelopment() {
		t.Fatal("default environment should be production")
	}
}

func TestLoadFallsBackToXDG(t *testing.T) {
	xdgConfig := t.TempDir()
	xdgData := t.TempDir()
	t.Setenv("GEM_CONFIG_HOME", "")
	t.Setenv("GEM_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", xdgConfig)
	t.Setenv("XDG_DATA_HOME", xdgData)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ConfigHome != filepath.Join(xdgConfig, "gem") {
		t.Fatalf("config home = %q", cfg.ConfigHome)
	}
	if cfg.DataHome != filepath.Join(xdgData, "gem") {
		t.Fatalf("data home = %q", cfg.DataHome)
	}
	if cfg.Program != "gem" {
		t.Fatalf("program = %q", cfg.Program)
	}
}

func TestLoadRejectsRelativeRoots(t *testing.T) {
	t.Setenv("GEM_CONFIG_HOME", "relative/config")
	t.Setenv("GEM_DATA_HOME", t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected relative config root to be rejected")
	}
}

func TestGetEnvBoolAny(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"1", false, true},
		{"YES", false, true},
		{"no", true, false},
		{"garbage", true, true},
	}
	for _, tt := range tests {
		t.Setenv("GEM_TEST_BOOL", tt.value)
		if got := getEnvBoolAny([]string{"GEM_TEST_BOOL"}, tt.def); got != tt.want {
			t.Errorf("getEnvBoolAny(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}
