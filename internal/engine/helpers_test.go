package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pingax/gem-sub001/internal/config"
)

// fakeBinary installs an empty file named name in a directory prepended to
// PATH, which is enough for Emulator.Exists.
func fakeBinary(t *testing.T, name string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
	return path
}

type roots struct {
	config string
	data   string
}

// newRoots returns library roots whose console and emulator files exist
// but are empty, so no packaged default is installed.
func newRoots(t *testing.T) roots {
	t.Helper()
	r := roots{config: t.TempDir(), data: t.TempDir()}
	touch(t, filepath.Join(r.config, ConsolesFile))
	touch(t, filepath.Join(r.config, EmulatorsFile))
	return r
}

func testConfig(r roots) *config.Config {
	return &config.Config{
		Environment: "test",
		ConfigHome:  r.config,
		DataHome:    r.data,
		Program:     filepath.Base(os.Args[0]),
	}
}

// openLibrary starts a library on r and registers its shutdown.
func openLibrary(t *testing.T, r roots) *API {
	t.Helper()
	a, err := New(testConfig(r))
	if err != nil {
		t.Fatalf("new library: %v", err)
	}
	t.Cleanup(func() { shutdown(a) })
	return a
}

func initLibrary(t *testing.T, r roots) *API {
	t.Helper()
	a := openLibrary(t, r)
	if err := a.Init(); err != nil {
		t.Fatalf("init library: %v", err)
	}
	return a
}

func shutdown(a *API) {
	_ = a.Close()
	_ = a.FreeLock()
}

func hasPrefixes(ids []string, prefixes ...string) bool {
	if len(ids) != len(prefixes) {
		return false
	}
	for _, prefix := range prefixes {
		found := false
		for _, id := range ids {
			if strings.HasPrefix(id, prefix) {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}
