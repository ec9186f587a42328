package inifile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const consolesFixture = `# user consoles
[Nintendo NES]
roms = <local>/roms/nes
exts = nes;NES;unf
emulator = nestopia ; inline text is kept
favorite = yes

[Sega Genesis]
roms = /srv/roms/genesis
recursive = no
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestOpenReadsSectionsInOrder(t *testing.T) {
	f, err := Open(writeFixture(t, "consoles.conf", consolesFixture))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if got := f.Sections(); !reflect.DeepEqual(got, []string{"Nintendo NES", "Sega Genesis"}) {
		t.Fatalf("sections = %v", got)
	}
	options, err := f.Options("Nintendo NES")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if !reflect.DeepEqual(options, []string{"roms", "exts", "emulator", "favorite"}) {
		t.Fatalf("options = %v", options)
	}
	if got := f.Get("Nintendo NES", "exts", ""); got != "nes;NES;unf" {
		t.Fatalf("exts = %q", got)
	}
	if got := f.Get("Nintendo NES", "emulator", ""); got != "nestopia ; inline text is kept" {
		t.Fatalf("emulator = %q", got)
	}
	if got := f.Get("Nintendo NES", "icon", "fallback"); got != "fallback" {
		t.Fatalf("missing option should use fallback, got %q", got)
	}
	if !f.GetBool("Nintendo NES", "favorite", false) {
		t.Fatal("expected favorite = yes")
	}
	if f.GetBool("Sega Genesis", "recursive", true) {
		t.Fatal("expected recursive = no")
	}
	if _, err := f.Options("Atari"); !errors.Is(err, ErrNoSection) {
		t.Fatalf("expected ErrNoSection, got %v", err)
	}
}

func TestUpdateRewritesWithoutComments(t *testing.T) {
	path := writeFixture(t, "consoles.conf", consolesFixture)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	f.SetBool("Sega Genesis", "favorite", true)
	if err := f.AddSection("Atari 2600"); err != nil {
		t.Fatalf("add section: %v", err)
	}
	f.Set("Atari 2600", "exts", "a26;bin")
	if err := f.AddSection("Atari 2600"); !errors.Is(err, ErrDuplicateSection) {
		t.Fatalf("expected ErrDuplicateSection, got %v", err)
	}
	if err := f.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(raw), "# user consoles") {
		t.Fatalf("comments should not survive a rewrite:\n%s", raw)
	}

	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reloaded.Sections(); !reflect.DeepEqual(got, []string{"Nintendo NES", "Sega Genesis", "Atari 2600"}) {
		t.Fatalf("sections after rewrite = %v", got)
	}
	if got := reloaded.Get("Sega Genesis", "favorite", ""); got != "yes" {
		t.Fatalf("favorite = %q", got)
	}
	if got := reloaded.Get("Atari 2600", "exts", ""); got != "a26;bin" {
		t.Fatalf("exts = %q", got)
	}
}

func TestRemoveAndReload(t *testing.T) {
	path := writeFixture(t, "consoles.conf", consolesFixture)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !f.RemoveSection("Sega Genesis") {
		t.Fatal("expected section removal")
	}
	if f.RemoveSection("Sega Genesis") {
		t.Fatal("second removal should report false")
	}
	if !f.RemoveOption("Nintendo NES", "favorite") {
		t.Fatal("expected option removal")
	}
	if err := f.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !f.HasSection("Sega Genesis") || !f.HasOption("Nintendo NES", "favorite") {
		t.Fatal("reload should discard unsaved changes")
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "environment.conf")
	f, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(f.Sections()) != 0 {
		t.Fatalf("expected empty document, got %v", f.Sections())
	}
	f.Set("game-1", "SDL_VIDEODRIVER", "x11")
	if err := f.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to be created: %v", err)
	}
}

func TestAddMissingData(t *testing.T) {
	local, err := Parse([]byte("[gem]\nlast_version = 0.9\n\n[viewer]\nrun = no\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reference, err := Parse([]byte("[gem]\nlast_version = 1.0\nhide_empty_console = no\n\n[columns]\n\n[viewer]\nrun = yes\noptions = --fit\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !local.AddMissingData(reference) {
		t.Fatal("expected modifications")
	}
	if got := local.Get("gem", "last_version", ""); got != "0.9" {
		t.Fatalf("existing value overwritten: %q", got)
	}
	if got := local.Get("gem", "hide_empty_console", ""); got != "no" {
		t.Fatalf("missing option not copied: %q", got)
	}
	if !local.HasSection("columns") {
		t.Fatal("missing empty section not copied")
	}
	if got := local.Get("viewer", "options", ""); got != "--fit" {
		t.Fatalf("options = %q", got)
	}
	if local.AddMissingData(reference) {
		t.Fatal("second merge should be a no-op")
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"yes": true, "No": false, "TRUE": true, "false": false} {
		got, ok := ParseBool(in)
		if !ok || got != want {
			t.Fatalf("ParseBool(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Fatal("expected maybe to be rejected")
	}
}
