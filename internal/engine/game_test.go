package engine

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewGameMissingFile(t *testing.T) {
	_, err := NewGame(filepath.Join(t.TempDir(), "missing.nes"), nil)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("got %v", err)
	}
}

func TestNewGameDefaults(t *testing.T) {
	game := newTestGame(t, filepath.Join(t.TempDir(), "Mega_Man 2.NES"))

	if !strings.HasPrefix(game.ID, "mega-man-2-") {
		t.Fatalf("id = %q", game.ID)
	}
	if game.Name != "Mega_Man 2" || game.Extension() != "NES" || game.Filename() != "Mega_Man 2.NES" {
		t.Fatalf("unexpected identity: %+v", game)
	}
	if game.Installed.IsZero() {
		t.Fatal("installation date not read")
	}
	if !game.LastLaunchDate.IsZero() || game.Played != 0 || game.Environment == nil {
		t.Fatalf("unexpected defaults: %+v", game)
	}
	if argv, err := game.CommandLine(false); argv != nil || err != nil {
		t.Fatalf("no emulator: got %q, %v", argv, err)
	}
}

func TestGameRowRoundTrip(t *testing.T) {
	game := newTestGame(t, filepath.Join(t.TempDir(), "zelda.nes"))
	emulator := &Emulator{ID: "nestopia", Name: "Nestopia"}

	game.Name = "The Legend of Zelda"
	game.Favorite = true
	game.Finish = true
	game.SetScore(9)
	game.SetTags([]string{"rpg", "adventure", "rpg", " "})
	game.Key = "NES-ZL"
	game.Default = "--fast"
	game.Emulator = emulator
	game.RecordRun(time.Date(2024, 5, 1, 21, 30, 0, 0, time.Local), 14*time.Minute+500*time.Millisecond)
	game.RecordRun(time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local), 28*time.Minute)

	if game.Score != MaxScore {
		t.Fatalf("score = %d", game.Score)
	}
	if !reflect.DeepEqual(game.Tags, []string{"adventure", "rpg"}) {
		t.Fatalf("tags = %q", game.Tags)
	}

	row := game.AsMap()
	if row["play_time"] != "00:42:00" || row["last_play"] != "2024-05-02" || row["last_play_time"] != "00:28:00" {
		t.Fatalf("statistics row: %v", row)
	}
	if row["emulator"] != "Nestopia" || row["tags"] != "adventure;rpg" || row["cover"] != nil {
		t.Fatalf("metadata row: %v", row)
	}

	reloaded := newTestGame(t, game.Path)
	lookup := func(name string) *Emulator {
		if name == "Nestopia" {
			return emulator
		}
		return nil
	}
	if err := reloaded.apply(row, lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	reloaded.Installed = game.Installed
	if !reflect.DeepEqual(reloaded, game) {
		t.Fatalf("reloaded game differs:\n got %+v\nwant %+v", reloaded, game)
	}
}

func TestGameApplyClampsValues(t *testing.T) {
	game := newTestGame(t, filepath.Join(t.TempDir(), "metroid.nes"))
	err := game.apply(map[string]any{
		"score":          int64(-3),
		"play":           int64(2),
		"play_time":      "00:10:00",
		"last_play_time": "00:30:00.250000",
		"last_play":      "01-02-2023 10:11:12",
		"favorite":       true,
		"tags":           "b;a;b",
	}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if game.Score != 0 {
		t.Fatalf("score = %d", game.Score)
	}
	if game.PlayTime < game.LastLaunchTime || game.PlayTime != 30*time.Minute {
		t.Fatalf("play time = %v, last = %v", game.PlayTime, game.LastLaunchTime)
	}
	if want := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC); !game.LastLaunchDate.Equal(want) {
		t.Fatalf("last launch = %v", game.LastLaunchDate)
	}
	if !reflect.DeepEqual(game.Tags, []string{"a", "b"}) {
		t.Fatalf("tags = %q", game.Tags)
	}

	err = game.apply(map[string]any{"play_time": "forever", "emulator": "ghost"}, func(string) *Emulator { return nil })
	if err == nil || !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected aggregated error, got %v", err)
	}
}

func TestGameCopyAndReset(t *testing.T) {
	dir := t.TempDir()
	game := newTestGame(t, filepath.Join(dir, "castlevania.nes"))
	game.Favorite = true
	game.SetTags([]string{"horror"})
	game.Environment["SDL_AUDIODRIVER"] = "pulse"
	game.Played = 4

	copyPath := touch(t, filepath.Join(dir, "sub", "Castlevania (USA).nes"))
	c, err := game.Copy(copyPath)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if c.Path != copyPath || c.Name != "Castlevania (USA)" || c.ID == game.ID {
		t.Fatalf("copy identity not derived: %+v", c)
	}
	if !c.Favorite || c.Played != 4 || c.Environment["SDL_AUDIODRIVER"] != "pulse" {
		t.Fatalf("metadata not copied: %+v", c)
	}
	c.Tags[0] = "changed"
	c.Environment["SDL_AUDIODRIVER"] = "alsa"
	if game.Tags[0] != "horror" || game.Environment["SDL_AUDIODRIVER"] != "pulse" {
		t.Fatal("copy shares state with the original")
	}

	if _, err := game.Copy(filepath.Join(dir, "missing.nes")); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("copy to missing file: %v", err)
	}

	id, path := game.ID, game.Path
	game.Reset()
	if game.ID != id || game.Path != path || game.Name != "castlevania" {
		t.Fatalf("reset lost identity: %+v", game)
	}
	if game.Favorite || game.Played != 0 || len(game.Tags) != 0 || len(game.Environment) != 0 {
		t.Fatalf("reset kept metadata: %+v", game)
	}
}

func TestGameResetRestoresConsoleEmulator(t *testing.T) {
	fakeBinary(t, "fake-emu")
	dir := t.TempDir()
	rom := touch(t, filepath.Join(dir, "Metroid.nes"))

	console := &Emulator{ID: "console", Name: "Console", Binary: "fake-emu"}
	override := &Emulator{ID: "override", Name: "Override", Binary: "fake-emu --other"}
	c := newTestConsole(t, map[string]any{"name": "NES", "roms": dir, "exts": "nes", "emulator": console})
	if err := c.InitGames(); err != nil {
		t.Fatalf("init games: %v", err)
	}
	game := c.GetGames()[0]
	game.Emulator = override

	game.Reset()
	if game.Emulator != console {
		t.Fatalf("emulator after reset = %v", game.Emulator)
	}
	argv, err := game.CommandLine(false)
	if err != nil {
		t.Fatalf("command line: %v", err)
	}
	if !reflect.DeepEqual(argv, []string{"fake-emu", rom}) {
		t.Fatalf("argv = %q", argv)
	}
	if row := game.AsMap(); row["emulator"] != nil {
		t.Fatalf("inherited emulator written to the row: %v", row["emulator"])
	}
}
