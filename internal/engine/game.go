/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pingax/gem-sub001/internal/db"
	"github.com/pingax/gem-sub001/internal/pathutil"
)

// MaxScore is the highest score a game can hold.
const MaxScore = 5

// Game is a ROM file merged with its database row and environment section.
type Game struct {
	ID   string
	Name string
	Path string

	Favorite    bool
	Multiplayer bool
	Finish      bool
	Score       int
	Tags        []string
	Key         string
	Cover       string
	Default     string
	Emulator    *Emulator
	Environment map[string]string

	Played         int
	PlayTime       time.Duration
	LastLaunchDate time.Time
	LastLaunchTime time.Duration
	Installed      time.Time

	// consoleEmulator is the default inherited from the console scan; it is
	// not written back as a per-game override.
	consoleEmulator *Emulator
}

// NewGame builds the game stored at path. When lib is not nil and owns a
// database, the row matching the file name and the environment section of
// the game are merged in.
func NewGame(path string, lib *API) (*Game, error) {
	abs, err := filepath.Abs(pathutil.ExpandUser(path))
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fileError(abs, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidValue, abs)
	}

	g := &Game{Path: abs}
	if err := g.derive(); err != nil {
		return nil, err
	}
	g.Reset()

	if lib != nil {
		lib.mergeGame(g)
	}
	return g, nil
}

// derive recomputes the identity and installation date from Path.
func (g *Game) derive() error {
	id, err := pathutil.PathSlug(g.Path)
	if err != nil {
		return fileError(g.Path, err)
	}
	g.ID = id
	return g.UpdateInstallationDate()
}

// Reset returns every field to its default, keeping the file identity and
// the emulator inherited from the console.
func (g *Game) Reset() {
	*g = Game{
		ID:              g.ID,
		Path:            g.Path,
		Installed:       g.Installed,
		Name:            pathutil.Stem(g.Path),
		Environment:     map[string]string{},
		Emulator:        g.consoleEmulator,
		consoleEmulator: g.consoleEmulator,
	}
}

// Filename returns the ROM base name, the key of the games table.
func (g *Game) Filename() string {
	return filepath.Base(g.Path)
}

// Extension returns the ROM extension without the leading dot.
func (g *Game) Extension() string {
	return strings.TrimPrefix(filepath.Ext(g.Path), ".")
}

// UpdateInstallationDate reads the creation date of the ROM file again.
func (g *Game) UpdateInstallationDate() error {
	created, err := pathutil.CreationTime(g.Path)
	if err != nil {
		return fileError(g.Path, err)
	}
	g.Installed = created
	return nil
}

// SetTags replaces the tags, sorted and without duplicates.
func (g *Game) SetTags(tags []string) {
	tags = uniqueStrings(tags)
	slices.Sort(tags)
	if len(tags) == 0 {
		tags = nil
	}
	g.Tags = tags
}

// SetScore stores score clamped to [0, MaxScore].
func (g *Game) SetScore(score int) {
	g.Score = min(max(score, 0), MaxScore)
}

// RecordRun accounts a finished emulator run started at start.
func (g *Game) RecordRun(start time.Time, elapsed time.Duration) {
	elapsed = max(elapsed.Truncate(time.Second), 0)
	g.Played++
	g.PlayTime += elapsed
	y, m, d := start.Date()
	g.LastLaunchDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	g.LastLaunchTime = elapsed
}

// Copy returns a game sharing this game's metadata for the file at newPath.
func (g *Game) Copy(newPath string) (*Game, error) {
	abs, err := filepath.Abs(pathutil.ExpandUser(newPath))
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", newPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fileError(abs, err)
	}

	c := *g
	c.Tags = slices.Clone(g.Tags)
	c.Environment = maps.Clone(g.Environment)
	if c.Environment == nil {
		c.Environment = map[string]string{}
	}
	c.Path = abs
	c.Name = pathutil.Stem(abs)
	if err := c.derive(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CommandLine returns the argv launching the game with its emulator, or nil
// when no emulator is bound.
func (g *Game) CommandLine(fullscreen bool) ([]string, error) {
	if g.Emulator == nil {
		return nil, nil
	}
	return g.Emulator.CommandLine(g, fullscreen)
}

// AsMap returns the games table row of the game.
func (g *Game) AsMap() db.Row {
	row := db.Row{
		"filename":       g.Filename(),
		"name":           g.Name,
		"favorite":       g.Favorite,
		"multiplayer":    g.Multiplayer,
		"finish":         g.Finish,
		"score":          g.Score,
		"play":           g.Played,
		"play_time":      pathutil.FormatDuration(g.PlayTime),
		"last_play":      pathutil.FormatDate(g.LastLaunchDate),
		"last_play_time": pathutil.FormatDuration(g.LastLaunchTime),
		"emulator":       nil,
		"arguments":      nullable(g.Default),
		"tags":           nullable(strings.Join(g.Tags, ";")),
		"key":            nullable(g.Key),
		"cover":          nullable(g.Cover),
	}
	if g.Emulator != nil && g.Emulator != g.consoleEmulator {
		row["emulator"] = g.Emulator.Name
	}
	return row
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// apply merges a games table row. Unparsable values keep their defaults and
// are reported together.
func (g *Game) apply(row db.Row, emulator func(string) *Emulator) error {
	var errs []error

	if name := rowString(row, "name"); name != "" {
		g.Name = name
	}
	g.Favorite = rowBool(row, "favorite")
	g.Multiplayer = rowBool(row, "multiplayer")
	g.Finish = rowBool(row, "finish")
	g.SetScore(rowInt(row, "score"))
	g.Played = max(rowInt(row, "play"), 0)

	if value := rowString(row, "play_time"); value != "" {
		d, err := pathutil.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("play_time: %w", err))
		}
		g.PlayTime = d
	}
	if value := rowString(row, "last_play_time"); value != "" {
		d, err := pathutil.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("last_play_time: %w", err))
		}
		g.LastLaunchTime = d
	}
	if value := rowString(row, "last_play"); value != "" {
		t, err := pathutil.ParseDate(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("last_play: %w", err))
		}
		g.LastLaunchDate = t
	}
	if g.PlayTime < g.LastLaunchTime {
		g.PlayTime = g.LastLaunchTime
	}

	if name := rowString(row, "emulator"); name != "" && emulator != nil {
		if e := emulator(name); e != nil {
			g.Emulator = e
		} else {
			errs = append(errs, fmt.Errorf("emulator: %w: %s", ErrUnknownID, name))
		}
	}
	g.Default = rowString(row, "arguments")
	g.SetTags(splitList(rowString(row, "tags")))
	g.Key = rowString(row, "key")
	g.Cover = rowString(row, "cover")

	return errors.Join(errs...)
}

func rowString(row db.Row, column string) string {
	switch v := row[column].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return fmt.Sprint(v)
	}
}

func rowInt(row db.Row, column string) int {
	switch v := row[column].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func rowBool(row db.Row, column string) bool {
	switch v := row[column].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b || strings.EqualFold(v, "yes")
	}
	return false
}
