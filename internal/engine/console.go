/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/pingax/gem-sub001/internal/inifile"
	"github.com/pingax/gem-sub001/internal/pathutil"
)

// localPlaceholder stands for the local data root in console paths.
const localPlaceholder = "<local>"

// Console groups the ROMs of one system stored in a directory.
type Console struct {
	ID         string
	Name       string
	Icon       string
	Path       string
	Extensions []string
	Ignores    []string
	Recursive  bool
	Favorite   bool
	Emulator   *Emulator

	lib      *API
	logger   zerolog.Logger
	patterns []*regexp.Regexp
	games    []*Game
	index    map[string]*Game
}

type consoleFields struct {
	Name       string   `mapstructure:"name"`
	Icon       string   `mapstructure:"icon"`
	Path       string   `mapstructure:"path"`
	Extensions []string `mapstructure:"extensions"`
	Ignores    []string `mapstructure:"ignores"`
	Recursive  bool     `mapstructure:"recursive"`
	Favorite   bool     `mapstructure:"favorite"`
	Emulator   any      `mapstructure:"emulator"`
}

// NewConsole builds a console from a keyword map using the consoles.conf
// option names (icon, roms, exts, ignores, emulator, favorite, recursive)
// plus name. The emulator may be an *Emulator or an id resolved against
// lib. A missing ROM directory is created when possible.
func NewConsole(data map[string]any, lib *API) (*Console, error) {
	var fields consoleFields
	if err := ingest(withoutKeys(data, "id"), &fields); err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}

	c := &Console{
		Name:      strings.TrimSpace(fields.Name),
		Icon:      fields.Icon,
		Recursive: fields.Recursive,
		Favorite:  fields.Favorite,
		lib:       lib,
		logger:    zerolog.Nop(),
		index:     map[string]*Game{},
	}
	if lib != nil {
		c.logger = lib.logger.With().Str("component", "console").Logger()
	}
	if c.Name == "" {
		return nil, fmt.Errorf("console: %w: name", ErrMissingRequiredField)
	}
	c.ID = pathutil.Slug(c.Name)
	c.logger = c.logger.With().Str("console", c.ID).Logger()

	for _, ext := range fields.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			c.Extensions = append(c.Extensions, ext)
		}
	}
	c.Extensions = uniqueStrings(c.Extensions)

	c.Ignores = uniqueStrings(fields.Ignores)
	for _, expr := range c.Ignores {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("console %s: %w: ignore %q: %v", c.ID, ErrInvalidValue, expr, err)
		}
		c.patterns = append(c.patterns, re)
	}

	switch e := fields.Emulator.(type) {
	case nil:
	case *Emulator:
		c.Emulator = e
	case string:
		if e = strings.TrimSpace(e); e != "" {
			if lib != nil {
				c.Emulator = lib.GetEmulator(e)
			}
			if c.Emulator == nil {
				c.logger.Warn().Str("emulator", e).Msg("unknown emulator, console left without default")
			}
		}
	default:
		return nil, fmt.Errorf("console %s: %w: emulator of type %T", c.ID, ErrInvalidValue, e)
	}

	if err := c.setPath(fields.Path); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Console) setPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if c.lib != nil && strings.HasPrefix(path, localPlaceholder) {
		path = c.lib.dataHome + strings.TrimPrefix(path, localPlaceholder)
	}
	abs, err := filepath.Abs(pathutil.ExpandUser(path))
	if err != nil {
		return fmt.Errorf("console %s: %w: path %q", c.ID, ErrInvalidValue, path)
	}
	c.Path = abs

	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("console %s: %w: %s", c.ID, ErrNotADirectory, abs)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0o755); err != nil {
			c.logger.Debug().Err(err).Str("path", abs).Msg("cannot create roms directory")
		}
	}
	return nil
}

// AsMap returns the consoles.conf options for this console. Paths below the
// local data root are written with the <local> prefix.
func (c *Console) AsMap() map[string]string {
	out := map[string]string{
		"favorite":  inifile.FormatBool(c.Favorite),
		"recursive": inifile.FormatBool(c.Recursive),
	}
	if c.Icon != "" {
		out["icon"] = c.Icon
	}
	if path := c.Path; path != "" {
		if c.lib != nil {
			if rel, err := filepath.Rel(c.lib.dataHome, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				path = localPlaceholder + "/" + filepath.ToSlash(rel)
			}
		}
		out["roms"] = path
	}
	if len(c.Extensions) > 0 {
		out["exts"] = strings.Join(c.Extensions, ";")
	}
	if len(c.Ignores) > 0 {
		out["ignores"] = strings.Join(c.Ignores, ";")
	}
	if c.Emulator != nil {
		out["emulator"] = c.Emulator.ID
	}
	return out
}

// InitGames scans the ROM directory again and rebuilds the game list.
func (c *Console) InitGames() error {
	if c.Path == "" {
		return fmt.Errorf("console %s: %w: no roms directory", c.ID, ErrMissingFile)
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return fileError(c.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, c.Path)
	}
	dir, err := os.Open(c.Path)
	if err != nil {
		return fileError(c.Path, err)
	}
	_, err = dir.Readdirnames(1)
	dir.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return fileError(c.Path, err)
	}

	c.games = nil
	c.index = map[string]*Game{}

	found := map[string]struct{}{}
	fsys := os.DirFS(c.Path)
	for _, ext := range c.Extensions {
		pattern := "*." + pathutil.ExtensionPattern(ext)
		if c.Recursive {
			pattern = "**/" + pattern
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return fmt.Errorf("scan %s: %w", c.Path, err)
		}
		for _, match := range matches {
			found[filepath.Join(c.Path, filepath.FromSlash(match))] = struct{}{}
		}
	}

	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := strings.ToLower(paths[i]), strings.ToLower(paths[j])
		if a != b {
			return a < b
		}
		return paths[i] < paths[j]
	})

	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		game, err := NewGame(path, c.lib)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("skipping rom")
			continue
		}
		if c.ignored(game.Name) {
			continue
		}
		game.consoleEmulator = c.Emulator
		if game.Emulator == nil {
			game.Emulator = c.Emulator
		}
		c.games = append(c.games, game)
		c.index[game.ID] = game
	}

	c.logger.Debug().Int("games", len(c.games)).Msg("roms scanned")
	return nil
}

func (c *Console) ignored(name string) bool {
	for _, re := range c.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// GetGames returns the scanned games ordered by path, ignoring case.
func (c *Console) GetGames() []*Game {
	return append([]*Game(nil), c.games...)
}

// GetGame returns the scanned game with id, or nil.
func (c *Console) GetGame(id string) *Game {
	return c.index[id]
}

// SearchGame yields the games whose name or id matches pattern, ignoring
// case.
func (c *Console) SearchGame(pattern string) (iter.Seq[*Game], error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", ErrInvalidValue, pattern, err)
	}
	games := c.GetGames()
	return func(yield func(*Game) bool) {
		for _, game := range games {
			if re.MatchString(game.Name) || re.MatchString(game.ID) {
				if !yield(game) {
					return
				}
			}
		}
	}, nil
}

// setEmulator changes the default emulator and the games inheriting it.
func (c *Console) setEmulator(e *Emulator) {
	previous := c.Emulator
	c.Emulator = e
	for _, game := range c.games {
		if game.consoleEmulator == previous && game.Emulator == previous {
			game.Emulator = e
		}
		game.consoleEmulator = e
	}
}
