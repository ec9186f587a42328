/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/kballard/go-shellquote"

	"github.com/pingax/gem-sub001/internal/pathutil"
)

// Emulator is a launch profile for an external emulator binary.
type Emulator struct {
	ID            string
	Name          string `mapstructure:"name"`
	Binary        string `mapstructure:"binary"`
	Icon          string `mapstructure:"icon"`
	Configuration string `mapstructure:"configuration"`
	Default       string `mapstructure:"default"`
	Windowed      string `mapstructure:"windowed"`
	Fullscreen    string `mapstructure:"fullscreen"`
	SaveTemplate  string `mapstructure:"savestates"`
	SnapsTemplate string `mapstructure:"screenshots"`
}

// NewEmulator builds an emulator from a keyword map using the emulators.conf
// option names (binary, icon, configuration, save, snaps, default, windowed,
// fullscreen) plus name.
func NewEmulator(data map[string]any) (*Emulator, error) {
	e := &Emulator{}
	if err := ingest(withoutKeys(data, "id"), e); err != nil {
		return nil, fmt.Errorf("emulator: %w", err)
	}
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return nil, fmt.Errorf("emulator: %w: name", ErrMissingRequiredField)
	}
	e.ID = pathutil.Slug(e.Name)
	return e, nil
}

// Exists reports whether the binary resolves to an executable file, either
// as a path or through PATH.
func (e *Emulator) Exists() bool {
	tokens, err := shellquote.Split(e.Binary)
	if err != nil || len(tokens) == 0 {
		return false
	}
	return len(pathutil.ResolveBinary(tokens[0])) > 0
}

// AsMap returns the emulators.conf options for this emulator. Empty values
// are omitted.
func (e *Emulator) AsMap() map[string]string {
	out := make(map[string]string)
	for key, value := range map[string]string{
		"binary":        e.Binary,
		"icon":          e.Icon,
		"configuration": e.Configuration,
		"save":          e.SaveTemplate,
		"snaps":         e.SnapsTemplate,
		"default":       e.Default,
		"windowed":      e.Windowed,
		"fullscreen":    e.Fullscreen,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

type placeholder struct {
	token string
	value string
	rom   bool
	// verbatim values are inserted unquoted and split again with the
	// surrounding arguments.
	verbatim bool
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// quoteFor escapes value so that shell splitting reads it back as is inside
// the given quote context (0, ' or ").
func quoteFor(value string, quote byte) string {
	switch quote {
	case '\'':
		return strings.ReplaceAll(value, "'", `'\''`)
	case '"':
		return doubleQuoteEscaper.Replace(value)
	default:
		return shellquote.Join(value)
	}
}

// substitute replaces the placeholders of text and reports whether one of
// the ROM placeholders was used. Quote state is tracked so path values
// survive the later shell split.
func substitute(text string, placeholders []placeholder) (string, bool) {
	var (
		b       strings.Builder
		quote   byte
		romUsed bool
	)
	for i := 0; i < len(text); {
		c := text[i]
		if c == '<' {
			if p, ok := matchPlaceholder(text[i:], placeholders); ok {
				if p.verbatim {
					b.WriteString(p.value)
				} else {
					b.WriteString(quoteFor(p.value, quote))
				}
				romUsed = romUsed || p.rom
				i += len(p.token)
				continue
			}
		}
		switch {
		case c == '\\' && quote != '\'' && i+1 < len(text):
			b.WriteString(text[i : i+2])
			i += 2
			continue
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), romUsed
}

func matchPlaceholder(text string, placeholders []placeholder) (placeholder, bool) {
	for _, p := range placeholders {
		if strings.HasPrefix(text, p.token) {
			return p, true
		}
	}
	return placeholder{}, false
}

// CommandLine composes the argv launching game. Placeholders are replaced
// in the joined arguments, which are then split with shell rules. Path
// values are quoted for that split; <key> is inserted verbatim. The ROM
// path is appended unless one of the ROM placeholders was used.
func (e *Emulator) CommandLine(game *Game, fullscreen bool) ([]string, error) {
	if game == nil {
		return nil, fmt.Errorf("%w: no game", ErrInvalidValue)
	}
	if !e.Exists() {
		return nil, fmt.Errorf("%w: %q", ErrEmulatorBinaryMissing, e.Binary)
	}

	argv, err := shellquote.Split(e.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: binary %q: %v", ErrInvalidValue, e.Binary, err)
	}

	var arguments []string
	switch {
	case fullscreen && e.Fullscreen != "":
		arguments = append(arguments, e.Fullscreen)
	case e.Windowed != "":
		arguments = append(arguments, e.Windowed)
	}
	switch {
	case game.Default != "":
		arguments = append(arguments, game.Default)
	case e.Default != "":
		arguments = append(arguments, e.Default)
	}

	placeholders := []placeholder{
		{token: "<conf_path>", value: pathutil.ExpandUser(e.Configuration)},
		{token: "<rom_path>", value: filepath.Dir(game.Path), rom: true},
		{token: "<rom_name>", value: pathutil.Stem(game.Path), rom: true},
		{token: "<rom_file>", value: game.Path, rom: true},
	}
	if game.Key != "" {
		placeholders = append(placeholders, placeholder{token: "<key>", value: game.Key, verbatim: true})
	}

	substituted, romUsed := substitute(strings.Join(arguments, " "), placeholders)
	tokens, err := shellquote.Split(substituted)
	if err != nil {
		return nil, fmt.Errorf("%w: arguments %q: %v", ErrInvalidValue, substituted, err)
	}
	argv = append(argv, tokens...)

	if !romUsed {
		argv = append(argv, game.Path)
	}
	return argv, nil
}

// ExpandTemplate fills the savestate/screenshot template for game and
// returns the regular files matching its last path segment, sorted. The
// <rom_path>, <name>, <lname> and <key> placeholders are recognised.
func (e *Emulator) ExpandTemplate(template string, game *Game) []string {
	template = strings.TrimSpace(template)
	if template == "" || game == nil {
		return nil
	}

	stem := pathutil.Stem(game.Path)
	values := []string{
		"<rom_path>", filepath.Dir(game.Path),
		"<name>", stem,
		"<lname>", strings.ToLower(stem),
	}
	if game.Key != "" {
		values = append(values, "<key>", game.Key)
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		if i%2 == 1 {
			v = escapeGlob(v)
		}
		escaped[i] = v
	}

	template = pathutil.ExpandUser(template)
	dir := strings.NewReplacer(values...).Replace(filepath.Dir(template))
	pattern := strings.NewReplacer(escaped...).Replace(filepath.Base(template))

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil
	}

	var files []string
	for _, match := range matches {
		path := filepath.Join(dir, filepath.FromSlash(match))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

// Savestates returns the savestate files of game.
func (e *Emulator) Savestates(game *Game) []string {
	return e.ExpandTemplate(e.SaveTemplate, game)
}

// Screenshots returns the screenshot files of game.
func (e *Emulator) Screenshots(game *Game) []string {
	return e.ExpandTemplate(e.SnapsTemplate, game)
}

func escapeGlob(value string) string {
	var b strings.Builder
	for _, r := range value {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
