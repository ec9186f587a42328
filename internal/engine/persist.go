/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pingax/gem-sub001/internal/db"
	"github.com/pingax/gem-sub001/internal/inifile"
	"github.com/pingax/gem-sub001/internal/pathutil"
)

// writeSection replaces section with options, sorted by key.
func writeSection(f *inifile.File, section string, options map[string]string) error {
	f.RemoveSection(section)
	if err := f.AddSection(section); err != nil {
		return err
	}
	keys := make([]string, 0, len(options))
	for key := range options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		f.Set(section, key, options[key])
	}
	return nil
}

// WriteObject writes one console or emulator to its configuration file.
func (a *API) WriteObject(entity any) error {
	var (
		f       *inifile.File
		section string
		options map[string]string
	)
	switch e := entity.(type) {
	case *Console:
		f, section, options = a.consolesINI, e.Name, e.AsMap()
	case *Emulator:
		f, section, options = a.emulatorINI, e.Name, e.AsMap()
	default:
		return fmt.Errorf("%w: cannot write %T", ErrInvalidValue, entity)
	}
	if f == nil {
		return fmt.Errorf("write %s: library not initialised", section)
	}
	if err := writeSection(f, section, options); err != nil {
		return err
	}
	return f.Update()
}

// WriteData rewrites the named configuration files (consoles.conf,
// emulators.conf) from the registries. Each previous file is kept as
// ~<name>. Pending emulator renames are then applied to the games table.
// The first failure stops the whole operation.
func (a *API) WriteData(files ...string) error {
	for _, name := range files {
		var f *inifile.File
		var err error
		switch name {
		case ConsolesFile:
			f, err = a.rewrite(name, a.consoleSections())
			if err == nil {
				a.consolesINI = f
			}
		case EmulatorsFile:
			f, err = a.rewrite(name, a.emulatorSections())
			if err == nil {
				a.emulatorINI = f
			}
		default:
			err = fmt.Errorf("%w: unknown configuration file %q", ErrInvalidValue, name)
		}
		if err != nil {
			a.logger.Error().Err(err).Str("file", name).Msg("cannot write configuration")
			return err
		}
		a.logger.Info().Str("file", f.Path()).Msg("configuration written")
	}

	return a.applyRenames()
}

type section struct {
	name    string
	options map[string]string
}

func (a *API) consoleSections() []section {
	var out []section
	for _, c := range a.GetConsoles() {
		out = append(out, section{name: c.Name, options: c.AsMap()})
	}
	return out
}

func (a *API) emulatorSections() []section {
	var out []section
	for _, e := range a.GetEmulators() {
		out = append(out, section{name: e.Name, options: e.AsMap()})
	}
	return out
}

// rewrite moves the current file to its backup and writes sections, in
// order, to a fresh one.
func (a *API) rewrite(name string, sections []section) (*inifile.File, error) {
	path := filepath.Join(a.configHome, name)
	backup := filepath.Join(a.configHome, "~"+name)
	if err := os.Rename(path, backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fileError(path, err)
	}

	f, err := inifile.Open(path)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if err := writeSection(f, s.name, s.options); err != nil {
			return nil, err
		}
	}
	if err := f.Update(); err != nil {
		return nil, err
	}
	return f, nil
}

// applyRenames points every games row using a renamed emulator, stored by
// name or by id, to its replacement.
func (a *API) applyRenames() error {
	if len(a.renames) == 0 {
		return nil
	}
	if a.database == nil {
		return ErrLockedInstance
	}

	values, err := a.database.Values(gamesTable, "emulator", nil)
	if err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, value := range values {
		stored, ok := value.(string)
		if !ok || stored == "" || seen[stored] {
			continue
		}
		seen[stored] = true

		target, ok := a.renames[stored]
		if !ok {
			target, ok = a.renames[pathutil.Slug(stored)]
		}
		if !ok {
			continue
		}
		if err := a.database.Update(gamesTable, db.Row{"emulator": target.Name}, db.Row{"emulator": stored}); err != nil {
			return err
		}
		a.logger.Debug().Str("from", stored).Str("to", target.Name).Msg("games emulator rewritten")
	}

	a.renames = map[string]*Emulator{}
	return nil
}
