/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package inifile wraps a single INI file for read-modify-write access.
// Section and option order is preserved; every write rewrites the whole file
// without comments.
package inifile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

var (
	// ErrNoSection is returned when an operation needs a section that does not exist.
	ErrNoSection = errors.New("no such section")
	// ErrDuplicateSection is returned by AddSection for an existing section.
	ErrDuplicateSection = errors.New("section already exists")
)

func init() {
	// Keep "key = value" without column alignment so rewrites stay diff-friendly.
	ini.PrettyFormat = false
}

var loadOptions = ini.LoadOptions{
	Loose:                    true,
	IgnoreInlineComment:      true,
	SpaceBeforeInlineComment: false,
	AllowBooleanKeys:         false,
	PreserveSurroundedQuote:  true,
}

// File is an INI document bound to a path on disk.
type File struct {
	path string
	cfg  *ini.File
}

// Open loads path. A missing file yields an empty document that Update will
// create.
func Open(path string) (*File, error) {
	f := &File{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse reads an INI document from memory. The returned File has no path and
// cannot be written with Update.
func Parse(data []byte) (*File, error) {
	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse ini: %w", err)
	}
	return &File{cfg: cfg}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Reload discards in-memory changes and reads the file again.
func (f *File) Reload() error {
	if f.path == "" {
		return fmt.Errorf("reload: in-memory document has no path")
	}
	cfg, err := ini.LoadSources(loadOptions, f.path)
	if err != nil {
		return fmt.Errorf("load %s: %w", f.path, err)
	}
	f.cfg = cfg
	return nil
}

// Update serialises the document to disk, replacing the previous content.
func (f *File) Update() error {
	if f.path == "" {
		return fmt.Errorf("update: in-memory document has no path")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.path, err)
	}

	for _, section := range f.cfg.Sections() {
		section.Comment = ""
		for _, key := range section.Keys() {
			key.Comment = ""
		}
	}

	if err := f.cfg.SaveTo(f.path); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

// Sections lists the section names in file order, without the implicit
// default section.
func (f *File) Sections() []string {
	names := make([]string, 0, len(f.cfg.Sections()))
	for _, name := range f.cfg.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		names = append(names, name)
	}
	return names
}

// HasSection reports whether section exists.
func (f *File) HasSection(section string) bool {
	if section == ini.DefaultSection {
		return false
	}
	return f.cfg.HasSection(section)
}

// AddSection creates an empty section.
func (f *File) AddSection(section string) error {
	if f.HasSection(section) {
		return fmt.Errorf("%s: %w", section, ErrDuplicateSection)
	}
	if _, err := f.cfg.NewSection(section); err != nil {
		return fmt.Errorf("add section %s: %w", section, err)
	}
	return nil
}

// RemoveSection deletes section and reports whether it existed.
func (f *File) RemoveSection(section string) bool {
	if !f.HasSection(section) {
		return false
	}
	f.cfg.DeleteSection(section)
	return true
}

// Options lists the option names of section in file order.
func (f *File) Options(section string) ([]string, error) {
	if !f.HasSection(section) {
		return nil, fmt.Errorf("%s: %w", section, ErrNoSection)
	}
	return f.cfg.Section(section).KeyStrings(), nil
}

// Items returns the options of section as a map.
func (f *File) Items(section string) (map[string]string, error) {
	if !f.HasSection(section) {
		return nil, fmt.Errorf("%s: %w", section, ErrNoSection)
	}
	return f.cfg.Section(section).KeysHash(), nil
}

// HasOption reports whether section holds option.
func (f *File) HasOption(section, option string) bool {
	return f.HasSection(section) && f.cfg.Section(section).HasKey(option)
}

// Get returns the option value, or fallback when the section or option is
// missing.
func (f *File) Get(section, option, fallback string) string {
	if !f.HasOption(section, option) {
		return fallback
	}
	return f.cfg.Section(section).Key(option).String()
}

// GetBool reads an option as a boolean. "yes", "true", "on" and "1" are true;
// "no", "false", "off" and "0" are false; anything else yields fallback.
func (f *File) GetBool(section, option string, fallback bool) bool {
	if !f.HasOption(section, option) {
		return fallback
	}
	if b, ok := ParseBool(f.cfg.Section(section).Key(option).String()); ok {
		return b
	}
	return fallback
}

// Set stores value, creating the section when needed.
func (f *File) Set(section, option, value string) {
	f.cfg.Section(section).Key(option).SetValue(value)
}

// SetBool stores b as "yes" or "no".
func (f *File) SetBool(section, option string, b bool) {
	f.Set(section, option, FormatBool(b))
}

// RemoveOption deletes option from section and reports whether it existed.
func (f *File) RemoveOption(section, option string) bool {
	if !f.HasOption(section, option) {
		return false
	}
	f.cfg.Section(section).DeleteKey(option)
	return true
}

// AddMissingData copies every section and option of other that is absent
// here. It reports whether anything was added; the caller decides when to
// Update.
func (f *File) AddMissingData(other *File) bool {
	modified := false
	for _, section := range other.Sections() {
		for _, option := range other.cfg.Section(section).KeyStrings() {
			if f.HasOption(section, option) {
				continue
			}
			f.Set(section, option, other.cfg.Section(section).Key(option).String())
			modified = true
		}
		if !f.HasSection(section) {
			// Sections without options still need to exist.
			_, _ = f.cfg.NewSection(section)
			modified = true
		}
	}
	return modified
}

// AddMissingDataFrom loads the reference file at path and merges it with
// AddMissingData.
func (f *File) AddMissingDataFrom(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, err
	}
	other, err := Open(path)
	if err != nil {
		return false, err
	}
	return f.AddMissingData(other), nil
}

// ParseBool accepts the yes/no and true/false spellings used in the
// configuration files.
func ParseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true", "on", "1":
		return true, true
	case "no", "false", "off", "0":
		return false, true
	}
	return false, false
}

// FormatBool renders b the way the configuration files store booleans.
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
