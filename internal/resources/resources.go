/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resources embeds the files shipped with the program: the database
// schema, default configuration files and the logger configuration.
package resources

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed config
var files embed.FS

// Packaged file names.
const (
	Schema      = "databases.conf"
	Preferences = "gem.conf"
	Consoles    = "consoles.conf"
	Emulators   = "emulators.conf"
	Logger      = "log.yaml"
)

// Read returns the content of a packaged configuration file.
func Read(name string) ([]byte, error) {
	data, err := fs.ReadFile(files, "config/"+name)
	if err != nil {
		return nil, fmt.Errorf("packaged file %s: %w", name, err)
	}
	return data, nil
}

// MustRead is Read for files that are known to be embedded.
func MustRead(name string) []byte {
	data, err := Read(name)
	if err != nil {
		panic(err)
	}
	return data
}
