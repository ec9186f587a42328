/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import "time"

// Manifest is the top-level JSON structure produced by gem export.
type Manifest struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Consoles   []ConsoleEntry `json:"consoles"`
	Stats      ManifestStats  `json:"stats"`
}

// ConsoleEntry describes a console and the games found in its directory.
type ConsoleEntry struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Emulator string      `json:"emulator,omitempty"`
	Error    string      `json:"error,omitempty"`
	Games    []GameEntry `json:"games"`
}

// GameEntry describes a single game.
type GameEntry struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	Filename       string            `json:"filename"`
	Emulator       string            `json:"emulator,omitempty"`
	Favorite       bool              `json:"favorite"`
	Multiplayer    bool              `json:"multiplayer"`
	Finish         bool              `json:"finish"`
	Score          int               `json:"score"`
	Played         int               `json:"played"`
	PlayTime       string            `json:"play_time"`
	LastLaunchDate string            `json:"last_launch_date"`
	LastLaunchTime string            `json:"last_launch_time"`
	Installed      time.Time         `json:"installed"`
	Tags           []string          `json:"tags,omitempty"`
	Environment    map[string]string `json:"environment,omitempty"`
}

// ManifestStats holds aggregate export statistics.
type ManifestStats struct {
	TotalConsoles   int     `json:"total_consoles"`
	TotalGames      int     `json:"total_games"`
	Errors          int     `json:"errors"`
	DurationSeconds float64 `json:"duration_seconds"`
}
