/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/engine"
	"github.com/pingax/gem-sub001/internal/pathutil"
	"github.com/pingax/gem-sub001/internal/version"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [console...]",
	Short: "Scan consoles and write a JSON manifest of the library",
	Long: `Scan the ROM directory of each console and write the games with their
metadata and statistics as a JSON manifest.

Examples:
  gem export -o library.json
  gem export nintendo-nes  # output to stdout`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	consoles, err := selectConsoles(lib, args)
	if err != nil {
		return err
	}

	started := time.Now()
	manifest := buildManifest(consoles)
	manifest.Stats.DurationSeconds = time.Since(started).Seconds()

	fmt.Fprintf(os.Stderr, "Export complete: %d consoles, %d games, %d errors\n",
		manifest.Stats.TotalConsoles, manifest.Stats.TotalGames, manifest.Stats.Errors)

	// Write output
	var out *os.File
	if exportOutput != "" {
		out, err = os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()
	} else {
		out = os.Stdout
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if exportOutput != "" {
		fmt.Fprintf(os.Stderr, "Manifest written to %s\n", exportOutput)
	}
	return nil
}

func buildManifest(consoles []*engine.Console) *Manifest {
	manifest := &Manifest{
		Version:    version.Version,
		ExportedAt: time.Now().UTC(),
	}

	for _, c := range consoles {
		entry := ConsoleEntry{ID: c.ID, Name: c.Name, Path: c.Path, Games: []GameEntry{}}
		if c.Emulator != nil {
			entry.Emulator = c.Emulator.ID
		}
		if err := c.InitGames(); err != nil {
			entry.Error = err.Error()
			manifest.Stats.Errors++
		}
		for _, g := range c.GetGames() {
			entry.Games = append(entry.Games, gameEntry(g))
		}
		manifest.Stats.TotalGames += len(entry.Games)
		manifest.Consoles = append(manifest.Consoles, entry)
	}
	manifest.Stats.TotalConsoles = len(manifest.Consoles)
	return manifest
}

func gameEntry(g *engine.Game) GameEntry {
	entry := GameEntry{
		ID:             g.ID,
		Name:           g.Name,
		Path:           g.Path,
		Filename:       g.Filename(),
		Favorite:       g.Favorite,
		Multiplayer:    g.Multiplayer,
		Finish:         g.Finish,
		Score:          g.Score,
		Played:         g.Played,
		PlayTime:       pathutil.FormatDuration(g.PlayTime),
		LastLaunchDate: pathutil.FormatDate(g.LastLaunchDate),
		LastLaunchTime: pathutil.FormatDuration(g.LastLaunchTime),
		Installed:      g.Installed,
		Tags:           g.Tags,
		Environment:    g.Environment,
	}
	if g.Emulator != nil {
		entry.Emulator = g.Emulator.ID
	}
	return entry
}
