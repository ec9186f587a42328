/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/config"
	"github.com/pingax/gem-sub001/internal/engine"
	"github.com/pingax/gem-sub001/internal/version"
)

var (
	cfg *config.Config

	flagConfigHome string
	flagDataHome   string
	flagDebug      bool
)

var rootCmd = &cobra.Command{
	Use:   "gem",
	Short: "gem - Graphical Emulators Manager",
	Long: `gem indexes the ROMs of your consoles, pairs them with emulator profiles
and keeps play statistics, tags and per-game settings.

The configuration root holds gem.conf, consoles.conf, emulators.conf and
environment.conf. The data root holds the database, the log and the lock.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigHome, "config", "", "Configuration root (default: $GEM_CONFIG_HOME or ~/.config/gem)")
	rootCmd.PersistentFlags().StringVar(&flagDataHome, "data", "", "Local data root (default: $GEM_DATA_HOME or ~/.local/share/gem)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagConfigHome != "" {
		cfg.ConfigHome = flagConfigHome
	}
	if flagDataHome != "" {
		cfg.DataHome = flagDataHome
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg.Validate()
}

// openLibrary starts the library and loads its configuration files.
// The returned function releases the database and the lock.
func openLibrary() (*engine.API, func(), error) {
	if err := loadConfig(); err != nil {
		return nil, nil, err
	}

	lib, err := engine.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("start library: %w", err)
	}
	closeLibrary := func() {
		if err := lib.Close(); err != nil {
			lib.Logger().Error().Err(err).Msg("close library")
		}
		if err := lib.FreeLock(); err != nil {
			lib.Logger().Error().Err(err).Msg("release lock")
		}
	}

	if err := lib.Init(); err != nil {
		closeLibrary()
		switch {
		case errors.Is(err, engine.ErrLockedInstance):
			return nil, nil, fmt.Errorf("gem is already running (pid %d)", lib.PID())
		case errors.Is(err, engine.ErrMigrationRequired):
			return nil, nil, fmt.Errorf("the database needs a migration, run \"gem migrate\" first")
		}
		return nil, nil, fmt.Errorf("load library: %w", err)
	}
	return lib, closeLibrary, nil
}

// findGame scans consoleID and returns gameID.
func findGame(lib *engine.API, consoleID, gameID string) (*engine.Game, error) {
	console := lib.GetConsole(consoleID)
	if console == nil {
		return nil, fmt.Errorf("%w: console %s", engine.ErrUnknownID, consoleID)
	}
	if err := console.InitGames(); err != nil {
		return nil, err
	}
	game := console.GetGame(gameID)
	if game == nil {
		return nil, fmt.Errorf("%w: game %s", engine.ErrUnknownID, gameID)
	}
	return game, nil
}
