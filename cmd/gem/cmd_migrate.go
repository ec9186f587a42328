/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/engine"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the database to the current schema",
	Long: `Rebuild every database table whose columns differ from the schema shipped
with this version. Rows keep the values of the columns that still exist.

The database is copied to gem.db.bak first and restored from that copy when
the migration fails.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	lib, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("start library: %w", err)
	}
	defer func() {
		_ = lib.Close()
		_ = lib.FreeLock()
	}()

	if lib.IsLocked() {
		return fmt.Errorf("gem is already running (pid %d)", lib.PID())
	}
	if !lib.MigrationRequired() {
		fmt.Println("database is up to date")
		return nil
	}

	err = lib.CheckDatabase(func(table string, done, total int) {
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", table, done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	})
	if err != nil {
		return fmt.Errorf("migration failed, database restored: %w", err)
	}

	fmt.Println("database migrated")
	return nil
}
