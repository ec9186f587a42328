/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/integrity"
)

var checkRepair bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report inconsistencies between configuration, database and ROM directories",
	Long: `Scan every console and report:
- consoles whose ROM directory cannot be read
- emulators whose binary is not installed
- game rows without a ROM in any console
- environment sections without a game
- game rows referencing an emulator that is not configured

Examples:
  gem check
  gem check --repair`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkRepair, "repair", false, "Repair the findings that can be repaired")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := integrity.NewService(lib, lib.Logger())
	report, err := svc.Scan(ctx)
	if err != nil {
		return fmt.Errorf("integrity scan: %w", err)
	}

	if report.Total == 0 {
		fmt.Println("no inconsistency found")
		return nil
	}

	for _, f := range report.Findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.ResourceID, f.Summary)
		if !checkRepair || !f.Repairable {
			continue
		}
		result, err := svc.Repair(ctx, integrity.RepairInput{Type: f.Type, ResourceID: f.ResourceID})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  repair failed: %v\n", err)
			continue
		}
		fmt.Printf("  %s\n", result.Message)
	}
	return nil
}
