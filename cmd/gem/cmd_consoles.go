/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/engine"
)

var consolesCmd = &cobra.Command{
	Use:   "consoles",
	Short: "List the configured consoles",
	RunE:  runConsoles,
}

var emulatorsCmd = &cobra.Command{
	Use:   "emulators",
	Short: "List the configured emulators",
	RunE:  runEmulators,
}

var renameEmulatorCmd = &cobra.Command{
	Use:   "rename-emulator <old-id> <new-name>",
	Short: "Rename an emulator and update the games using it",
	Long: `Rename an emulator. The emulator is registered again under the new name,
consoles using it are updated and every game row referencing the old
emulator is rewritten. The previous emulators.conf is kept as ~emulators.conf.`,
	Args: cobra.ExactArgs(2),
	RunE: runRenameEmulator,
}

func init() {
	rootCmd.AddCommand(consolesCmd)
	rootCmd.AddCommand(emulatorsCmd)
	rootCmd.AddCommand(renameEmulatorCmd)
}

func runConsoles(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMULATOR\tEXTENSIONS\tPATH")
	for _, c := range lib.GetConsoles() {
		emulator := "-"
		if c.Emulator != nil {
			emulator = c.Emulator.ID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", c.ID, c.Name, emulator, c.Extensions, c.Path)
	}
	return w.Flush()
}

func runEmulators(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBINARY\tAVAILABLE")
	for _, e := range lib.GetEmulators() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", e.ID, e.Name, e.Binary, e.Exists())
	}
	return w.Flush()
}

func runRenameEmulator(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	oldID, newName := args[0], args[1]
	previous := lib.GetEmulator(oldID)
	if previous == nil {
		return fmt.Errorf("unknown emulator %q", oldID)
	}

	data := map[string]any{"id": newName, "name": newName}
	for key, value := range previous.AsMap() {
		data[key] = value
	}
	if err := lib.DeleteEmulator(previous.ID); err != nil {
		return err
	}
	renamed, err := lib.AddEmulator(data)
	if err != nil {
		return err
	}
	if err := lib.RenameEmulator(previous.ID, renamed.ID); err != nil {
		return err
	}
	if err := lib.WriteData(engine.ConsolesFile, engine.EmulatorsFile); err != nil {
		return err
	}

	fmt.Printf("%s renamed to %s\n", previous.ID, renamed.ID)
	return nil
}
