/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/pathutil"
)

var (
	commandFullscreen bool

	recordDuration time.Duration
	recordStart    string

	setFavorite    bool
	setMultiplayer bool
	setFinish      bool
	setScore       int
	setTags        []string
	setEnvironment []string
	setArguments   string
	setEmulator    string
)

var commandCmd = &cobra.Command{
	Use:   "command <console> <game>",
	Short: "Print the command line launching a game",
	Args:  cobra.ExactArgs(2),
	RunE:  runCommand,
}

var showCmd = &cobra.Command{
	Use:   "show <console> <game>",
	Short: "Show the details of a game",
	Args:  cobra.ExactArgs(2),
	RunE:  runShow,
}

var recordCmd = &cobra.Command{
	Use:   "record <console> <game>",
	Short: "Record a finished emulator run",
	Long: `Record a finished emulator run: the launch counter is incremented, the
duration is added to the play time and the last launch is updated.

Examples:
  gem record nintendo-nes zelda-1234 --duration 42m
  gem record nintendo-nes zelda-1234 --duration 1h10m --start 2024-05-01`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

var setCmd = &cobra.Command{
	Use:   "set <console> <game>",
	Short: "Change the metadata of a game",
	Args:  cobra.ExactArgs(2),
	RunE:  runSet,
}

func init() {
	commandCmd.Flags().BoolVarP(&commandFullscreen, "fullscreen", "f", false, "Use the fullscreen arguments")

	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Duration of the run")
	recordCmd.Flags().StringVar(&recordStart, "start", "", "Date of the run (default: today)")
	recordCmd.MarkFlagRequired("duration")

	setCmd.Flags().BoolVar(&setFavorite, "favorite", false, "Mark as favorite")
	setCmd.Flags().BoolVar(&setMultiplayer, "multiplayer", false, "Mark as multiplayer")
	setCmd.Flags().BoolVar(&setFinish, "finish", false, "Mark as finished")
	setCmd.Flags().IntVar(&setScore, "score", 0, "Score between 0 and 5")
	setCmd.Flags().StringSliceVar(&setTags, "tag", nil, "Tags (repeatable, replaces the current tags)")
	setCmd.Flags().StringArrayVar(&setEnvironment, "env", nil, "Environment variable KEY=VALUE (repeatable, replaces the current ones)")
	setCmd.Flags().StringVar(&setArguments, "arguments", "", "Arguments replacing the emulator default ones")
	setCmd.Flags().StringVar(&setEmulator, "emulator", "", "Emulator overriding the console default")

	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(setCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	game, err := findGame(lib, args[0], args[1])
	if err != nil {
		return err
	}
	argv, err := game.CommandLine(commandFullscreen)
	if err != nil {
		return err
	}
	if argv == nil {
		return fmt.Errorf("no emulator bound to %s", game.ID)
	}
	fmt.Println(shellquote.Join(argv...))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	game, err := findGame(lib, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("ID:           %s\n", game.ID)
	fmt.Printf("Name:         %s\n", game.Name)
	fmt.Printf("Path:         %s\n", game.Path)
	fmt.Printf("Installed:    %s\n", humanize.Time(game.Installed))
	fmt.Printf("Played:       %s\n", humanize.Comma(int64(game.Played)))
	fmt.Printf("Play time:    %s\n", pathutil.FormatDuration(game.PlayTime))
	fmt.Printf("Last launch:  %s (%s)\n", lastLaunch(game), pathutil.FormatDuration(game.LastLaunchTime))
	fmt.Printf("Flags:        %s\n", flags(game))
	fmt.Printf("Tags:         %s\n", strings.Join(game.Tags, ", "))
	fmt.Printf("Notes:        %s\n", lib.NotesPath(game))
	fmt.Printf("Run log:      %s\n", lib.RunLogPath(game))
	if game.Emulator != nil {
		fmt.Printf("Emulator:     %s\n", game.Emulator.Name)
		for _, path := range game.Emulator.Savestates(game) {
			fmt.Printf("Savestate:    %s\n", path)
		}
		for _, path := range game.Emulator.Screenshots(game) {
			fmt.Printf("Screenshot:   %s\n", path)
		}
	}
	for key, value := range game.Environment {
		fmt.Printf("Environment:  %s=%s\n", key, value)
	}
	return nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	game, err := findGame(lib, args[0], args[1])
	if err != nil {
		return err
	}

	start := time.Now()
	if recordStart != "" {
		if start, err = pathutil.ParseDate(recordStart); err != nil {
			return err
		}
	}
	game.RecordRun(start, recordDuration)
	if err := lib.UpdateGame(game); err != nil {
		return err
	}

	fmt.Printf("%s: played %d times, %s in total\n", game.Name, game.Played, pathutil.FormatDuration(game.PlayTime))
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	game, err := findGame(lib, args[0], args[1])
	if err != nil {
		return err
	}

	flagSet := cmd.Flags()
	if flagSet.Changed("favorite") {
		game.Favorite = setFavorite
	}
	if flagSet.Changed("multiplayer") {
		game.Multiplayer = setMultiplayer
	}
	if flagSet.Changed("finish") {
		game.Finish = setFinish
	}
	if flagSet.Changed("score") {
		game.SetScore(setScore)
	}
	if flagSet.Changed("tag") {
		game.SetTags(setTags)
	}
	if flagSet.Changed("arguments") {
		game.Default = setArguments
	}
	if flagSet.Changed("emulator") {
		emulator := lib.GetEmulator(setEmulator)
		if emulator == nil {
			return fmt.Errorf("unknown emulator %q", setEmulator)
		}
		game.Emulator = emulator
	}
	if flagSet.Changed("env") {
		game.Environment = map[string]string{}
		for _, pair := range setEnvironment {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid environment variable %q, expected KEY=VALUE", pair)
			}
			game.Environment[strings.ToUpper(key)] = value
		}
	}

	return lib.UpdateGame(game)
}
