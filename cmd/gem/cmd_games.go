/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pingax/gem-sub001/internal/engine"
	"github.com/pingax/gem-sub001/internal/pathutil"
)

var (
	gamesSearch    string
	gamesFavorites bool
)

var gamesCmd = &cobra.Command{
	Use:   "games [console...]",
	Short: "Scan consoles and list their games",
	Long: `Scan the ROM directory of each console and list its games with their
statistics. Without arguments every console is scanned.

Examples:
  gem games
  gem games nintendo-nes --search zelda
  gem games --favorites`,
	RunE: runGames,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the tags used by the games",
	RunE:  runTags,
}

func init() {
	gamesCmd.Flags().StringVarP(&gamesSearch, "search", "s", "", "Only list games whose name or id matches this expression")
	gamesCmd.Flags().BoolVar(&gamesFavorites, "favorites", false, "Only list favorite games")
	rootCmd.AddCommand(gamesCmd)
	rootCmd.AddCommand(tagsCmd)
}

func selectConsoles(lib *engine.API, ids []string) ([]*engine.Console, error) {
	if len(ids) == 0 {
		return lib.GetConsoles(), nil
	}
	var consoles []*engine.Console
	for _, id := range ids {
		c := lib.GetConsole(id)
		if c == nil {
			return nil, fmt.Errorf("%w: console %s", engine.ErrUnknownID, id)
		}
		consoles = append(consoles, c)
	}
	return consoles, nil
}

func runGames(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	consoles, err := selectConsoles(lib, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONSOLE\tID\tNAME\tPLAYED\tPLAY TIME\tLAST LAUNCH\tINSTALLED\tFLAGS")
	for _, c := range consoles {
		if err := c.InitGames(); err != nil {
			lib.Logger().Warn().Err(err).Str("console", c.ID).Msg("cannot scan console")
			continue
		}

		games := c.GetGames()
		if gamesSearch != "" {
			found, err := c.SearchGame(gamesSearch)
			if err != nil {
				return err
			}
			games = games[:0]
			for g := range found {
				games = append(games, g)
			}
		}

		for _, g := range games {
			if gamesFavorites && !g.Favorite {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				c.ID, g.ID, g.Name, g.Played,
				pathutil.FormatDuration(g.PlayTime),
				lastLaunch(g), humanize.Time(g.Installed), flags(g))
		}
	}
	return w.Flush()
}

func lastLaunch(g *engine.Game) string {
	if g.LastLaunchDate.IsZero() {
		return "never"
	}
	return humanize.Time(g.LastLaunchDate)
}

func flags(g *engine.Game) string {
	var out []string
	if g.Favorite {
		out = append(out, "favorite")
	}
	if g.Multiplayer {
		out = append(out, "multiplayer")
	}
	if g.Finish {
		out = append(out, "finished")
	}
	if g.Score > 0 {
		out = append(out, strings.Repeat("*", g.Score))
	}
	return strings.Join(out, ",")
}

func runTags(cmd *cobra.Command, args []string) error {
	lib, closeLibrary, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLibrary()

	for _, c := range lib.GetConsoles() {
		if err := c.InitGames(); err != nil {
			lib.Logger().Warn().Err(err).Str("console", c.ID).Msg("cannot scan console")
		}
	}
	for _, tag := range lib.GetGameTags() {
		fmt.Println(tag)
	}
	return nil
}
