/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pingax/gem-sub001/internal/config"
	"github.com/pingax/gem-sub001/internal/db"
	"github.com/pingax/gem-sub001/internal/events"
	"github.com/pingax/gem-sub001/internal/inifile"
	"github.com/pingax/gem-sub001/internal/lock"
	"github.com/pingax/gem-sub001/internal/logging"
	"github.com/pingax/gem-sub001/internal/pathutil"
	"github.com/pingax/gem-sub001/internal/resources"
	"github.com/pingax/gem-sub001/internal/version"
)

// Files below the configuration and local data roots.
const (
	PreferencesFile = resources.Preferences
	ConsolesFile    = resources.Consoles
	EmulatorsFile   = resources.Emulators
	EnvironmentFile = "environment.conf"
	DatabaseFile    = "gem.db"
	LockFile        = ".lock"
)

const (
	gamesTable   = "games"
	versionTable = "gem"
)

// API is the library façade. It owns the emulator and console registries,
// the database and the instance lock.
type API struct {
	debug      bool
	program    string
	configHome string
	dataHome   string
	romsHome   string

	lock     *lock.Lock
	database *db.Database
	logFile  *logging.FileLogger
	logger   zerolog.Logger
	bus      *events.Bus

	preferences *inifile.File
	consolesINI *inifile.File
	emulatorINI *inifile.File
	environment *inifile.File

	emulators map[string]*Emulator
	consoles  map[string]*Console
	// renames maps a removed emulator id to its replacement until the
	// games table is rewritten by WriteData.
	renames map[string]*Emulator

	migrationRequired bool
}

// New creates the roots, acquires the instance lock and, unless another
// instance holds it, rotates the log and opens the database. Call Init to
// load the configuration files.
func New(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &API{
		debug:      cfg.Debug,
		program:    cfg.Program,
		configHome: cfg.ConfigHome,
		dataHome:   cfg.DataHome,
		romsHome:   filepath.Join(cfg.DataHome, "roms"),
		bus:        events.NewBus(),
		emulators:  map[string]*Emulator{},
		consoles:   map[string]*Console{},
		renames:    map[string]*Emulator{},
	}

	for _, dir := range []string{a.configHome, a.dataHome, a.romsHome} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fileError(dir, err)
		}
	}

	bootstrap := logging.Setup(a.debug)
	l, err := lock.Acquire(filepath.Join(a.dataHome, LockFile), a.program, bootstrap)
	if err != nil {
		return nil, err
	}
	a.lock = l
	a.logger = bootstrap.With().Str("component", "engine").Logger()
	if l.Locked() {
		return a, nil
	}

	logCfg, err := logging.LoadConfig()
	if err != nil {
		a.abort()
		return nil, err
	}
	a.logFile, err = logging.SetupFile(logCfg, a.dataHome, a.debug)
	if err != nil {
		a.abort()
		return nil, err
	}
	a.logger = a.logFile.Logger.With().Str("component", "engine").Logger()
	a.logger.Info().
		Str("version", version.Version).
		Str("config", a.configHome).
		Str("data", a.dataHome).
		Msg("starting library")

	if err := a.openDatabase(); err != nil {
		a.abort()
		return nil, err
	}
	return a, nil
}

// abort undoes a partial New: open handles are closed and the lock file is
// removed.
func (a *API) abort() {
	if err := a.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close after failed start")
	}
	if err := a.FreeLock(); err != nil {
		a.logger.Warn().Err(err).Msg("release lock after failed start")
	}
}

func (a *API) openDatabase() error {
	data, err := resources.Read(resources.Schema)
	if err != nil {
		return err
	}
	schema, err := db.ParseSchema(data)
	if err != nil {
		return err
	}

	a.database, err = db.Open(filepath.Join(a.dataHome, DatabaseFile), schema, a.debug, a.logger)
	if err != nil {
		return err
	}

	if err := a.checkVersion(); err != nil {
		return err
	}

	ok, err := a.database.CheckIntegrity()
	if err != nil {
		return err
	}
	a.migrationRequired = !ok
	if !ok {
		a.logger.Warn().Msg("database schema differs from the packaged one, migration required")
	}
	return nil
}

// checkVersion stores the running version in the version table when it
// differs from the recorded one.
func (a *API) checkVersion() error {
	values, err := a.database.Values(versionTable, "version", nil)
	if err != nil {
		return err
	}
	stored := ""
	if len(values) > 0 && values[0] != nil {
		stored = fmt.Sprint(values[0])
	}
	if stored == version.Version {
		return nil
	}

	switch {
	case stored == "":
		a.logger.Info().Str("version", version.Version).Msg("recording database version")
	case version.Compare(stored, version.Version) < 0:
		a.logger.Info().Str("from", stored).Str("to", version.Version).Msg("database upgraded")
	default:
		a.logger.Warn().Str("from", stored).Str("to", version.Version).Msg("database downgraded")
	}

	if err := a.database.Remove(versionTable, nil); err != nil {
		return err
	}
	return a.database.Insert(versionTable, db.Row{"version": version.Version})
}

// Init loads the configuration files and builds the emulator and console
// registries. Existing registries are replaced.
func (a *API) Init() error {
	if a.IsLocked() {
		return fmt.Errorf("%w: pid %d", ErrLockedInstance, a.PID())
	}
	if a.migrationRequired {
		return ErrMigrationRequired
	}

	var err error
	if a.preferences, err = a.loadPreferences(); err != nil {
		return err
	}
	if a.emulatorINI, err = a.loadConfig(EmulatorsFile, true); err != nil {
		return err
	}
	if a.consolesINI, err = a.loadConfig(ConsolesFile, true); err != nil {
		return err
	}
	if a.environment, err = a.loadConfig(EnvironmentFile, false); err != nil {
		return err
	}

	a.emulators = map[string]*Emulator{}
	a.consoles = map[string]*Console{}
	a.renames = map[string]*Emulator{}

	for _, section := range a.emulatorINI.Sections() {
		data, err := sectionData(a.emulatorINI, section)
		if err != nil {
			return err
		}
		e, err := NewEmulator(data)
		if err != nil {
			a.logger.Error().Err(err).Str("section", section).Msg("invalid emulator")
			continue
		}
		if _, dup := a.emulators[e.ID]; dup {
			a.logger.Warn().Str("emulator", e.ID).Str("section", section).Msg("duplicate emulator ignored")
			continue
		}
		a.emulators[e.ID] = e
	}

	for _, section := range a.consolesINI.Sections() {
		data, err := sectionData(a.consolesINI, section)
		if err != nil {
			return err
		}
		c, err := NewConsole(data, a)
		if err != nil {
			a.logger.Error().Err(err).Str("section", section).Msg("invalid console")
			continue
		}
		if _, dup := a.consoles[c.ID]; dup {
			a.logger.Warn().Str("console", c.ID).Str("section", section).Msg("duplicate console ignored")
			continue
		}
		a.consoles[c.ID] = c
	}

	a.logger.Info().
		Int("emulators", len(a.emulators)).
		Int("consoles", len(a.consoles)).
		Msg("library loaded")
	return nil
}

func sectionData(f *inifile.File, section string) (map[string]any, error) {
	items, err := f.Items(section)
	if err != nil {
		return nil, err
	}
	data := make(map[string]any, len(items)+1)
	for key, value := range items {
		data[key] = value
	}
	data["name"] = section
	return data, nil
}

// loadPreferences opens gem.conf and adds the options introduced by newer
// versions of the packaged file.
func (a *API) loadPreferences() (*inifile.File, error) {
	f, err := inifile.Open(filepath.Join(a.configHome, PreferencesFile))
	if err != nil {
		return nil, err
	}
	defaults, err := inifile.Parse(resources.MustRead(resources.Preferences))
	if err != nil {
		return nil, err
	}
	if f.AddMissingData(defaults) {
		if err := f.Update(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// loadConfig opens a file of the configuration root. A missing file is
// seeded with the packaged default when there is one.
func (a *API) loadConfig(name string, seed bool) (*inifile.File, error) {
	path := filepath.Join(a.configHome, name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && seed {
		data, err := resources.Read(name)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fileError(path, err)
		}
		a.logger.Info().Str("path", path).Msg("default configuration installed")
	}
	return inifile.Open(path)
}

// mergeGame applies the database row and the environment section of g.
func (a *API) mergeGame(g *Game) {
	if a.database != nil {
		row, err := a.database.Get(gamesTable, db.Row{"filename": g.Filename()})
		if err != nil {
			a.logger.Error().Err(err).Str("game", g.ID).Msg("cannot read game row")
		} else if row != nil {
			if err := g.apply(row, a.GetEmulator); err != nil {
				a.logger.Warn().Err(err).Str("game", g.ID).Msg("game row partially applied")
			}
		}
	}
	if a.environment != nil && a.environment.HasSection(g.ID) {
		if items, err := a.environment.Items(g.ID); err == nil {
			for key, value := range items {
				g.Environment[strings.ToUpper(key)] = value
			}
		}
	}
}

// Database returns the games database, nil for a locked instance.
func (a *API) Database() *db.Database { return a.database }

// Environment returns environment.conf, loaded by Init.
func (a *API) Environment() *inifile.File { return a.environment }

// Preferences returns gem.conf, loaded by Init.
func (a *API) Preferences() *inifile.File { return a.preferences }

// ConfigHome returns the configuration root.
func (a *API) ConfigHome() string { return a.configHome }

// DataHome returns the local data root.
func (a *API) DataHome() string { return a.dataHome }

// RomsHome returns the default ROM directory.
func (a *API) RomsHome() string { return a.romsHome }

// Logger returns the library logger.
func (a *API) Logger() zerolog.Logger { return a.logger }

// Events returns the bus receiving library changes.
func (a *API) Events() *events.Bus { return a.bus }

// MigrationRequired reports whether CheckDatabase must run before Init.
func (a *API) MigrationRequired() bool { return a.migrationRequired }

// NotesPath returns the file holding the notes of game.
func (a *API) NotesPath(game *Game) string {
	return filepath.Join(a.dataHome, "notes", game.ID+".txt")
}

// RunLogPath returns the file receiving the output of the emulator runs of
// game.
func (a *API) RunLogPath(game *Game) string {
	return filepath.Join(a.dataHome, "logs", pathutil.Stem(game.Path)+".log")
}

// GetConsoles returns the consoles sorted by id.
func (a *API) GetConsoles() []*Console {
	out := make([]*Console, 0, len(a.consoles))
	for _, c := range a.consoles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetEmulators returns the emulators sorted by id.
func (a *API) GetEmulators() []*Emulator {
	out := make([]*Emulator, 0, len(a.emulators))
	for _, e := range a.emulators {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetConsole returns the console with the given id or name, or nil.
func (a *API) GetConsole(idOrName string) *Console {
	if c, ok := a.consoles[idOrName]; ok {
		return c
	}
	return a.consoles[pathutil.Slug(idOrName)]
}

// GetEmulator returns the emulator with the given id or name, or nil.
func (a *API) GetEmulator(idOrName string) *Emulator {
	if e, ok := a.emulators[idOrName]; ok {
		return e
	}
	return a.emulators[pathutil.Slug(idOrName)]
}

func requireFields(data map[string]any, keys ...string) error {
	for _, key := range keys {
		value, ok := data[key]
		if !ok || value == nil || fmt.Sprint(value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, key)
		}
	}
	return nil
}

// AddConsole builds a console from data, which needs id and name, scans its
// games and registers it.
func (a *API) AddConsole(data map[string]any) (*Console, error) {
	if err := requireFields(data, "id", "name"); err != nil {
		return nil, err
	}
	if id := fmt.Sprint(data["id"]); a.consoles[id] != nil {
		return nil, fmt.Errorf("%w: console %s", ErrDuplicateID, id)
	}

	c, err := NewConsole(data, a)
	if err != nil {
		return nil, err
	}
	if _, dup := a.consoles[c.ID]; dup {
		return nil, fmt.Errorf("%w: console %s", ErrDuplicateID, c.ID)
	}
	if err := c.InitGames(); err != nil {
		return nil, err
	}

	a.consoles[c.ID] = c
	a.bus.Publish(events.EventConsoleAdded, events.Payload{"console": c.ID})
	a.logger.Info().Str("console", c.ID).Int("games", len(c.games)).Msg("console added")
	return c, nil
}

// AddEmulator builds an emulator from data, which needs id and name, and
// registers it.
func (a *API) AddEmulator(data map[string]any) (*Emulator, error) {
	if err := requireFields(data, "id", "name"); err != nil {
		return nil, err
	}
	if id := fmt.Sprint(data["id"]); a.emulators[id] != nil {
		return nil, fmt.Errorf("%w: emulator %s", ErrDuplicateID, id)
	}

	e, err := NewEmulator(data)
	if err != nil {
		return nil, err
	}
	if _, dup := a.emulators[e.ID]; dup {
		return nil, fmt.Errorf("%w: emulator %s", ErrDuplicateID, e.ID)
	}

	a.emulators[e.ID] = e
	a.bus.Publish(events.EventEmulatorAdded, events.Payload{"emulator": e.ID})
	a.logger.Info().Str("emulator", e.ID).Msg("emulator added")
	return e, nil
}

// DeleteConsole removes a console from the registry. Its games keep their
// database rows.
func (a *API) DeleteConsole(id string) error {
	if _, ok := a.consoles[id]; !ok {
		return fmt.Errorf("%w: console %s", ErrUnknownID, id)
	}
	delete(a.consoles, id)
	a.bus.Publish(events.EventConsoleDeleted, events.Payload{"console": id})
	a.logger.Info().Str("console", id).Msg("console deleted")
	return nil
}

// DeleteEmulator removes an emulator from the registry.
func (a *API) DeleteEmulator(id string) error {
	if _, ok := a.emulators[id]; !ok {
		return fmt.Errorf("%w: emulator %s", ErrUnknownID, id)
	}
	delete(a.emulators, id)
	a.bus.Publish(events.EventEmulatorDeleted, events.Payload{"emulator": id})
	a.logger.Info().Str("emulator", id).Msg("emulator deleted")
	return nil
}

// RenameEmulator records that oldID is now newID, which must be
// registered. Consoles and scanned games are updated at once; the games
// table is rewritten by WriteData.
func (a *API) RenameEmulator(oldID, newID string) error {
	e, ok := a.emulators[newID]
	if !ok {
		return fmt.Errorf("%w: emulator %s", ErrUnknownID, newID)
	}
	if oldID == newID {
		return nil
	}

	for previous, target := range a.renames {
		if target.ID == oldID {
			a.renames[previous] = e
		}
	}
	a.renames[oldID] = e

	for _, c := range a.consoles {
		if c.Emulator != nil && c.Emulator.ID == oldID {
			c.setEmulator(e)
		}
		for _, game := range c.games {
			if game.Emulator != nil && game.Emulator.ID == oldID {
				game.Emulator = e
			}
		}
	}

	a.bus.Publish(events.EventEmulatorRenamed, events.Payload{"from": oldID, "to": newID})
	a.logger.Info().Str("from", oldID).Str("to", newID).Msg("emulator renamed")
	return nil
}

// GetGame returns the game gameID of console consoleID, or nil.
func (a *API) GetGame(consoleID, gameID string) *Game {
	c := a.GetConsole(consoleID)
	if c == nil {
		return nil
	}
	return c.GetGame(gameID)
}

// GetGames returns the scanned games of every console.
func (a *API) GetGames() []*Game {
	var games []*Game
	for _, c := range a.GetConsoles() {
		games = append(games, c.games...)
	}
	return games
}

// GetGameTags returns the tags used by the scanned games, sorted.
func (a *API) GetGameTags() []string {
	var tags []string
	for _, game := range a.GetGames() {
		tags = append(tags, game.Tags...)
	}
	tags = uniqueStrings(tags)
	slices.Sort(tags)
	return tags
}

// UpdateGame stores the game row and rewrites its environment section.
func (a *API) UpdateGame(game *Game) error {
	if a.database == nil {
		return ErrLockedInstance
	}
	if err := a.database.Modify(gamesTable, game.AsMap(), db.Row{"filename": game.Filename()}); err != nil {
		return err
	}
	if err := a.writeEnvironment(game); err != nil {
		return err
	}
	a.bus.Publish(events.EventGameUpdated, events.Payload{"game": game.ID})
	a.logger.Debug().Str("game", game.ID).Msg("game updated")
	return nil
}

// DeleteGame removes the game row and its environment section.
func (a *API) DeleteGame(game *Game) error {
	if a.database == nil {
		return ErrLockedInstance
	}
	if err := a.database.Remove(gamesTable, db.Row{"filename": game.Filename()}); err != nil {
		return err
	}
	if a.environment != nil && a.environment.RemoveSection(game.ID) {
		if err := a.environment.Update(); err != nil {
			return err
		}
	}
	a.bus.Publish(events.EventGameDeleted, events.Payload{"game": game.ID})
	a.logger.Debug().Str("game", game.ID).Msg("game deleted")
	return nil
}

func (a *API) writeEnvironment(game *Game) error {
	if a.environment == nil {
		return nil
	}
	removed := a.environment.RemoveSection(game.ID)
	if len(game.Environment) == 0 && !removed {
		return nil
	}
	keys := make([]string, 0, len(game.Environment))
	for key := range game.Environment {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.environment.Set(game.ID, strings.ToUpper(key), game.Environment[key])
	}
	return a.environment.Update()
}

// CheckDatabase migrates every table whose columns differ from the packaged
// schema. On failure the database file is restored from its backup.
func (a *API) CheckDatabase(progress db.ProgressFunc) error {
	if a.database == nil {
		return ErrLockedInstance
	}
	err := a.database.MigrateAll(func(table string, done, total int) {
		if progress != nil {
			progress(table, done, total)
		}
		a.bus.Publish(events.EventMigrationProgress, events.Payload{
			"table": table,
			"done":  done,
			"total": total,
		})
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("database migration failed")
		return err
	}
	a.migrationRequired = false
	a.logger.Info().Msg("database migrated")
	return nil
}

// IsLocked reports whether another instance holds the lock.
func (a *API) IsLocked() bool {
	return a.lock != nil && a.lock.Locked()
}

// PID returns the pid recorded in the lock.
func (a *API) PID() int {
	if a.lock == nil {
		return 0
	}
	return a.lock.PID()
}

// FreeLock removes the lock file owned by this process.
func (a *API) FreeLock() error {
	if a.lock == nil {
		return nil
	}
	return a.lock.Release()
}

// Close releases the database and the log file. The lock is kept; see
// FreeLock.
func (a *API) Close() error {
	var errs []error
	if a.database != nil {
		errs = append(errs, a.database.Close())
		a.database = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}
