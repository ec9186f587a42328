package db

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

const gamesSchema = `
[gem]
version = TEXT

[games]
filename = TEXT
name = TEXT
favorite = BOOL
score = INTEGER
play_time = TEXT
cover = TEXT
`

const legacyGamesSchema = `
[gem]
version = TEXT

[games]
filename = TEXT
name = TEXT
favorite = BOOL
score = INTEGER
play_time = TEXT
`

func mustSchema(t *testing.T, data string) *Schema {
	t.Helper()
	schema, err := ParseSchema([]byte(data))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return schema
}

func openTestDatabase(t *testing.T, path, schema string) *Database {
	t.Helper()
	d, err := Open(path, mustSchema(t, schema), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestParseSchema(t *testing.T) {
	schema := mustSchema(t, "[games]\nfilename = TEXT PRIMARY KEY\nscore = integer\n")
	table, ok := schema.Table("games")
	if !ok {
		t.Fatal("games table not declared")
	}
	want := []Column{
		{Name: "filename", Type: TypeText, Modifiers: "PRIMARY KEY"},
		{Name: "score", Type: TypeInteger},
	}
	if !reflect.DeepEqual(table.Columns, want) {
		t.Fatalf("columns = %#v", table.Columns)
	}

	if _, err := ParseSchema([]byte("[games]\nname = VARCHAR\n")); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestOpenCreatesDeclaredTables(t *testing.T) {
	d := openTestDatabase(t, filepath.Join(t.TempDir(), "gem.db"), gamesSchema)

	tables, err := d.Tables()
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("tables = %v", tables)
	}
	ok, err := d.CheckIntegrity()
	if err != nil || !ok {
		t.Fatalf("integrity = %v, %v", ok, err)
	}
	columns, err := d.Columns("games")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"filename", "name", "favorite", "score", "play_time", "cover"}) {
		t.Fatalf("columns = %v", columns)
	}
}

func TestRowOperations(t *testing.T) {
	d := openTestDatabase(t, filepath.Join(t.TempDir(), "gem.db"), gamesSchema)

	if err := d.Insert("games", Row{
		"filename":  "mario.nes",
		"name":      "Super Mario Bros.",
		"favorite":  true,
		"score":     "4",
		"play_time": "00:42:00",
		"cover":     "None",
		"unknown":   "dropped",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	row, err := d.Get("games", Row{"filename": "mario.nes"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row["favorite"] != true {
		t.Fatalf("favorite = %#v", row["favorite"])
	}
	if row["score"] != int64(4) {
		t.Fatalf("score = %#v", row["score"])
	}
	if row["cover"] != nil {
		t.Fatalf("\"None\" should read back as nil, got %#v", row["cover"])
	}
	if _, present := row["unknown"]; present {
		t.Fatal("undeclared column should not be stored")
	}

	missing, err := d.Get("games", Row{"filename": "zelda.nes"})
	if err != nil || missing != nil {
		t.Fatalf("expected no row, got %v, %v", missing, err)
	}

	if err := d.Modify("games", Row{"name": "Zelda", "score": 5}, Row{"filename": "zelda.nes"}); err != nil {
		t.Fatalf("modify insert: %v", err)
	}
	if err := d.Modify("games", Row{"score": 3}, Row{"filename": "mario.nes"}); err != nil {
		t.Fatalf("modify update: %v", err)
	}

	names, err := d.Values("games", "filename", nil)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected two rows, got %v", names)
	}

	scores, err := d.Values("games", "score", Row{"filename": "mario.nes"})
	if err != nil || len(scores) != 1 || scores[0] != int64(3) {
		t.Fatalf("score after modify = %v, %v", scores, err)
	}

	rows, err := d.Select("games", []string{"filename", "favorite"}, nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || len(rows[0]) != 2 {
		t.Fatalf("select rows = %v", rows)
	}
	uncovered, err := d.Values("games", "filename", Row{"cover": nil})
	if err != nil || !reflect.DeepEqual(uncovered, []any{"zelda.nes"}) {
		t.Fatalf("rows without cover = %v, %v", uncovered, err)
	}

	if _, err := d.Values("games", "rating", nil); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}

	if err := d.Update("games", Row{"favorite": false}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	favorites, err := d.Values("games", "filename", Row{"favorite": 1})
	if err != nil || len(favorites) != 0 {
		t.Fatalf("favorites after update = %v, %v", favorites, err)
	}

	if err := d.Remove("games", Row{"filename": "zelda.nes"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	remaining, _ := d.Values("games", "filename", nil)
	if !reflect.DeepEqual(remaining, []any{"mario.nes"}) {
		t.Fatalf("remaining = %v", remaining)
	}
}

func TestSchemaOperations(t *testing.T) {
	d := openTestDatabase(t, filepath.Join(t.TempDir(), "gem.db"), gamesSchema)

	if err := d.AddColumn("games", "extra", "REAL"); err != nil {
		t.Fatalf("add column: %v", err)
	}
	if err := d.AddColumn("games", "broken", "DATE"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if ok, _ := d.CheckIntegrity(); ok {
		t.Fatal("extra column should break integrity")
	}

	if err := d.RenameTable("games", "roms"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if d.HasTable("games") || !d.HasTable("roms") {
		t.Fatal("rename did not take effect")
	}
	if err := d.RenameTable("games", "other"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if err := d.RemoveTable("roms"); err != nil {
		t.Fatalf("remove table: %v", err)
	}
	if err := d.CreateTable("games"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := d.CreateTable("nope"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if ok, _ := d.CheckIntegrity(); !ok {
		t.Fatal("integrity should be restored")
	}
}

func TestMigrateAddsMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gem.db")

	legacy, err := Open(path, mustSchema(t, legacyGamesSchema), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	for _, name := range []string{"a.nes", "b.nes", "c.nes"} {
		if err := legacy.Insert("games", Row{"filename": name, "name": name, "favorite": true, "score": 2}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d := openTestDatabase(t, path, gamesSchema)
	if ok, _ := d.CheckIntegrity(); ok {
		t.Fatal("expected integrity failure before migration")
	}

	var ticks []int
	err = d.MigrateAll(func(table string, done, total int) {
		if table != "games" || total != 3 {
			t.Errorf("unexpected progress %s %d/%d", table, done, total)
		}
		ticks = append(ticks, done)
	})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !reflect.DeepEqual(ticks, []int{1, 2, 3}) {
		t.Fatalf("progress ticks = %v", ticks)
	}
	if ok, err := d.CheckIntegrity(); !ok || err != nil {
		t.Fatalf("integrity after migration = %v, %v", ok, err)
	}

	for _, name := range []string{"a.nes", "b.nes", "c.nes"} {
		row, err := d.Get("games", Row{"filename": name})
		if err != nil || row == nil {
			t.Fatalf("row %s: %v, %v", name, row, err)
		}
		if row["cover"] != nil || row["favorite"] != true || row["score"] != int64(2) {
			t.Fatalf("row %s = %v", name, row)
		}
	}

	tables, _ := d.Tables()
	if len(tables) != 2 {
		t.Fatalf("sentinel table left behind: %v", tables)
	}
	if _, err := os.Stat(d.BackupPath()); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gem.db")

	legacy, err := Open(path, mustSchema(t, legacyGamesSchema), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	if err := legacy.Insert("games", Row{"filename": "a.nes", "name": "A"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = legacy.Close()

	strict := gamesSchema + "rating = INTEGER NOT NULL\n"
	d := openTestDatabase(t, path, strict)

	err = d.Migrate("games", nil)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	columns, err := d.Columns("games")
	if err != nil {
		t.Fatalf("columns after rollback: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"filename", "name", "favorite", "score", "play_time"}) {
		t.Fatalf("columns after rollback = %v", columns)
	}
	names, err := d.Values("games", "name", nil)
	if err != nil || !reflect.DeepEqual(names, []any{"A"}) {
		t.Fatalf("rows after rollback = %v, %v", names, err)
	}
	tables, _ := d.Tables()
	if len(tables) != 2 {
		t.Fatalf("tables after rollback = %v", tables)
	}
}

func TestCheckIntegrityDetectsColumnOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gem.db")

	swapped, err := Open(path, mustSchema(t, "[games]\nname = TEXT\nfilename = TEXT\n"), false, zerolog.Nop())
	if err != nil {
		t.Fatalf("open swapped: %v", err)
	}
	if err := swapped.Insert("games", Row{"filename": "mario.nes", "name": "Mario"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := swapped.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d := openTestDatabase(t, path, "[games]\nfilename = TEXT\nname = TEXT\n")
	if ok, err := d.CheckIntegrity(); ok || err != nil {
		t.Fatalf("integrity with swapped columns = %v, %v", ok, err)
	}

	if err := d.MigrateAll(nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if ok, err := d.CheckIntegrity(); !ok || err != nil {
		t.Fatalf("integrity after migration = %v, %v", ok, err)
	}
	columns, _ := d.Columns("games")
	if !reflect.DeepEqual(columns, []string{"filename", "name"}) {
		t.Fatalf("columns = %v", columns)
	}
	row, err := d.Get("games", Row{"filename": "mario.nes"})
	if err != nil || row == nil || row["name"] != "Mario" {
		t.Fatalf("row after migration = %v, %v", row, err)
	}
}
