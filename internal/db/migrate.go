/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// ProgressFunc observes a migration: it is called once per copied row.
type ProgressFunc func(table string, done, total int)

// CreateTable creates a declared table.
func (d *Database) CreateTable(name string) error {
	table, ok := d.schema.Table(name)
	if !ok {
		return fmt.Errorf("create table %s: %w", name, ErrUnknownTable)
	}

	definitions := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		definitions[i] = c.Definition()
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(definitions, ", "))
	if err := d.conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	d.logger.Debug().Str("table", name).Msg("table created")
	return nil
}

// RenameTable renames a table in the file.
func (d *Database) RenameTable(oldName, newName string) error {
	if !d.HasTable(oldName) {
		return fmt.Errorf("rename table %s: %w", oldName, ErrUnknownTable)
	}
	if err := d.conn.Migrator().RenameTable(oldName, newName); err != nil {
		return fmt.Errorf("rename table %s to %s: %w", oldName, newName, err)
	}
	return nil
}

// RemoveTable drops a table from the file.
func (d *Database) RemoveTable(name string) error {
	if err := d.conn.Migrator().DropTable(name); err != nil {
		return fmt.Errorf("remove table %s: %w", name, err)
	}
	return nil
}

// HasTable reports whether the file holds table name.
func (d *Database) HasTable(name string) bool {
	return d.conn.Migrator().HasTable(name)
}

// Tables lists the tables stored in the file, without SQLite internals.
func (d *Database) Tables() ([]string, error) {
	names, err := d.conn.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "sqlite_") {
			continue
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// AddColumn appends a column to an existing table.
func (d *Database) AddColumn(table, name, sqlType string) error {
	column, err := parseColumn(name, sqlType)
	if err != nil {
		return err
	}
	if !d.HasTable(table) {
		return fmt.Errorf("add column %s: %w", name, ErrUnknownTable)
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(table), column.Definition())
	if err := d.conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, name, err)
	}
	return nil
}

type columnInfo struct {
	Cid  int
	Name string
	Type string
}

// Columns returns the stored column names of table in order.
func (d *Database) Columns(table string) ([]string, error) {
	if !d.HasTable(table) {
		return nil, fmt.Errorf("columns of %s: %w", table, ErrUnknownTable)
	}
	var infos []columnInfo
	if err := d.conn.Raw(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table))).Scan(&infos).Error; err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	slices.SortFunc(infos, func(a, b columnInfo) int { return a.Cid - b.Cid })

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// CheckIntegrity reports whether the stored tables are exactly the declared
// ones and every table's column order matches its declaration.
func (d *Database) CheckIntegrity() (bool, error) {
	stored, err := d.Tables()
	if err != nil {
		return false, err
	}
	declared := d.schema.TableNames()

	if len(stored) != len(declared) {
		d.logger.Debug().Strs("stored", stored).Strs("declared", declared).Msg("table sets differ")
		return false, nil
	}
	for _, name := range declared {
		if !slices.Contains(stored, name) {
			d.logger.Debug().Str("table", name).Msg("declared table missing")
			return false, nil
		}
	}

	for _, table := range d.schema.Tables {
		columns, err := d.Columns(table.Name)
		if err != nil {
			return false, err
		}
		if !slices.Equal(columns, table.ColumnNames()) {
			d.logger.Debug().Str("table", table.Name).Strs("stored", columns).Strs("declared", table.ColumnNames()).Msg("column layout differs")
			return false, nil
		}
	}
	return true, nil
}

// BackupPath is where Migrate copies the database before changing it.
func (d *Database) BackupPath() string {
	return d.path + ".bak"
}

// Migrate rebuilds table from the schema, keeping the values of columns that
// are still declared and leaving new columns NULL. The file is backed up
// first and restored when any step fails.
func (d *Database) Migrate(table string, progress ProgressFunc) error {
	return d.withBackup(func() error {
		return d.migrateTable(table, progress)
	})
}

// MigrateAll brings every table in line with the schema: missing tables are
// created, tables with a different layout are rebuilt and undeclared tables
// are dropped. It runs under a single backup.
func (d *Database) MigrateAll(progress ProgressFunc) error {
	return d.withBackup(func() error {
		stored, err := d.Tables()
		if err != nil {
			return err
		}

		for _, name := range stored {
			if _, declared := d.schema.Table(name); declared {
				continue
			}
			d.logger.Warn().Str("table", name).Msg("dropping undeclared table")
			if err := d.RemoveTable(name); err != nil {
				return err
			}
		}

		for _, table := range d.schema.Tables {
			if !slices.Contains(stored, table.Name) {
				if err := d.CreateTable(table.Name); err != nil {
					return err
				}
				continue
			}
			columns, err := d.Columns(table.Name)
			if err != nil {
				return err
			}
			if slices.Equal(columns, table.ColumnNames()) {
				continue
			}
			if err := d.migrateTable(table.Name, progress); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Database) migrateTable(name string, progress ProgressFunc) error {
	table, ok := d.schema.Table(name)
	if !ok {
		return fmt.Errorf("migrate %s: %w", name, ErrUnknownTable)
	}

	columns, err := d.Columns(name)
	if err != nil {
		return err
	}
	rows, err := d.Select(name, []string{"*"}, nil)
	if err != nil {
		return err
	}

	sentinel := fmt.Sprintf("_%s_%s", name, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	if err := d.RenameTable(name, sentinel); err != nil {
		return err
	}
	if err := d.CreateTable(name); err != nil {
		return err
	}

	for i, values := range rows {
		row := make(Row, len(table.Columns))
		for _, declared := range table.Columns {
			row[declared.Name] = nil
		}
		for j, column := range columns {
			if _, kept := table.Column(column); kept && j < len(values) {
				row[column] = values[j]
			}
		}
		if err := d.Insert(name, row); err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
				d.logger.Error().
					Str("table", name).
					Int("row", i+1).
					Str("constraint", sqliteErr.ExtendedCode.Error()).
					Msg("row violates the declared layout")
			}
			return err
		}
		if progress != nil {
			progress(name, i+1, len(rows))
		}
	}

	if err := d.RemoveTable(sentinel); err != nil {
		return err
	}

	d.logger.Info().Str("table", name).Int("rows", len(rows)).Msg("table migrated")
	return nil
}

func (d *Database) withBackup(run func() error) error {
	backup := d.BackupPath()
	if err := copyFile(d.path, backup); err != nil {
		return fmt.Errorf("backup %s: %w", d.path, err)
	}

	runErr := run()
	if runErr == nil {
		return nil
	}

	d.logger.Error().Err(runErr).Str("backup", backup).Msg("migration failed, restoring backup")
	if err := d.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("close before restore")
	}
	if err := copyFile(backup, d.path); err != nil {
		return fmt.Errorf("%w: %v (restore from %s failed: %v)", ErrMigrationFailed, runErr, backup, err)
	}
	if err := d.reconnect(); err != nil {
		return fmt.Errorf("%w: %v (reopen failed: %v)", ErrMigrationFailed, runErr, err)
	}
	return fmt.Errorf("%w: %v", ErrMigrationFailed, runErr)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
