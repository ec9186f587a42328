/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package db implements a typed table store whose layout is declared in a
// schema INI file and backed by SQLite through gorm.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnknownTable is returned for tables missing from the schema or the file.
	ErrUnknownTable = errors.New("unknown table")
	// ErrUnknownColumn is returned for columns a declared table does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidType is returned for unsupported SQL column types.
	ErrInvalidType = errors.New("invalid column type")
	// ErrMigrationFailed is returned when a migration was rolled back.
	ErrMigrationFailed = errors.New("database migration failed")
)

// Connect opens the SQLite file at path.
func Connect(path string, debug bool) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	level := logger.Silent
	if debug {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	conn, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}

	// One writer per process; the instance lock covers other processes.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return conn, nil
}

// Close releases database resources.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Database is the schema-driven store.
type Database struct {
	path   string
	schema *Schema
	debug  bool
	conn   *gorm.DB
	logger zerolog.Logger
}

// Open connects to path and creates every declared table missing from the
// file. Existing tables are left untouched; use Migrate to change them.
func Open(path string, schema *Schema, debug bool, log zerolog.Logger) (*Database, error) {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	conn, err := Connect(path, debug)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	d := &Database{
		path:   path,
		schema: schema,
		debug:  debug,
		conn:   conn,
		logger: log.With().Str("component", "database").Logger(),
	}

	for _, table := range schema.Tables {
		if !fresh && d.conn.Migrator().HasTable(table.Name) {
			continue
		}
		if err := d.CreateTable(table.Name); err != nil {
			_ = Close(conn)
			return nil, err
		}
	}

	d.logger.Debug().Str("path", path).Bool("fresh", fresh).Msg("database opened")
	return d, nil
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Schema returns the declared schema.
func (d *Database) Schema() *Schema {
	return d.schema
}

// Close releases the connection.
func (d *Database) Close() error {
	if d.conn == nil {
		return nil
	}
	err := Close(d.conn)
	d.conn = nil
	return err
}

func (d *Database) reconnect() error {
	conn, err := Connect(d.path, d.debug)
	if err != nil {
		return err
	}
	d.conn = conn
	return nil
}
