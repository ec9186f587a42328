/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/pingax/gem-sub001/internal/inifile"
)

// SQL column types accepted in a schema file.
const (
	TypeNull    = "NULL"
	TypeBool    = "BOOL"
	TypeInteger = "INTEGER"
	TypeReal    = "REAL"
	TypeText    = "TEXT"
	TypeBlob    = "BLOB"
)

var knownTypes = map[string]bool{
	TypeNull:    true,
	TypeBool:    true,
	TypeInteger: true,
	TypeReal:    true,
	TypeText:    true,
	TypeBlob:    true,
}

// Column is one declared column: "<name> = <TYPE> [modifiers]".
type Column struct {
	Name      string
	Type      string
	Modifiers string
}

// Definition renders the column for a CREATE or ALTER statement.
func (c Column) Definition() string {
	def := quoteIdent(c.Name) + " " + c.Type
	if c.Modifiers != "" {
		def += " " + c.Modifiers
	}
	return def
}

// Table is a declared table with its columns in declaration order.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the declared column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a declared column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Schema is the ordered set of declared tables.
type Schema struct {
	Tables []Table
}

// Table looks up a declared table by name.
func (s *Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// TableNames returns the declared table names in order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// LoadSchema reads a schema INI file from disk.
func LoadSchema(path string) (*Schema, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	f, err := inifile.Open(path)
	if err != nil {
		return nil, err
	}
	return SchemaFromINI(f)
}

// ParseSchema reads a schema INI document from memory.
func ParseSchema(data []byte) (*Schema, error) {
	f, err := inifile.Parse(data)
	if err != nil {
		return nil, err
	}
	return SchemaFromINI(f)
}

// SchemaFromINI builds a Schema with one table per section and one column
// per option.
func SchemaFromINI(f *inifile.File) (*Schema, error) {
	schema := &Schema{}
	for _, section := range f.Sections() {
		options, err := f.Options(section)
		if err != nil {
			return nil, err
		}

		table := Table{Name: section}
		for _, option := range options {
			column, err := parseColumn(option, f.Get(section, option, ""))
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", section, err)
			}
			table.Columns = append(table.Columns, column)
		}
		schema.Tables = append(schema.Tables, table)
	}
	return schema, nil
}

func parseColumn(name, declaration string) (Column, error) {
	fields := strings.Fields(declaration)
	if len(fields) == 0 {
		return Column{}, fmt.Errorf("column %s: missing type: %w", name, ErrInvalidType)
	}
	sqlType := strings.ToUpper(fields[0])
	if !knownTypes[sqlType] {
		return Column{}, fmt.Errorf("column %s: %q: %w", name, fields[0], ErrInvalidType)
	}
	return Column{
		Name:      name,
		Type:      sqlType,
		Modifiers: strings.Join(fields[1:], " "),
	}, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
