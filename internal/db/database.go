/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pingax/gem-sub001/internal/inifile"
)

// Row maps column names to values.
type Row map[string]any

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// whereClause renders an AND-joined equality filter; nil values match NULL.
func whereClause(where Row) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	for _, key := range sortedKeys(where) {
		if where[key] == nil {
			parts = append(parts, quoteIdent(key)+" IS NULL")
			continue
		}
		parts = append(parts, quoteIdent(key)+" = ?")
		args = append(args, where[key])
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// columnType returns the declared type of column, or "" when the table or
// column is not part of the schema.
func (d *Database) columnType(table, column string) string {
	t, ok := d.schema.Table(table)
	if !ok {
		return ""
	}
	c, ok := t.Column(column)
	if !ok {
		return ""
	}
	return c.Type
}

// filterColumns drops keys the schema does not declare for table. Tables
// outside the schema keep every key.
func (d *Database) filterColumns(table string, data Row) Row {
	t, ok := d.schema.Table(table)
	if !ok {
		return data
	}
	out := make(Row, len(data))
	for key, value := range data {
		c, declared := t.Column(key)
		if !declared {
			d.logger.Debug().Str("table", table).Str("column", key).Msg("dropping undeclared column")
			continue
		}
		out[key] = coerce(c.Type, value)
	}
	return out
}

// coerce converts value to the storage form of sqlType.
func coerce(sqlType string, value any) any {
	if value == nil {
		return nil
	}

	switch sqlType {
	case TypeNull:
		return nil
	case TypeBool:
		switch v := value.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if b, ok := inifile.ParseBool(v); ok {
				return coerce(TypeBool, b)
			}
		}
	case TypeInteger:
		switch v := value.(type) {
		case bool:
			return coerce(TypeBool, v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	case TypeReal:
		if v, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	case TypeText:
		switch v := value.(type) {
		case string:
			return v
		case []byte:
			return string(v)
		default:
			return fmt.Sprint(v)
		}
	case TypeBlob:
		if v, ok := value.(string); ok {
			return []byte(v)
		}
	}
	return value
}

// normalize converts a stored value back to its Go form: the literal "None"
// becomes nil and BOOL columns become bool.
func normalize(sqlType string, value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "None" {
			return nil
		}
	case []byte:
		if sqlType != TypeBlob {
			if string(v) == "None" {
				return nil
			}
			return string(v)
		}
	}

	if sqlType == TypeBool {
		switch v := value.(type) {
		case int64:
			return v != 0
		case bool:
			return v
		case string:
			if b, ok := inifile.ParseBool(v); ok {
				return b
			}
		}
	}
	return value
}

// Insert writes data as a new row. Keys outside the declared columns are
// ignored and values are coerced to the declared column types.
func (d *Database) Insert(table string, data Row) error {
	data = d.filterColumns(table, data)
	if len(data) == 0 {
		return fmt.Errorf("insert into %s: no declared columns in data", table)
	}

	keys := sortedKeys(data)
	columns := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		columns[i] = quoteIdent(key)
		placeholders[i] = "?"
		args[i] = data[key]
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if err := d.conn.Exec(stmt, args...).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Select returns the matching rows restricted to columns. A single "*"
// selects every column.
func (d *Database) Select(table string, columns []string, where Row) ([][]any, error) {
	selection := "*"
	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "*") {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		selection = strings.Join(quoted, ", ")
	}

	clause, args := whereClause(where)
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", selection, quoteIdent(table), clause)

	rows, err := d.conn.Raw(stmt, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(names))
		pointers := make([]any, len(names))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		for i, name := range names {
			values[i] = normalize(d.columnType(table, name), values[i])
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return result, nil
}

// Values returns one column of every matching row.
func (d *Database) Values(table, column string, where Row) ([]any, error) {
	if t, declared := d.schema.Table(table); declared {
		if _, ok := t.Column(column); !ok {
			return nil, fmt.Errorf("values of %s.%s: %w", table, column, ErrUnknownColumn)
		}
	}
	rows, err := d.Select(table, []string{column}, where)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(rows))
	for i, row := range rows {
		values[i] = row[0]
	}
	return values, nil
}

// Get returns the first row matching where as a column map, or nil when
// nothing matches.
func (d *Database) Get(table string, where Row) (Row, error) {
	columns, err := d.Columns(table)
	if err != nil {
		return nil, err
	}
	rows, err := d.Select(table, []string{"*"}, where)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := make(Row, len(columns))
	for i, column := range columns {
		if i < len(rows[0]) {
			row[column] = rows[0][i]
		}
	}
	return row, nil
}

// Update sets data on every row matching where.
func (d *Database) Update(table string, data Row, where Row) error {
	data = d.filterColumns(table, data)
	if len(data) == 0 {
		return nil
	}

	keys := sortedKeys(data)
	assignments := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(where))
	for i, key := range keys {
		assignments[i] = quoteIdent(key) + " = ?"
		args = append(args, data[key])
	}
	clause, whereArgs := whereClause(where)
	args = append(args, whereArgs...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s", quoteIdent(table), strings.Join(assignments, ", "), clause)
	if err := d.conn.Exec(stmt, args...).Error; err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// Remove deletes every row matching where.
func (d *Database) Remove(table string, where Row) error {
	clause, args := whereClause(where)
	stmt := fmt.Sprintf("DELETE FROM %s%s", quoteIdent(table), clause)
	if err := d.conn.Exec(stmt, args...).Error; err != nil {
		return fmt.Errorf("remove from %s: %w", table, err)
	}
	return nil
}

// Modify updates the rows matching where, or inserts data merged with where
// when none match.
func (d *Database) Modify(table string, data Row, where Row) error {
	rows, err := d.Select(table, []string{"*"}, where)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return d.Update(table, data, where)
	}

	merged := make(Row, len(data)+len(where))
	for k, v := range data {
		merged[k] = v
	}
	for k, v := range where {
		merged[k] = v
	}
	return d.Insert(table, merged)
}
