//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
)

// Column declares a table column.
type Column struct {
	Name string
	Type string

	// Generated columns are assigned by the database and never written by
	// the loader.
	Generated bool
}

// Constraint is a named uniqueness constraint.
type Constraint struct {
	Name    string
	Columns []string
}

// Index is a secondary index.
type Index struct {
	Name    string
	Columns []string
}

// Table declares a target table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	Unique     *Constraint
	Indexes    []Index
}

// ColumnNames returns every declared column name in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// InsertColumns returns the columns the loader writes, in order.
func (t Table) InsertColumns() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Generated {
			names = append(names, c.Name)
		}
	}
	return names
}

// HasColumn reports whether the table declares the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ConflictColumns returns the natural key used for conflict-ignore loads:
// the uniqueness constraint when declared, otherwise the primary key. A
// table keyed only by a generated column has no natural key.
func (t Table) ConflictColumns() []string {
	if t.Unique != nil {
		return t.Unique.Columns
	}
	for _, k := range t.PrimaryKey {
		for _, c := range t.Columns {
			if c.Name == k && c.Generated {
				return nil
			}
		}
	}
	return t.PrimaryKey
}

// CreateSQL returns the CREATE TABLE statement followed by its index
// statements.
func (t Table) CreateSQL() []string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", db.QuoteIdentifier(t.Name))

	defs := make([]string, 0, len(t.Columns)+2)
	for _, c := range t.Columns {
		defs = append(defs, fmt.Sprintf("    %s %s", db.QuoteIdentifier(c.Name), c.Type))
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("    PRIMARY KEY (%s)", quoteList(t.PrimaryKey)))
	}
	if t.Unique != nil {
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)",
			db.QuoteIdentifier(t.Unique.Name), quoteList(t.Unique.Columns)))
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)")

	stmts := []string{b.String()}
	for _, idx := range t.Indexes {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			db.QuoteIdentifier(idx.Name), db.QuoteIdentifier(t.Name), quoteList(idx.Columns)))
	}
	return stmts
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = db.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
