//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package loader writes rows to PostgreSQL in chunks, one transaction per
// chunk, with conflict-safe inserts.
package loader

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// MaxParams is the PostgreSQL limit on bind parameters per statement.
const MaxParams = 65535

// DefaultChunkSize is the number of rows per transaction.
const DefaultChunkSize = 10000

// ConflictPolicy selects what happens to a row whose key already exists.
type ConflictPolicy int

const (
	// DoNothing skips rows whose key already exists.
	DoNothing ConflictPolicy = iota

	// DoUpdate overwrites the update columns of existing rows.
	DoUpdate
)

func (p ConflictPolicy) String() string {
	if p == DoUpdate {
		return "update"
	}
	return "nothing"
}

// Options configures a load.
type Options struct {
	// ChunkSize is the number of rows written per transaction.
	ChunkSize int

	// Policy is the conflict policy.
	Policy ConflictPolicy

	// ConflictColumns overrides the table's natural key.
	ConflictColumns []string

	// UpdateColumns lists the columns DoUpdate refreshes. It defaults to
	// every written column outside the conflict key.
	UpdateColumns []string

	// ProgressInterval is the row count between progress log lines.
	ProgressInterval int
}

// DefaultOptions returns conflict-ignore loading in chunks of 10,000 rows.
func DefaultOptions() Options {
	return Options{
		ChunkSize:        DefaultChunkSize,
		Policy:           DoNothing,
		ProgressInterval: 100000,
	}
}

// Result summarizes a load.
type Result struct {
	Table    string
	Rows     int
	Chunks   int
	Inserted int64
}

// Load writes rows to table. Each row holds the values of
// table.InsertColumns() in order. Rows are split into chunks of
// opts.ChunkSize; every chunk runs in its own transaction and is committed
// before the next one starts. A chunk too large for the bind parameter
// limit is sent as several statements inside the same transaction.
//
// When a chunk fails it is rolled back and a LoadError naming the chunk and
// its row range is returned; earlier chunks stay committed and later ones
// are not attempted. The context is checked between chunks.
func Load(ctx context.Context, d db.DB, table schema.Table, rows [][]any, opts Options) (Result, error) {
	res := Result{Table: table.Name, Rows: len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	stmt, err := newStatement(table, opts)
	if err != nil {
		return res, err
	}
	for i, row := range rows {
		if len(row) != len(stmt.columns) {
			return res, fmt.Errorf("row %d of %s has %d values, expected %d", i, table.Name, len(row), len(stmt.columns))
		}
	}

	chunkSize := opts.ChunkSize
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}

	logging.Debug().
		Str("table", table.Name).
		Int("rows", len(rows)).
		Int("chunk_size", chunkSize).
		Str("on_conflict", opts.Policy.String()).
		Msg("Loading table")

	progress := NewProgressReporter(table.Name, int64(len(rows)), int64(opts.ProgressInterval))
	for chunk, start := 0, 0; start < len(rows); chunk, start = chunk+1, start+chunkSize {
		end := min(start+chunkSize, len(rows))

		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("load of %s cancelled before chunk %d: %w", table.Name, chunk, err)
		}

		inserted, err := loadChunk(ctx, d, stmt, rows[start:end])
		if err != nil {
			logging.Error().
				Err(err).
				Str("table", table.Name).
				Int("chunk", chunk).
				Int("start", start).
				Int("end", end).
				Msg("Chunk rolled back")
			return res, &etlerr.LoadError{Table: table.Name, Chunk: chunk, Start: start, End: end, Err: err}
		}

		res.Chunks++
		res.Inserted += inserted
		progress.Update(int64(end - start))
	}
	progress.Done(res.Inserted)

	return res, nil
}

func loadChunk(ctx context.Context, d db.DB, stmt *statement, rows [][]any) (int64, error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var inserted int64
	for start := 0; start < len(rows); start += stmt.rowsPerStatement {
		end := min(start+stmt.rowsPerStatement, len(rows))
		sql, args := stmt.build(rows[start:end])
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return 0, err
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// statement renders multi-row INSERT statements for one table and policy.
type statement struct {
	prefix           string
	suffix           string
	columns          []string
	rowsPerStatement int
}

func newStatement(table schema.Table, opts Options) (*statement, error) {
	columns := table.InsertColumns()
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no insertable columns", table.Name)
	}

	conflict := opts.ConflictColumns
	if conflict == nil {
		conflict = table.ConflictColumns()
	}

	var suffix string
	switch {
	case len(conflict) == 0 && opts.Policy == DoUpdate:
		return nil, fmt.Errorf("table %s has no key to update on", table.Name)
	case len(conflict) == 0:
		// No natural key: plain append.
	case opts.Policy == DoUpdate:
		update := opts.UpdateColumns
		if update == nil {
			for _, c := range columns {
				if !slices.Contains(conflict, c) {
					update = append(update, c)
				}
			}
		}
		if len(update) == 0 {
			suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quoteList(conflict))
			break
		}
		sets := make([]string, len(update))
		for i, c := range update {
			if !slices.Contains(columns, c) {
				return nil, fmt.Errorf("update column %s is not written to %s", c, table.Name)
			}
			q := db.QuoteIdentifier(c)
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		suffix = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", quoteList(conflict), strings.Join(sets, ", "))
	default:
		suffix = fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", quoteList(conflict))
	}

	return &statement{
		prefix:           fmt.Sprintf("INSERT INTO %s (%s) VALUES ", db.QuoteIdentifier(table.Name), quoteList(columns)),
		suffix:           suffix,
		columns:          columns,
		rowsPerStatement: MaxParams / len(columns),
	}, nil
}

func (s *statement) build(rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString(s.prefix)

	args := make([]any, 0, len(rows)*len(s.columns))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
		args = append(args, row...)
	}
	b.WriteString(s.suffix)
	return b.String(), args
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = db.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
