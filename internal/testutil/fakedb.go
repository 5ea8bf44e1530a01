//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Statement is a statement recorded by FakeDB.
type Statement struct {
	SQL  string
	Args []any
	InTx bool
}

// FakeDB is an in-memory stand-in for a pgx pool. It records every
// statement and answers queries through QueryFunc.
type FakeDB struct {
	mu sync.Mutex

	Statements []Statement
	Begins     int
	Commits    int
	Rollbacks  int

	// ExecFunc, when set, decides the result of each Exec. The statement
	// number counts every Exec issued so far, starting at 0.
	ExecFunc func(n int, sql string, args []any) (pgconn.CommandTag, error)

	// QueryFunc, when set, answers Query and QueryRow.
	QueryFunc func(sql string, args []any) (*FakeRows, error)
}

// NewFakeDB returns an empty FakeDB.
func NewFakeDB() *FakeDB {
	return &FakeDB{}
}

func (f *FakeDB) exec(sql string, args []any, inTx bool) (pgconn.CommandTag, error) {
	f.mu.Lock()
	n := len(f.Statements)
	f.Statements = append(f.Statements, Statement{SQL: sql, Args: args, InTx: inTx})
	fn := f.ExecFunc
	f.mu.Unlock()

	if fn != nil {
		return fn(n, sql, args)
	}
	return pgconn.NewCommandTag("INSERT 0 0"), nil
}

func (f *FakeDB) query(sql string, args []any) (*FakeRows, error) {
	f.mu.Lock()
	f.Statements = append(f.Statements, Statement{SQL: sql, Args: args})
	fn := f.QueryFunc
	f.mu.Unlock()

	if fn == nil {
		return &FakeRows{}, nil
	}
	return fn(sql, args)
}

// Begin starts a fake transaction.
func (f *FakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	f.mu.Lock()
	f.Begins++
	f.mu.Unlock()
	return &fakeTx{db: f}, nil
}

// Exec records the statement.
func (f *FakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return f.exec(sql, args, false)
}

// Query answers through QueryFunc.
func (f *FakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := f.query(sql, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow answers through QueryFunc and exposes the first row.
func (f *FakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	rows, err := f.query(sql, args)
	return &fakeRow{rows: rows, err: err}
}

// Snapshot returns a copy of the recorded statements.
func (f *FakeDB) Snapshot() []Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Statement, len(f.Statements))
	copy(out, f.Statements)
	return out
}

type fakeTx struct {
	db     *FakeDB
	closed bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("fake: nested transactions are not supported")
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.db.mu.Lock()
	t.db.Commits++
	t.db.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.db.mu.Lock()
	t.db.Rollbacks++
	t.db.mu.Unlock()
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("fake: CopyFrom is not supported")
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (t *fakeTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("fake: Prepare is not supported")
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.exec(sql, args, true)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Conn() *pgx.Conn {
	return nil
}

// FakeRows is a canned result set.
type FakeRows struct {
	Columns []string
	Data    [][]any
	pos     int
	closed  bool
	err     error
}

// NewFakeRows builds a result set from column names and row values.
func NewFakeRows(columns []string, data ...[]any) *FakeRows {
	return &FakeRows{Columns: columns, Data: data}
}

func (r *FakeRows) Close() { r.closed = true }

func (r *FakeRows) Err() error { return r.err }

func (r *FakeRows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.Data)))
}

func (r *FakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.Columns))
	for i, c := range r.Columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (r *FakeRows) Next() bool {
	if r.closed || r.pos >= len(r.Data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

// Scan assigns the current row to dest. Destinations implementing
// sql.Scanner scan the value themselves; others are converted when
// possible, and nil leaves the destination zeroed.
func (r *FakeRows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.Data) {
		return errors.New("fake: Scan called without a current row")
	}
	row := r.Data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("fake: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			r.err = err
			return err
		}
	}
	return nil
}

func (r *FakeRows) Values() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.Data) {
		return nil, errors.New("fake: Values called without a current row")
	}
	return r.Data[r.pos-1], nil
}

func (r *FakeRows) RawValues() [][]byte { return nil }

func (r *FakeRows) Conn() *pgx.Conn { return nil }

type fakeRow struct {
	rows *FakeRows
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

func assign(dest, value any) error {
	if sc, ok := dest.(sql.Scanner); ok {
		return sc.Scan(value)
	}
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("fake: destination %T is not a pointer", dest)
	}
	target := dv.Elem()
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	if target.Kind() == reflect.Pointer {
		inner := reflect.New(target.Type().Elem())
		if err := assign(inner.Interface(), value); err != nil {
			return err
		}
		target.Set(inner)
		return nil
	}
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Type().ConvertibleTo(target.Type()):
		target.Set(v.Convert(target.Type()))
	default:
		return fmt.Errorf("fake: cannot scan %T into %s", value, target.Type())
	}
	return nil
}
