//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is an interface that *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy.
// Schema management, loading and reads all go through it so that tests can
// substitute a fake.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuoteIdentifier quotes a table or column name for use in generated SQL.
func QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
