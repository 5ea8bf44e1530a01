//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package pipeline

import (
	"context"
	"errors"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/loader"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// Loader writes datasets to the database.
type Loader struct {
	db   db.DB
	reg  *schema.Registry
	opts loader.Options
}

// NewLoader returns a Loader for the tables declared by reg.
func NewLoader(d db.DB, reg *schema.Registry, opts loader.Options) *Loader {
	return &Loader{db: d, reg: reg, opts: opts}
}

// LoadDataset loads every table of ds in dependency order. A table whose
// load fails is reported and the remaining tables are still attempted; the
// returned error joins every failure. Cancellation stops the run at once.
func (l *Loader) LoadDataset(ctx context.Context, ds *Dataset) ([]loader.Result, error) {
	var (
		results []loader.Result
		errs    []error
	)

	for _, t := range ds.Tables() {
		table, ok := l.reg.Table(t.Name)
		if !ok {
			errs = append(errs, &etlerr.SchemaError{Table: t.Name, Err: errors.New("table is not declared")})
			continue
		}

		res, err := loader.Load(ctx, l.db, table, t.Rows, l.opts)
		results = append(results, res)
		if err == nil {
			continue
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		var loadErr *etlerr.LoadError
		if errors.As(err, &loadErr) {
			logging.Warn().
				Str("table", t.Name).
				Int("chunk", loadErr.Chunk).
				Msg("Table load halted, continuing with the next table")
		}
	}

	return results, errors.Join(errs...)
}
