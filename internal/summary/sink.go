//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package summary

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/loader"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// WriteOptions configures Write.
type WriteOptions struct {
	// Refresh overwrites existing summary rows instead of keeping them.
	Refresh bool

	ChunkSize int
}

// Write stores s in its summary table, keyed on the group key. By default
// existing groups are left untouched; with Refresh their yearly totals,
// prediction and family name are overwritten.
func Write(ctx context.Context, d db.DB, reg *schema.Registry, s Summary, opts WriteOptions) (loader.Result, error) {
	if len(s.Years) > 0 && (s.Years[0] != reg.StartYear() || s.Years[len(s.Years)-1] != reg.EndYear()) {
		return loader.Result{}, fmt.Errorf("summary covers %d-%d but the schema covers %d-%d",
			s.Years[0], s.Years[len(s.Years)-1], reg.StartYear(), reg.EndYear())
	}

	table := reg.MustTable(s.Grouping.Table())
	lopts := loader.DefaultOptions()
	if opts.ChunkSize > 0 {
		lopts.ChunkSize = opts.ChunkSize
	}
	if opts.Refresh {
		lopts.Policy = loader.DoUpdate
	}

	res, err := loader.Load(ctx, d, table, s.Values(reg), lopts)
	if err != nil {
		return res, fmt.Errorf("failed to write %s: %w", table.Name, err)
	}
	return res, nil
}
