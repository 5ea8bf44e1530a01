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
	"fmt"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/loader"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
)

// SummarizeOptions configures Summarize.
type SummarizeOptions struct {
	FamilyPredictions string
	StorePredictions  string
	Refresh           bool
	ChunkSize         int

	// Dataset, when set, is summed in memory instead of querying
	// aggregate_sales. Only its rows are counted.
	Dataset *Dataset
}

// Summarize computes the family and store yearly summaries from
// aggregate_sales, or from opts.Dataset, merges the prediction files and
// writes both summary tables.
func Summarize(ctx context.Context, d db.DB, reg *schema.Registry, opts SummarizeOptions) ([]loader.Result, error) {
	if _, err := reg.EnsureSchema(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	var results []loader.Result
	for _, step := range []struct {
		grouping    summary.Grouping
		predictions string
	}{
		{summary.ByFamily, opts.FamilyPredictions},
		{summary.ByStore, opts.StorePredictions},
	} {
		predictions, err := extract.ReadPredictions(ctx, step.predictions)
		if err != nil {
			return results, fmt.Errorf("failed to read %s predictions: %w", step.grouping, err)
		}

		var s summary.Summary
		if opts.Dataset != nil {
			s = summary.FromAggregate(opts.Dataset.Aggregate.Rows, step.grouping, reg.Years())
		} else {
			s, err = summary.Query(ctx, d, step.grouping, reg.Years())
			if err != nil {
				return results, err
			}
		}

		res, err := summary.Write(ctx, d, reg, s.WithPredictions(predictions), summary.WriteOptions{
			Refresh:   opts.Refresh,
			ChunkSize: opts.ChunkSize,
		})
		results = append(results, res)
		if err != nil {
			return results, err
		}

		logging.Info().
			Str("table", res.Table).
			Int("groups", res.Rows).
			Int64("written", res.Inserted).
			Bool("refresh", opts.Refresh).
			Msg("Summary written")
	}
	return results, nil
}
