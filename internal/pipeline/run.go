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
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-salesetl/internal/config"
	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/dimension"
	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/loader"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// Run statuses recorded in the metadata table.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Report describes a finished run.
type Report struct {
	RunID    string
	Status   string
	Results  []loader.Result
	Issues   int
	Created  []string
	Duration time.Duration

	// Dataset is what the run built, nil when it failed before building.
	Dataset *Dataset
}

// Inserted returns the number of rows inserted across all tables.
func (r *Report) Inserted() int64 {
	var n int64
	for _, res := range r.Results {
		n += res.Inserted
	}
	return n
}

// PrepareSchema drops the star schema when dropExisting is set and then
// creates any missing tables.
func PrepareSchema(ctx context.Context, d db.DB, reg *schema.Registry, dropExisting bool) ([]string, error) {
	if dropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := reg.DropSchema(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to drop schema: %w", err)
		}
		if err := db.DropMetadata(ctx, d); err != nil {
			logging.Debug().Err(err).Msg("No metadata table to drop")
		}
	}

	created, err := reg.EnsureSchema(ctx, d)
	if err != nil {
		return created, fmt.Errorf("failed to create schema: %w", err)
	}
	return created, nil
}

// Run executes a full extract, transform and load pass as configured.
func Run(ctx context.Context, d db.DB, cfg *config.Config) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Status: StatusFailed}
	logging.WithRunID(report.RunID)

	reg, err := schema.New(cfg.ETL.StartYear, cfg.ETL.EndYear)
	if err != nil {
		return report, err
	}
	order, err := dimension.ParseKeyOrder(cfg.ETL.KeyOrder)
	if err != nil {
		return report, err
	}

	logging.Info().
		Int("start_year", cfg.ETL.StartYear).
		Int("end_year", cfg.ETL.EndYear).
		Str("key_order", string(order)).
		Msg("Starting ETL run")

	ex, err := extract.ReadAll(ctx, extract.Sources{
		Sales:    cfg.Sources.Sales,
		Stores:   cfg.Sources.Stores,
		Oil:      cfg.Sources.Oil,
		Holidays: cfg.Sources.Holidays,
	})
	if err != nil {
		return report, fmt.Errorf("failed to read extracts: %w", err)
	}

	ds, err := Build(ex, BuildOptions{
		StartYear: cfg.ETL.StartYear,
		EndYear:   cfg.ETL.EndYear,
		KeyOrder:  order,
		Strict:    cfg.ETL.Strict,
	})
	if err != nil {
		return report, err
	}
	report.Issues = len(ds.Issues)
	report.Dataset = ds

	report.Created, err = PrepareSchema(ctx, d, reg, cfg.ETL.DropExisting)
	if err != nil {
		return report, err
	}

	opts := loader.DefaultOptions()
	opts.ChunkSize = cfg.ETL.ChunkSize
	opts.ProgressInterval = cfg.ETL.ProgressInterval

	var loadErr error
	report.Results, loadErr = NewLoader(d, reg, opts).LoadDataset(ctx, ds)
	if loadErr == nil {
		report.Status = StatusComplete
	}
	report.Duration = time.Since(start)

	if ctx.Err() == nil {
		err := db.SaveRunMetadata(ctx, d, db.RunInfo{
			RunID:     report.RunID,
			StartYear: cfg.ETL.StartYear,
			EndYear:   cfg.ETL.EndYear,
			Status:    report.Status,
		})
		if err != nil {
			loadErr = errors.Join(loadErr, fmt.Errorf("failed to save run metadata: %w", err))
		}
	}

	logging.Info().
		Str("status", report.Status).
		Int64("inserted", report.Inserted()).
		Int("issues", report.Issues).
		Dur("duration", report.Duration).
		Msg("ETL run finished")

	return report, loadErr
}
