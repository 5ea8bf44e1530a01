//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests for the full load pipeline.
// Run with: go test -tags=integration ./internal/pipeline/...
// Requires PostgreSQL to be available.
// Set SALESETL_TEST_CONN environment variable to override connection string.

package pipeline_test

import (
	"context"
	"testing"

	"github.com/pgEdge/pgedge-salesetl/internal/config"
	"github.com/pgEdge/pgedge-salesetl/internal/datagen"
	"github.com/pgEdge/pgedge-salesetl/internal/pipeline"
	"github.com/pgEdge/pgedge-salesetl/internal/query"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
	"github.com/pgEdge/pgedge-salesetl/internal/testutil"
)

func TestRunIntegration(t *testing.T) {
	// Check if PostgreSQL is available
	baseConnStr := testutil.SkipIfNoPostgres(t)

	// Create test database
	testConnStr := testutil.CreateTestDB(t, baseConnStr, "pipeline")
	dbName := testutil.GetDBNameFromConnStr(testConnStr)

	// Setup cleanup
	cleanup := testutil.NewTestCleanup(t, baseConnStr, dbName)
	t.Cleanup(cleanup.Cleanup)

	// Connect to test database
	pool := testutil.ConnectTestDB(t, testConnStr)
	cleanup.SetPool(pool)

	ctx := context.Background()

	g, err := datagen.NewGenerator(datagen.Config{
		OutDir:    t.TempDir(),
		StartYear: 2016,
		EndYear:   2016,
		Stores:    2,
		Families:  3,
		Seed:      11,
	})
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	files, err := g.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Connection = testConnStr
	cfg.ETL.StartYear = 2016
	cfg.ETL.EndYear = 2016
	cfg.ETL.ChunkSize = 500
	cfg.Sources = config.SourcesConfig{
		Sales:    files.Sales,
		Stores:   files.Stores,
		Oil:      files.Oil,
		Holidays: files.Holidays,
	}

	keyed := []string{
		schema.DimStore,
		schema.DimProductFamily,
		schema.DimDate,
		schema.DimHoliday,
		schema.DimCityState,
		schema.FactSales,
		schema.AggregateSales,
	}
	counts := make(map[string]int64)

	// Test 1: First load
	t.Run("FirstLoad", func(t *testing.T) {
		report, err := pipeline.Run(ctx, pool, cfg)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if report.Status != pipeline.StatusComplete {
			t.Errorf("Expected status %s, got %s", pipeline.StatusComplete, report.Status)
		}
		for _, table := range keyed {
			counts[table] = testutil.CountRows(t, pool, table)
		}
		if want := int64(366 * 2 * 3); counts[schema.FactSales] != want {
			t.Errorf("Expected %d fact rows, got %d", want, counts[schema.FactSales])
		}
		if counts[schema.DimDate] != 366 {
			t.Errorf("Expected 366 dates, got %d", counts[schema.DimDate])
		}
	})

	// Test 2: Loading the same extracts again adds no keyed rows
	t.Run("SecondLoad", func(t *testing.T) {
		oilBefore := testutil.CountRows(t, pool, schema.DimOil)

		report, err := pipeline.Run(ctx, pool, cfg)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		for _, res := range report.Results {
			if res.Table != schema.DimOil && res.Inserted != 0 {
				t.Errorf("Expected 0 rows inserted into %s, got %d", res.Table, res.Inserted)
			}
		}
		for _, table := range keyed {
			if got := testutil.CountRows(t, pool, table); got != counts[table] {
				t.Errorf("Expected %d rows in %s, got %d", counts[table], table, got)
			}
		}
		if got := testutil.CountRows(t, pool, schema.DimOil); got != 2*oilBefore {
			t.Errorf("Expected oil rows to be appended (%d), got %d", 2*oilBefore, got)
		}
	})

	// Test 3: Summaries and reads
	t.Run("Summarize", func(t *testing.T) {
		reg, err := schema.New(2016, 2016)
		if err != nil {
			t.Fatalf("schema.New failed: %v", err)
		}
		if _, err := pipeline.Summarize(ctx, pool, reg, pipeline.SummarizeOptions{}); err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if got := testutil.CountRows(t, pool, schema.SummaryStoreSales); got != 2 {
			t.Errorf("Expected 2 store summaries, got %d", got)
		}
		if got := testutil.CountRows(t, pool, schema.SummaryFamilySales); got != 3 {
			t.Errorf("Expected 3 family summaries, got %d", got)
		}

		r := query.NewReader(pool, reg)
		res, err := r.Execute(ctx, query.StoreYear{Store: 1, Year: 2016})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if res.Total == nil {
			t.Fatal("Expected a store total, got nil")
		}

		var fromAggregate float64
		err = pool.QueryRow(ctx,
			"SELECT COALESCE(SUM(sale_amount), 0) FROM aggregate_sales WHERE store_nbr = 1 AND year = 2016",
		).Scan(&fromAggregate)
		if err != nil {
			t.Fatalf("aggregate query failed: %v", err)
		}
		if diff := *res.Total - fromAggregate; diff > 0.01 || diff < -0.01 {
			t.Errorf("Expected store total %.2f, got %.2f", fromAggregate, *res.Total)
		}

		rows, err := r.SummaryBy(ctx, summary.ByStore, []int{2016})
		if err != nil {
			t.Fatalf("SummaryBy failed: %v", err)
		}
		if len(rows) != 2 || rows[0].Key != 1 {
			t.Fatalf("Expected stores 1 and 2, got %+v", rows)
		}
		if diff := rows[0].Sales[2016] - fromAggregate; diff > 0.01 || diff < -0.01 {
			t.Errorf("Expected summary total %.2f, got %.2f", fromAggregate, rows[0].Sales[2016])
		}
	})
}
