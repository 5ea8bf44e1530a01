//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline drives an ETL run: it builds the star schema in memory
// from the parsed extracts and loads it table by table.
package pipeline

import (
	"fmt"

	"github.com/pgEdge/pgedge-salesetl/internal/aggregate"
	"github.com/pgEdge/pgedge-salesetl/internal/dimension"
	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/fact"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// BuildOptions configures Build.
type BuildOptions struct {
	StartYear int
	EndYear   int
	KeyOrder  dimension.KeyOrder

	// Strict makes the first data quality issue fatal.
	Strict bool
}

// Dataset is the fully transformed star schema. Stages never modify a
// Dataset after Build returns it.
type Dataset struct {
	Oil        dimension.Table[model.Oil]
	Stores     dimension.Table[model.Store]
	Families   dimension.Table[model.ProductFamily]
	Dates      dimension.Table[model.Date]
	Holidays   dimension.Table[model.Holiday]
	CityStates dimension.Table[model.CityState]
	Facts      dimension.Table[model.FactSale]
	Aggregate  dimension.Table[model.AggregateSale]

	// Issues lists every coercion failure found while building.
	Issues extract.Issues

	// UnmatchedFamilies counts fact rows without a product family.
	UnmatchedFamilies int
}

// TableRows is one table's rows ready for the loader.
type TableRows struct {
	Name string
	Rows [][]any
}

// Tables returns the dataset's tables in load order: dimensions before the
// facts that reference them, the aggregate last.
func (d *Dataset) Tables() []TableRows {
	return []TableRows{
		{schema.DimOil, model.Values(d.Oil.Rows)},
		{schema.DimStore, model.Values(d.Stores.Rows)},
		{schema.DimProductFamily, model.Values(d.Families.Rows)},
		{schema.DimDate, model.Values(d.Dates.Rows)},
		{schema.DimHoliday, model.Values(d.Holidays.Rows)},
		{schema.DimCityState, model.Values(d.CityStates.Rows)},
		{schema.FactSales, model.Values(d.Facts.Rows)},
		{schema.AggregateSales, model.Values(d.Aggregate.Rows)},
	}
}

// Build transforms the extracts into a Dataset.
func Build(ex *extract.Extracts, opts BuildOptions) (*Dataset, error) {
	if opts.KeyOrder == "" {
		opts.KeyOrder = dimension.KeyOrderSorted
	}

	ds := &Dataset{Issues: append(extract.Issues(nil), ex.Issues...)}
	if err := checkIssues(ds.Issues, opts.Strict); err != nil {
		return nil, err
	}

	dates, err := dimension.BuildDates(opts.StartYear, opts.EndYear)
	if err != nil {
		return nil, err
	}
	ds.Dates = dates

	holidays, issues := dimension.BuildHolidays(ex.Holidays)
	ds.Holidays = holidays
	ds.Issues = append(ds.Issues, issues...)
	if err := checkIssues(issues, opts.Strict); err != nil {
		return nil, err
	}

	ds.Oil = dimension.BuildOil(ex.Oil)
	ds.Stores = dimension.BuildStores(ex.Stores)
	ds.CityStates = dimension.BuildCityStates(ex.Stores, opts.KeyOrder)
	ds.Families = dimension.BuildProductFamilies(ex.Sales, opts.KeyOrder)

	facts := fact.Assemble(ex.Sales, ds.Families)
	ds.Facts = facts.Table
	ds.UnmatchedFamilies = facts.Unmatched

	agg, _, err := aggregate.Derive(ds.Facts, aggregate.Dimensions{
		Families: ds.Families,
		Holidays: ds.Holidays,
		Stores:   ds.Stores,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive aggregate: %w", err)
	}
	ds.Aggregate = agg

	logging.Info().
		Int("oil", ds.Oil.Len()).
		Int("stores", ds.Stores.Len()).
		Int("families", ds.Families.Len()).
		Int("dates", ds.Dates.Len()).
		Int("holidays", ds.Holidays.Len()).
		Int("city_states", ds.CityStates.Len()).
		Int("facts", ds.Facts.Len()).
		Int("issues", len(ds.Issues)).
		Msg("Built star schema")

	return ds, nil
}

func checkIssues(issues extract.Issues, strict bool) error {
	if len(issues) == 0 {
		return nil
	}
	if strict {
		return issues[0]
	}
	for _, issue := range issues {
		logging.Debug().Err(issue).Msg("Data quality issue")
	}
	logging.Warn().
		Int("issues", len(issues)).
		Str("first", issues[0].Error()).
		Msg("Values that failed to parse were set to null")
	return nil
}
