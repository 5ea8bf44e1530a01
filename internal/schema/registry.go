//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema declares the star schema and materializes missing tables.
package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
)

// Table names.
const (
	DimOil             = "dim_oil"
	DimStore           = "dim_store"
	DimProductFamily   = "dim_product_family"
	DimDate            = "dim_date"
	DimHoliday         = "dim_holiday"
	DimCityState       = "dim_city_state"
	FactSales          = "fact_sales"
	AggregateSales     = "aggregate_sales"
	SummaryFamilySales = "summary_family_sales"
	SummaryStoreSales  = "summary_store_sales"
)

// Column types.
const (
	typeInt    = "INTEGER"
	typeText   = "TEXT"
	typeDate   = "DATE"
	typeBool   = "BOOLEAN"
	typeFloat  = "DOUBLE PRECISION"
	typeSerial = "SERIAL"
)

// Registry holds the declared tables for a year range. The summary tables
// carry one column per year, so the range is part of the schema.
type Registry struct {
	startYear int
	endYear   int
	tables    []Table
	byName    map[string]int
}

// New builds the registry for the inclusive year range.
func New(startYear, endYear int) (*Registry, error) {
	if startYear > endYear {
		return nil, fmt.Errorf("start year %d is after end year %d", startYear, endYear)
	}

	r := &Registry{
		startYear: startYear,
		endYear:   endYear,
		byName:    make(map[string]int),
	}
	r.tables = []Table{
		{
			Name: DimOil,
			Columns: []Column{
				{Name: "id", Type: typeSerial, Generated: true},
				{Name: "date", Type: typeDate},
				{Name: "price", Type: typeFloat},
				{Name: "year", Type: typeInt},
			},
			PrimaryKey: []string{"id"},
			Indexes:    []Index{{Name: "idx_dim_oil_date", Columns: []string{"date"}}},
		},
		{
			Name: DimStore,
			Columns: []Column{
				{Name: "store_nbr", Type: typeInt},
				{Name: "city", Type: typeText},
				{Name: "state", Type: typeText},
				{Name: "type", Type: typeText},
				{Name: "cluster", Type: typeInt},
			},
			PrimaryKey: []string{"store_nbr"},
		},
		{
			Name: DimProductFamily,
			Columns: []Column{
				{Name: "family_id", Type: typeInt},
				{Name: "family_name", Type: typeText},
			},
			PrimaryKey: []string{"family_id"},
			Unique:     &Constraint{Name: "uq_dim_product_family", Columns: []string{"family_name"}},
		},
		{
			Name: DimDate,
			Columns: []Column{
				{Name: "date", Type: typeDate},
				{Name: "year", Type: typeInt},
				{Name: "month", Type: typeInt},
				{Name: "day", Type: typeInt},
				{Name: "weekday", Type: typeInt},
				{Name: "is_weekend", Type: typeBool},
			},
			PrimaryKey: []string{"date"},
		},
		{
			Name: DimHoliday,
			Columns: []Column{
				{Name: "date", Type: typeDate},
				{Name: "type", Type: typeText},
				{Name: "locale", Type: typeText},
				{Name: "locale_name", Type: typeText},
				{Name: "description", Type: typeText},
				{Name: "transferred", Type: typeText},
				{Name: "is_transferred", Type: typeBool},
				{Name: "day_of_week", Type: typeInt},
				{Name: "is_weekend", Type: typeBool},
			},
			Unique: &Constraint{Name: "uq_dim_holiday", Columns: []string{"date", "locale", "locale_name"}},
		},
		{
			Name: DimCityState,
			Columns: []Column{
				{Name: "location_id", Type: typeInt},
				{Name: "city", Type: typeText},
				{Name: "state", Type: typeText},
			},
			PrimaryKey: []string{"location_id"},
			Unique:     &Constraint{Name: "uq_dim_city_state", Columns: []string{"city", "state"}},
		},
		{
			Name: FactSales,
			Columns: []Column{
				{Name: "date", Type: typeDate},
				{Name: "store_nbr", Type: typeInt},
				{Name: "family_id", Type: typeInt},
				{Name: "sales", Type: typeFloat},
				{Name: "onpromotion", Type: typeInt},
			},
			Unique:  &Constraint{Name: "uq_fact_sales", Columns: []string{"date", "store_nbr", "family_id"}},
			Indexes: []Index{{Name: "idx_fact_sales_family", Columns: []string{"family_id"}}},
		},
		{
			Name: AggregateSales,
			Columns: []Column{
				{Name: "date", Type: typeDate},
				{Name: "day", Type: typeInt},
				{Name: "month", Type: typeInt},
				{Name: "year", Type: typeInt},
				{Name: "is_holiday", Type: typeBool},
				{Name: "is_weekend", Type: typeBool},
				{Name: "holiday_type", Type: typeText},
				{Name: "holiday_description", Type: typeText},
				{Name: "store_nbr", Type: typeInt},
				{Name: "store_city", Type: typeText},
				{Name: "store_state", Type: typeText},
				{Name: "store_type", Type: typeText},
				{Name: "family_id", Type: typeInt},
				{Name: "family_name", Type: typeText},
				{Name: "sale_amount", Type: typeFloat},
				{Name: "onpromotion", Type: typeInt},
			},
			Unique: &Constraint{Name: "uq_aggregate_sales", Columns: []string{"date", "store_nbr", "family_id"}},
			Indexes: []Index{
				{Name: "idx_aggregate_sales_year", Columns: []string{"year"}},
				{Name: "idx_aggregate_sales_family_year", Columns: []string{"family_id", "year"}},
				{Name: "idx_aggregate_sales_store_year", Columns: []string{"store_nbr", "year"}},
			},
		},
		{
			Name: SummaryFamilySales,
			Columns: append([]Column{
				{Name: "family_id", Type: typeInt},
				{Name: "family_name", Type: typeText},
			}, r.summaryColumns()...),
			Unique: &Constraint{Name: "uq_summary_family_sales", Columns: []string{"family_id"}},
		},
		{
			Name: SummaryStoreSales,
			Columns: append([]Column{
				{Name: "store_nbr", Type: typeInt},
			}, r.summaryColumns()...),
			Unique: &Constraint{Name: "uq_summary_store_sales", Columns: []string{"store_nbr"}},
		},
	}
	for i, t := range r.tables {
		r.byName[t.Name] = i
	}
	return r, nil
}

func (r *Registry) summaryColumns() []Column {
	cols := make([]Column, 0, r.endYear-r.startYear+2)
	for _, y := range r.Years() {
		cols = append(cols, Column{Name: SalesSumColumn(y), Type: typeFloat})
	}
	return append(cols, Column{Name: r.PredictionColumn(), Type: typeFloat})
}

// SalesSumColumn returns the summary column holding a year's summed sales.
func SalesSumColumn(year int) string {
	return fmt.Sprintf("sales_sum_%d", year)
}

// PredictionColumn returns the summary column holding next year's
// prediction.
func (r *Registry) PredictionColumn() string {
	return fmt.Sprintf("predicted_sales_%d", r.PredictionYear())
}

// PredictionYear is the year after the configured range.
func (r *Registry) PredictionYear() int {
	return r.endYear + 1
}

// Years returns the configured years in ascending order.
func (r *Registry) Years() []int {
	years := make([]int, 0, r.endYear-r.startYear+1)
	for y := r.startYear; y <= r.endYear; y++ {
		years = append(years, y)
	}
	return years
}

// StartYear returns the first configured year.
func (r *Registry) StartYear() int { return r.startYear }

// EndYear returns the last configured year.
func (r *Registry) EndYear() int { return r.endYear }

// Tables returns the declared tables in creation order.
func (r *Registry) Tables() []Table {
	out := make([]Table, len(r.tables))
	copy(out, r.tables)
	return out
}

// Table looks up a declared table by name.
func (r *Registry) Table(name string) (Table, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Table{}, false
	}
	return r.tables[i], true
}

// MustTable looks up a declared table and panics if it is unknown. It is
// meant for the package's own table name constants.
func (r *Registry) MustTable(name string) Table {
	t, ok := r.Table(name)
	if !ok {
		panic(fmt.Sprintf("schema: unknown table %s", name))
	}
	return t
}

// ExistingTables returns the declared tables present in the current schema.
func (r *Registry) ExistingTables(ctx context.Context, d db.DB) (map[string]bool, error) {
	rows, err := d.Query(ctx, `
        SELECT table_name FROM information_schema.tables
        WHERE table_schema = current_schema()
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if _, ok := r.byName[name]; ok {
			existing[name] = true
		}
	}
	return existing, rows.Err()
}

// EnsureSchema creates every declared table that does not exist yet and
// returns the names it created. A table that fails to create yields a
// SchemaError; the remaining tables are still attempted and all failures
// are returned joined. Existing tables are not inspected.
func (r *Registry) EnsureSchema(ctx context.Context, d db.DB) ([]string, error) {
	existing, err := r.ExistingTables(ctx, d)
	if err != nil {
		return nil, err
	}

	var created []string
	var errs []error
	for _, t := range r.tables {
		if existing[t.Name] {
			logging.Debug().Str("table", t.Name).Msg("Table exists, skipping")
			continue
		}
		if err := createTable(ctx, d, t); err != nil {
			logging.Error().Err(err).Str("table", t.Name).Msg("Failed to create table")
			errs = append(errs, &etlerr.SchemaError{Table: t.Name, Err: err})
			continue
		}
		created = append(created, t.Name)
	}

	if len(created) > 0 {
		logging.Info().Strs("tables", created).Msg("Created tables")
	} else if len(errs) == 0 {
		logging.Info().Msg("All tables already exist")
	}

	return created, errors.Join(errs...)
}

func createTable(ctx context.Context, d db.DB, t Table) error {
	for _, stmt := range t.CreateSQL() {
		if _, err := d.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// DropSchema drops every declared table.
func (r *Registry) DropSchema(ctx context.Context, d db.DB) error {
	for i := len(r.tables) - 1; i >= 0; i-- {
		name := r.tables[i].Name
		if _, err := d.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", db.QuoteIdentifier(name))); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	logging.Info().Int("tables", len(r.tables)).Msg("Dropped schema")
	return nil
}
