//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package summary produces the yearly sales summaries per product family and
// per store, merges externally computed predictions into them and writes
// them to the summary tables.
package summary

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// Grouping selects the summary grain.
type Grouping string

const (
	ByFamily Grouping = "family"
	ByStore  Grouping = "store"
)

// ParseGrouping parses "family" or "store".
func ParseGrouping(s string) (Grouping, error) {
	switch g := Grouping(strings.ToLower(strings.TrimSpace(s))); g {
	case ByFamily, ByStore:
		return g, nil
	default:
		return "", fmt.Errorf("unknown summary grouping %q (must be %q or %q)", s, ByFamily, ByStore)
	}
}

// Table returns the summary table the grouping is written to.
func (g Grouping) Table() string {
	if g == ByStore {
		return schema.SummaryStoreSales
	}
	return schema.SummaryFamilySales
}

// KeyColumn returns the aggregate_sales column the grouping keys on.
func (g Grouping) KeyColumn() string {
	if g == ByStore {
		return "store_nbr"
	}
	return "family_id"
}

// Row is one summary group.
type Row struct {
	Key        int
	FamilyName *string
	Totals     map[int]decimal.Decimal
	Prediction decimal.Decimal
}

// Total returns the group's summed sales for a year, zero when absent.
func (r Row) Total(year int) decimal.Decimal {
	return r.Totals[year]
}

// Summary holds one row per group, ordered by key.
type Summary struct {
	Grouping Grouping
	Years    []int
	Rows     []Row
}

// FromAggregate sums sale_amount per group and year over in-memory aggregate
// rows. Rows without a group key or a year, or outside years, are ignored.
func FromAggregate(rows []model.AggregateSale, g Grouping, years []int) Summary {
	groups := make(map[int]*Row)
	for i := range rows {
		r := &rows[i]
		var key *int
		if g == ByStore {
			key = r.StoreNbr
		} else {
			key = r.FamilyID
		}
		if key == nil || r.Year == nil || !slices.Contains(years, *r.Year) {
			continue
		}

		row, ok := groups[*key]
		if !ok {
			row = &Row{Key: *key, Totals: make(map[int]decimal.Decimal, len(years))}
			groups[*key] = row
		}
		if g == ByFamily && row.FamilyName == nil && r.FamilyName != nil {
			row.FamilyName = model.Ptr(*r.FamilyName)
		}
		if r.SaleAmount != nil {
			row.Totals[*r.Year] = row.Totals[*r.Year].Add(decimal.NewFromFloat(*r.SaleAmount))
		}
	}

	s := Summary{Grouping: g, Years: slices.Clone(years)}
	for _, row := range groups {
		s.Rows = append(s.Rows, *row)
	}
	slices.SortFunc(s.Rows, func(a, b Row) int { return a.Key - b.Key })
	return s
}

// Query computes the summary in the database from aggregate_sales. Sums
// are taken over numeric so the totals are exact.
func Query(ctx context.Context, d db.DB, g Grouping, years []int) (Summary, error) {
	sql := querySQL(g, years)
	logging.Debug().Str("grouping", string(g)).Str("sql", sql).Msg("Querying yearly totals")

	rows, err := d.Query(ctx, sql)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query %s totals: %w", g, err)
	}
	defer rows.Close()

	s := Summary{Grouping: g, Years: slices.Clone(years)}
	for rows.Next() {
		var row Row
		sums := make([]decimal.Decimal, len(years))
		dest := []any{&row.Key}
		if g == ByFamily {
			dest = append(dest, &row.FamilyName)
		}
		for i := range sums {
			dest = append(dest, &sums[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return Summary{}, fmt.Errorf("failed to scan %s totals: %w", g, err)
		}

		row.Totals = make(map[int]decimal.Decimal, len(years))
		for i, y := range years {
			row.Totals[y] = sums[i]
		}
		s.Rows = append(s.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("failed to read %s totals: %w", g, err)
	}
	return s, nil
}

func querySQL(g Grouping, years []int) string {
	key := db.QuoteIdentifier(g.KeyColumn())
	cols := []string{key}
	if g == ByFamily {
		cols = append(cols, `MAX("family_name")`)
	}
	for _, y := range years {
		cols = append(cols, fmt.Sprintf(
			`COALESCE(SUM(CASE WHEN "year" = %d THEN "sale_amount"::numeric ELSE 0 END), 0) AS %s`,
			y, db.QuoteIdentifier(schema.SalesSumColumn(y))))
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL GROUP BY %s ORDER BY %s",
		strings.Join(cols, ", "), db.QuoteIdentifier(schema.AggregateSales), key, key, key)
}

// WithPredictions returns a copy of s with each group's prediction taken
// from predictions by group key. Groups without a prediction get zero.
func (s Summary) WithPredictions(predictions map[int]float64) Summary {
	out := Summary{Grouping: s.Grouping, Years: slices.Clone(s.Years), Rows: make([]Row, len(s.Rows))}
	matched := 0
	for i, row := range s.Rows {
		row.Totals = maps.Clone(row.Totals)
		row.Prediction = decimal.Zero
		if p, ok := predictions[row.Key]; ok {
			row.Prediction = decimal.NewFromFloat(p)
			matched++
		}
		out.Rows[i] = row
	}
	if matched < len(s.Rows) {
		logging.Warn().
			Str("grouping", string(s.Grouping)).
			Int("groups", len(s.Rows)).
			Int("predicted", matched).
			Msg("Groups without prediction set to zero")
	}
	return out
}

// Values returns the summary rows in the column order of the summary table
// declared by reg.
func (s Summary) Values(reg *schema.Registry) [][]any {
	years := reg.Years()
	out := make([][]any, len(s.Rows))
	for i, row := range s.Rows {
		v := []any{row.Key}
		if s.Grouping == ByFamily {
			v = append(v, row.FamilyName)
		}
		for _, y := range years {
			v = append(v, row.Total(y).InexactFloat64())
		}
		out[i] = append(v, row.Prediction.InexactFloat64())
	}
	return out
}
