//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
)

// ErrYearOutOfRange is returned when a request names a year the summary
// tables do not cover.
var ErrYearOutOfRange = errors.New("year outside the summarized range")

// Result is the answer to a Request. Total is nil when nothing matched.
type Result struct {
	Kind  string   `json:"kind"`
	Total *float64 `json:"total"`
}

// TrendPoint is the total sales of one day.
type TrendPoint struct {
	Date  civil.Date `json:"date"`
	Total float64    `json:"total"`
}

// Family is a product family and its surrogate key.
type Family struct {
	ID   int    `json:"family_id"`
	Name string `json:"family_name"`
}

// SummaryRow is one group of a yearly summary.
type SummaryRow struct {
	Key        int             `json:"key"`
	FamilyName *string         `json:"family_name,omitempty"`
	Sales      map[int]float64 `json:"sales"`
}

// Reader runs read queries.
type Reader struct {
	db  db.DB
	reg *schema.Registry
}

// NewReader returns a Reader for the tables declared by reg.
func NewReader(d db.DB, reg *schema.Registry) *Reader {
	return &Reader{db: d, reg: reg}
}

func (r *Reader) checkYear(year int) error {
	if year < r.reg.StartYear() || year > r.reg.EndYear() {
		return fmt.Errorf("%w: %d not in %d-%d", ErrYearOutOfRange, year, r.reg.StartYear(), r.reg.EndYear())
	}
	return nil
}

// Execute runs a resolved request.
func (r *Reader) Execute(ctx context.Context, req Request) (Result, error) {
	switch v := req.(type) {
	case StoreYear:
		if err := r.checkYear(v.Year); err != nil {
			return Result{}, err
		}
	case FamilyYear:
		if err := r.checkYear(v.Year); err != nil {
			return Result{}, err
		}
	}

	sql, args := req.Statement()
	logging.Debug().Str("kind", req.Kind()).Str("sql", sql).Msg("Executing query")

	res := Result{Kind: req.Kind()}
	err := r.db.QueryRow(ctx, sql, args...).Scan(&res.Total)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Result{}, fmt.Errorf("failed to execute %s: %w", req.Kind(), err)
	}
	return res, nil
}

// SalesTrend returns total sales per day in date order.
func (r *Reader) SalesTrend(ctx context.Context) ([]TrendPoint, error) {
	sql := fmt.Sprintf(`SELECT "date", SUM("sale_amount") FROM %s WHERE "date" IS NOT NULL GROUP BY "date" ORDER BY "date"`,
		db.QuoteIdentifier(schema.AggregateSales))

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var (
			day   time.Time
			total *float64
		)
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("failed to scan sales trend: %w", err)
		}
		p := TrendPoint{Date: civil.DateOf(day)}
		if total != nil {
			p.Total = *total
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales trend: %w", err)
	}
	return points, nil
}

// FamilyNames lists the product families by id.
func (r *Reader) FamilyNames(ctx context.Context) ([]Family, error) {
	sql := fmt.Sprintf(`SELECT "family_id", "family_name" FROM %s ORDER BY "family_id"`,
		db.QuoteIdentifier(schema.DimProductFamily))

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query product families: %w", err)
	}
	defer rows.Close()

	var families []Family
	for rows.Next() {
		var f Family
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, fmt.Errorf("failed to scan product family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product families: %w", err)
	}
	return families, nil
}

// SummaryBy returns the stored yearly summary for the given years. No years
// means every summarized year.
func (r *Reader) SummaryBy(ctx context.Context, g summary.Grouping, years []int) ([]SummaryRow, error) {
	if len(years) == 0 {
		years = r.reg.Years()
	}
	years = slices.Clone(years)
	slices.Sort(years)
	years = slices.Compact(years)
	for _, y := range years {
		if err := r.checkYear(y); err != nil {
			return nil, err
		}
	}

	key := db.QuoteIdentifier(g.KeyColumn())
	cols := []string{key}
	if g == summary.ByFamily {
		cols = append(cols, db.QuoteIdentifier("family_name"))
	}
	for _, y := range years {
		cols = append(cols, db.QuoteIdentifier(schema.SalesSumColumn(y)))
	}
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), db.QuoteIdentifier(g.Table()), key)

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s summary: %w", g, err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var row SummaryRow
		sums := make([]*float64, len(years))
		dest := []any{&row.Key}
		if g == summary.ByFamily {
			dest = append(dest, &row.FamilyName)
		}
		for i := range sums {
			dest = append(dest, &sums[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s summary: %w", g, err)
		}
		row.Sales = make(map[int]float64, len(years))
		for i, y := range years {
			if sums[i] != nil {
				row.Sales[y] = *sums[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s summary: %w", g, err)
	}
	return out, nil
}
