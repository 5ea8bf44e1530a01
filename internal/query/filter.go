//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package query answers read requests against the loaded star schema.
package query

import (
	"errors"
	"fmt"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// ErrUnsupportedFilter is returned for filter combinations no query serves.
var ErrUnsupportedFilter = errors.New("unsupported filter combination")

// Filter is the loose set of optional criteria a caller supplies.
type Filter struct {
	Family  *int
	Day     *int
	Month   *int
	Year    *int
	Store   *int
	WantSum bool
}

func (f Filter) String() string {
	show := func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	}
	return fmt.Sprintf("family=%s day=%s month=%s year=%s store=%s sum=%t",
		show(f.Family), show(f.Day), show(f.Month), show(f.Year), show(f.Store), f.WantSum)
}

// Request is a resolved query. Each variant knows its own statement.
type Request interface {
	// Kind names the variant.
	Kind() string

	// Statement returns the SQL and its arguments.
	Statement() (string, []any)
}

// StoreYear sums a store's sales over a year.
type StoreYear struct {
	Store int
	Year  int
}

// FamilyYear sums a family's sales over a year.
type FamilyYear struct {
	Family int
	Year   int
}

// StoreFamilyYear sums one family's sales at one store over a year.
type StoreFamilyYear struct {
	Store  int
	Family int
	Year   int
}

// FamilyDay sums one family's sales on a day, optionally at one store.
type FamilyDay struct {
	Family int
	Day    int
	Month  int
	Year   int
	Store  *int
}

// StoreDay sums a store's sales on a day.
type StoreDay struct {
	Store int
	Day   int
	Month int
	Year  int
}

// FamilyAllYears sums a family's sales over every year.
type FamilyAllYears struct {
	Family int
}

func (StoreYear) Kind() string  { return "store_year" }
func (FamilyYear) Kind() string { return "family_year" }
func (StoreFamilyYear) Kind() string   { return "store_family_year" }
func (FamilyDay) Kind() string         { return "family_day" }
func (StoreDay) Kind() string          { return "store_day" }
func (FamilyAllYears) Kind() string    { return "family_all_years" }

func (r StoreYear) Statement() (string, []any) {
	return sumSQL(`"store_nbr" = $1 AND "year" = $2`), []any{r.Store, r.Year}
}

func (r FamilyYear) Statement() (string, []any) {
	return sumSQL(`"family_id" = $1 AND "year" = $2`), []any{r.Family, r.Year}
}

func (r StoreFamilyYear) Statement() (string, []any) {
	return sumSQL(`"store_nbr" = $1 AND "year" = $2 AND "family_id" = $3`),
		[]any{r.Store, r.Year, r.Family}
}

func (r FamilyDay) Statement() (string, []any) {
	where := `"day" = $1 AND "month" = $2 AND "year" = $3 AND "family_id" = $4`
	args := []any{r.Day, r.Month, r.Year, r.Family}
	if r.Store != nil {
		where += ` AND "store_nbr" = $5`
		args = append(args, *r.Store)
	}
	return sumSQL(where), args
}

func (r StoreDay) Statement() (string, []any) {
	return sumSQL(`"day" = $1 AND "month" = $2 AND "year" = $3 AND "store_nbr" = $4`),
		[]any{r.Day, r.Month, r.Year, r.Store}
}

func (r FamilyAllYears) Statement() (string, []any) {
	return sumSQL(`"family_id" = $1`), []any{r.Family}
}

func sumSQL(where string) string {
	return fmt.Sprintf(`SELECT SUM("sale_amount") FROM %s WHERE %s`,
		db.QuoteIdentifier(schema.AggregateSales), where)
}

// Resolve maps a filter to the one request variant that serves it. Day and
// month only count when both are set; any combination outside the supported
// set, including a filter that does not ask for a sum, yields
// ErrUnsupportedFilter.
func Resolve(f Filter) (Request, error) {
	if !f.WantSum {
		return nil, fmt.Errorf("%w: only summed sales are served (%s)", ErrUnsupportedFilter, f)
	}

	hasDate := f.Day != nil && f.Month != nil
	noDate := f.Day == nil && f.Month == nil
	store, family := f.Store != nil, f.Family != nil

	if f.Year != nil {
		year := *f.Year
		switch {
		case noDate && store && !family:
			return StoreYear{Store: *f.Store, Year: year}, nil
		case noDate && !store && family:
			return FamilyYear{Family: *f.Family, Year: year}, nil
		case noDate && store && family:
			return StoreFamilyYear{Store: *f.Store, Family: *f.Family, Year: year}, nil
		case hasDate && family:
			return FamilyDay{Family: *f.Family, Day: *f.Day, Month: *f.Month, Year: year, Store: f.Store}, nil
		case hasDate && store:
			return StoreDay{Store: *f.Store, Day: *f.Day, Month: *f.Month, Year: year}, nil
		}
	} else if family && !store && noDate {
		return FamilyAllYears{Family: *f.Family}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, f)
}
