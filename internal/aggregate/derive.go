//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package aggregate derives the denormalized aggregate_sales table from the
// fact table and the dimensions.
package aggregate

import (
	"cloud.google.com/go/civil"

	"github.com/pgEdge/pgedge-salesetl/internal/dimension"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// Columns are the aggregate_sales columns in load order.
var Columns = []string{
	"date", "day", "month", "year", "is_holiday", "is_weekend",
	"holiday_type", "holiday_description", "store_nbr", "store_city",
	"store_state", "store_type", "family_id", "family_name", "sale_amount",
	"onpromotion",
}

// Dimensions are the dimension tables joined into the aggregate.
type Dimensions struct {
	Families dimension.Table[model.ProductFamily]
	Holidays dimension.Table[model.Holiday]
	Stores   dimension.Table[model.Store]
}

// Stats counts the fact rows each join matched.
type Stats struct {
	Rows           int
	FamilyMatches  int
	HolidayMatches int
	StoreMatches   int
}

// working is an aggregate row during derivation. The boolean flags stay
// nullable until the final projection.
type working struct {
	row       model.AggregateSale
	isHoliday *bool
	isWeekend *bool
}

// Derive enriches every fact row with calendar, product family, holiday and
// store attributes. All joins are left joins; the holiday dimension is
// reduced to its first entry per date so that a date with several holidays
// cannot multiply fact rows. The output has exactly one row per fact row,
// otherwise an InvariantViolationError is returned.
func Derive(facts dimension.Table[model.FactSale], dims Dimensions) (dimension.Table[model.AggregateSale], Stats, error) {
	var stats Stats
	empty := dimension.Table[model.AggregateSale]{Name: schema.AggregateSales, Columns: Columns}

	for _, check := range []struct {
		has       bool
		dimension string
		key       string
	}{
		{dims.Families.HasColumn("family_id"), schema.DimProductFamily, "family_id"},
		{dims.Holidays.HasColumn("date"), schema.DimHoliday, "date"},
		{dims.Stores.HasColumn("store_nbr"), schema.DimStore, "store_nbr"},
	} {
		if !check.has {
			return empty, stats, &etlerr.ReferentialIntegrityError{
				Table:     schema.AggregateSales,
				Dimension: check.dimension,
				Key:       check.key,
			}
		}
	}

	// Calendar fields from the normalized date.
	rows := make([]working, facts.Len())
	for i, f := range facts.Rows {
		w := working{row: model.AggregateSale{
			Date:        f.Date,
			StoreNbr:    f.StoreNbr,
			FamilyID:    f.FamilyID,
			SaleAmount:  f.Sales,
			OnPromotion: f.OnPromotion,
		}}
		if f.Date.IsValid() {
			w.row.Day = model.Ptr(f.Date.Day)
			w.row.Month = model.Ptr(int(f.Date.Month))
			w.row.Year = model.Ptr(f.Date.Year)
		}
		rows[i] = w
	}

	families := indexBy(dims.Families.Rows,
		func(p *model.ProductFamily) (int, bool) { return p.FamilyID, true }, false)
	rows, stats.FamilyMatches = leftJoin(rows, families,
		func(w *working) (int, bool) {
			if w.row.FamilyID == nil {
				return 0, false
			}
			return *w.row.FamilyID, true
		},
		func(w *working, p *model.ProductFamily) {
			w.row.FamilyName = model.Ptr(p.FamilyName)
		})

	holidays := indexBy(dims.Holidays.Rows,
		func(h *model.Holiday) (civil.Date, bool) { return h.Date, h.Date.IsValid() }, true)
	rows, stats.HolidayMatches = leftJoin(rows, holidays,
		func(w *working) (civil.Date, bool) { return w.row.Date, w.row.Date.IsValid() },
		func(w *working, h *model.Holiday) {
			w.row.HolidayType = model.Ptr(h.Type)
			w.row.HolidayDescription = model.Ptr(h.Description)
		})

	stores := indexBy(dims.Stores.Rows,
		func(s *model.Store) (int, bool) { return s.StoreNbr, true }, false)
	rows, stats.StoreMatches = leftJoin(rows, stores,
		func(w *working) (int, bool) {
			if w.row.StoreNbr == nil {
				return 0, false
			}
			return *w.row.StoreNbr, true
		},
		func(w *working, s *model.Store) {
			w.row.StoreCity = model.Ptr(s.City)
			w.row.StoreState = model.Ptr(s.State)
			w.row.StoreType = model.Ptr(s.Type)
		})

	for i := range rows {
		w := &rows[i]
		w.isHoliday = model.Ptr(w.row.HolidayType != nil)
		if w.row.Date.IsValid() {
			w.isWeekend = model.Ptr(model.IsWeekend(w.row.Date))
		}
	}

	if len(rows) != facts.Len() {
		return empty, stats, &etlerr.InvariantViolationError{
			Table: schema.AggregateSales,
			Want:  facts.Len(),
			Got:   len(rows),
		}
	}

	out := empty
	out.Rows = make([]model.AggregateSale, len(rows))
	for i, w := range rows {
		row := w.row
		row.IsHoliday = w.isHoliday != nil && *w.isHoliday
		row.IsWeekend = w.isWeekend != nil && *w.isWeekend
		out.Rows[i] = row
	}
	stats.Rows = len(out.Rows)

	logging.Info().
		Int("rows", stats.Rows).
		Int("family_matches", stats.FamilyMatches).
		Int("holiday_matches", stats.HolidayMatches).
		Int("store_matches", stats.StoreMatches).
		Msg("Derived aggregate sales")

	return out, stats, nil
}
