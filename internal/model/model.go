//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package model defines the records read from the raw extracts and the rows
// of every table in the star schema.
//
// Dates use civil.Date; an invalid (zero) date is written as NULL. Nullable
// numbers and booleans are pointers.
package model

import (
	"cloud.google.com/go/civil"
)

// Row is implemented by every loadable table row. Values returns the column
// values in the table's declared column order.
type Row interface {
	Values() []any
}

// Values converts a slice of rows to the value matrix the loader writes.
func Values[R Row](rows []R) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}

// Raw extract records.

// SaleRecord is one row of the point-of-sale extract.
type SaleRecord struct {
	Date        civil.Date
	StoreNbr    *int
	Family      string
	Sales       *float64
	OnPromotion *int
}

// StoreRecord is one row of the store metadata extract.
type StoreRecord struct {
	StoreNbr *int
	City     string
	State    string
	Type     string
	Cluster  *int
}

// OilRecord is one row of the fuel price series.
type OilRecord struct {
	Date  civil.Date
	Price *float64
}

// HolidayRecord is one row of the holiday calendar.
type HolidayRecord struct {
	Date        civil.Date
	Type        string
	Locale      string
	LocaleName  string
	Description string
	Transferred string
	// Line is the source file line, zero when unknown.
	Line int
}

// Dimension rows.

// Store is a dim_store row.
type Store struct {
	StoreNbr int
	City     string
	State    string
	Type     string
	Cluster  *int
}

func (s Store) Values() []any {
	return []any{s.StoreNbr, s.City, s.State, s.Type, s.Cluster}
}

// ProductFamily is a dim_product_family row.
type ProductFamily struct {
	FamilyID   int
	FamilyName string
}

func (p ProductFamily) Values() []any {
	return []any{p.FamilyID, p.FamilyName}
}

// Date is a dim_date row.
type Date struct {
	Date      civil.Date
	Year      int
	Month     int
	Day       int
	Weekday   int
	IsWeekend bool
}

func (d Date) Values() []any {
	return []any{DateValue(d.Date), d.Year, d.Month, d.Day, d.Weekday, d.IsWeekend}
}

// Holiday is a dim_holiday row.
type Holiday struct {
	Date          civil.Date
	Type          string
	Locale        string
	LocaleName    string
	Description   string
	Transferred   string
	IsTransferred bool
	DayOfWeek     *int
	IsWeekend     bool
}

func (h Holiday) Values() []any {
	return []any{
		DateValue(h.Date), h.Type, h.Locale, h.LocaleName, h.Description,
		h.Transferred, h.IsTransferred, h.DayOfWeek, h.IsWeekend,
	}
}

// CityState is a dim_city_state row.
type CityState struct {
	LocationID int
	City       string
	State      string
}

func (c CityState) Values() []any {
	return []any{c.LocationID, c.City, c.State}
}

// Oil is a dim_oil row. The id column is assigned by the database.
type Oil struct {
	Date  civil.Date
	Price *float64
	Year  *int
}

func (o Oil) Values() []any {
	return []any{DateValue(o.Date), o.Price, o.Year}
}

// Fact and aggregate rows.

// FactSale is a fact_sales row. FamilyID is nil when the sale's family has
// no match in dim_product_family.
type FactSale struct {
	Date        civil.Date
	StoreNbr    *int
	FamilyID    *int
	Sales       *float64
	OnPromotion *int
}

func (f FactSale) Values() []any {
	return []any{DateValue(f.Date), f.StoreNbr, f.FamilyID, f.Sales, f.OnPromotion}
}

// AggregateSale is an aggregate_sales row: a fact row enriched with
// calendar, holiday, store and family attributes.
type AggregateSale struct {
	Date               civil.Date
	Day                *int
	Month              *int
	Year               *int
	IsHoliday          bool
	IsWeekend          bool
	HolidayType        *string
	HolidayDescription *string
	StoreNbr           *int
	StoreCity          *string
	StoreState         *string
	StoreType          *string
	FamilyID           *int
	FamilyName         *string
	SaleAmount         *float64
	OnPromotion        *int
}

func (a AggregateSale) Values() []any {
	return []any{
		DateValue(a.Date), a.Day, a.Month, a.Year, a.IsHoliday, a.IsWeekend,
		a.HolidayType, a.HolidayDescription, a.StoreNbr, a.StoreCity,
		a.StoreState, a.StoreType, a.FamilyID, a.FamilyName, a.SaleAmount,
		a.OnPromotion,
	}
}
