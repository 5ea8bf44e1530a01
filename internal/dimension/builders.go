//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dimension

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// BuildStores deduplicates stores by store_nbr; the first occurrence wins.
// Stores without a number cannot be keyed and are dropped.
func BuildStores(records []model.StoreRecord) Table[model.Store] {
	t := Table[model.Store]{Name: schema.DimStore, Columns: StoreColumns}
	seen := make(map[int]struct{}, len(records))
	dropped := 0
	for _, r := range records {
		if r.StoreNbr == nil {
			dropped++
			continue
		}
		if _, ok := seen[*r.StoreNbr]; ok {
			continue
		}
		seen[*r.StoreNbr] = struct{}{}
		t.Rows = append(t.Rows, model.Store{
			StoreNbr: *r.StoreNbr,
			City:     r.City,
			State:    r.State,
			Type:     r.Type,
			Cluster:  r.Cluster,
		})
	}
	if dropped > 0 {
		logging.Warn().Int("rows", dropped).Msg("Dropped stores without a store number")
	}
	return t
}

// BuildProductFamilies assigns a 1-based family_id to every distinct
// family name found in the sales extract.
func BuildProductFamilies(sales []model.SaleRecord, order KeyOrder) Table[model.ProductFamily] {
	names := distinct(sales,
		func(s model.SaleRecord) string { return s.Family },
		func(name string) bool { return name != "" },
		order, strings.Compare)

	t := Table[model.ProductFamily]{
		Name:    schema.DimProductFamily,
		Columns: ProductFamilyColumns,
		Rows:    make([]model.ProductFamily, len(names)),
	}
	for i, name := range names {
		t.Rows[i] = model.ProductFamily{FamilyID: i + 1, FamilyName: name}
	}
	return t
}

// BuildDates generates one row per day from January 1 of startYear up to,
// but not including, January 1 of endYear+1.
func BuildDates(startYear, endYear int) (Table[model.Date], error) {
	if startYear > endYear {
		return Table[model.Date]{}, fmt.Errorf("start year %d is after end year %d", startYear, endYear)
	}

	start := civil.Date{Year: startYear, Month: time.January, Day: 1}
	end := civil.Date{Year: endYear + 1, Month: time.January, Day: 1}

	t := Table[model.Date]{
		Name:    schema.DimDate,
		Columns: DateColumns,
		Rows:    make([]model.Date, 0, end.DaysSince(start)),
	}
	for d := start; d.Before(end); d = d.AddDays(1) {
		weekday := model.Weekday(d)
		t.Rows = append(t.Rows, model.Date{
			Date:      d,
			Year:      d.Year,
			Month:     int(d.Month),
			Day:       d.Day,
			Weekday:   weekday,
			IsWeekend: weekday >= 5,
		})
	}
	return t, nil
}

// BuildHolidays normalizes the holiday calendar. day_of_week and is_weekend
// are computed from the date with the same convention as the date
// dimension. Duplicates on (date, locale, locale_name) are kept; the loader
// rejects them.
func BuildHolidays(records []model.HolidayRecord) (Table[model.Holiday], extract.Issues) {
	t := Table[model.Holiday]{
		Name:    schema.DimHoliday,
		Columns: HolidayColumns,
		Rows:    make([]model.Holiday, len(records)),
	}
	var issues extract.Issues
	for i, r := range records {
		transferred, err := extract.ParseBool(r.Transferred)
		if err != nil {
			issues = append(issues, &etlerr.DataQualityError{
				Table:  schema.DimHoliday,
				Row:    r.Line,
				Column: "transferred",
				Value:  r.Transferred,
				Err:    err,
			})
		}

		h := model.Holiday{
			Date:          r.Date,
			Type:          r.Type,
			Locale:        r.Locale,
			LocaleName:    r.LocaleName,
			Description:   r.Description,
			Transferred:   r.Transferred,
			IsTransferred: transferred,
		}
		if r.Date.IsValid() {
			h.DayOfWeek = model.Ptr(model.Weekday(r.Date))
			h.IsWeekend = model.IsWeekend(r.Date)
		}
		t.Rows[i] = h
	}
	return t, issues
}

// BuildCityStates assigns a location_id to every distinct (city, state)
// pair of the store extract.
func BuildCityStates(stores []model.StoreRecord, order KeyOrder) Table[model.CityState] {
	pairs := distinct(stores,
		func(s model.StoreRecord) cityState { return cityState{city: s.City, state: s.State} },
		func(k cityState) bool { return k.city != "" || k.state != "" },
		order, compareCityState)

	t := Table[model.CityState]{
		Name:    schema.DimCityState,
		Columns: CityStateColumns,
		Rows:    make([]model.CityState, len(pairs)),
	}
	for i, p := range pairs {
		t.Rows[i] = model.CityState{LocationID: i + 1, City: p.city, State: p.state}
	}
	return t
}

// BuildOil projects the fuel price series. The year is taken from the date;
// a missing price stays NULL.
func BuildOil(records []model.OilRecord) Table[model.Oil] {
	t := Table[model.Oil]{
		Name:    schema.DimOil,
		Columns: OilColumns,
		Rows:    make([]model.Oil, len(records)),
	}
	for i, r := range records {
		o := model.Oil{Date: r.Date, Price: r.Price}
		if r.Date.IsValid() {
			o.Year = model.Ptr(r.Date.Year)
		}
		t.Rows[i] = o
	}
	return t
}
