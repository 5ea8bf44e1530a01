//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
)

// Expected columns per extract.
var (
	SalesColumns      = []string{"date", "store_nbr", "family", "sales", "onpromotion"}
	StoreColumns      = []string{"store_nbr", "city", "state", "type", "cluster"}
	OilColumns        = []string{"date", "dcoilwtico"}
	HolidayColumns    = []string{"date", "type", "locale", "locale_name", "description", "transferred"}
	PredictionColumns = []string{"key", "prediction"}
)

// Issues collects the data quality problems found while parsing. Each
// problem nulls one field; the row itself is kept.
type Issues []*etlerr.DataQualityError

// rowParser coerces the cells of one frame row, recording an issue for
// every non-empty value that fails to parse.
type rowParser struct {
	frame  *Frame
	row    int
	cells  []string
	issues *Issues
}

func (p *rowParser) text(col string) string {
	return strings.TrimSpace(p.cells[p.frame.Col(col)])
}

func (p *rowParser) fail(col, value string, err error) {
	*p.issues = append(*p.issues, &etlerr.DataQualityError{
		Table:  p.frame.Name,
		Row:    p.row,
		Column: col,
		Value:  value,
		Err:    err,
	})
}

func (p *rowParser) date(col string) civil.Date {
	s := p.text(col)
	if s == "" {
		return civil.Date{}
	}
	d, err := model.ParseDate(s)
	if err != nil {
		p.fail(col, s, err)
		return civil.Date{}
	}
	return d
}

func (p *rowParser) number(col string) *float64 {
	s := p.text(col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		if err == nil {
			err = fmt.Errorf("not a finite number")
		}
		p.fail(col, s, err)
		return nil
	}
	return &v
}

func (p *rowParser) integer(col string) *int {
	s := p.text(col)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < math.MinInt32 || v > math.MaxInt32 {
			p.fail(col, s, fmt.Errorf("out of integer range"))
			return nil
		}
		return &v
	}
	// Integral floats such as "3.0" are accepted.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		if err == nil {
			err = fmt.Errorf("not an integer")
		}
		p.fail(col, s, err)
		return nil
	}
	v := int(f)
	return &v
}

// ParseBool parses the boolean spellings found in the extracts.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y":
		return true, nil
	case "false", "f", "0", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func each(f *Frame, issues *Issues, fn func(p *rowParser)) {
	p := &rowParser{frame: f, issues: issues}
	for i, cells := range f.Rows {
		p.row = f.Line(i)
		p.cells = cells
		fn(p)
	}
}

// ParseSales parses the point-of-sale extract.
func ParseSales(f *Frame) ([]model.SaleRecord, Issues, error) {
	if err := f.Require(SalesColumns...); err != nil {
		return nil, nil, err
	}
	var issues Issues
	out := make([]model.SaleRecord, 0, f.Len())
	each(f, &issues, func(p *rowParser) {
		out = append(out, model.SaleRecord{
			Date:        p.date("date"),
			StoreNbr:    p.integer("store_nbr"),
			Family:      p.text("family"),
			Sales:       p.number("sales"),
			OnPromotion: p.integer("onpromotion"),
		})
	})
	return out, issues, nil
}

// ParseStores parses the store metadata extract.
func ParseStores(f *Frame) ([]model.StoreRecord, Issues, error) {
	if err := f.Require(StoreColumns...); err != nil {
		return nil, nil, err
	}
	var issues Issues
	out := make([]model.StoreRecord, 0, f.Len())
	each(f, &issues, func(p *rowParser) {
		out = append(out, model.StoreRecord{
			StoreNbr: p.integer("store_nbr"),
			City:     p.text("city"),
			State:    p.text("state"),
			Type:     p.text("type"),
			Cluster:  p.integer("cluster"),
		})
	})
	return out, issues, nil
}

// ParseOil parses the fuel price series. Missing prices are common and are
// not reported.
func ParseOil(f *Frame) ([]model.OilRecord, Issues, error) {
	if err := f.Require(OilColumns...); err != nil {
		return nil, nil, err
	}
	var issues Issues
	out := make([]model.OilRecord, 0, f.Len())
	each(f, &issues, func(p *rowParser) {
		out = append(out, model.OilRecord{
			Date:  p.date("date"),
			Price: p.number("dcoilwtico"),
		})
	})
	return out, issues, nil
}

// ParseHolidays parses the holiday calendar.
func ParseHolidays(f *Frame) ([]model.HolidayRecord, Issues, error) {
	if err := f.Require(HolidayColumns...); err != nil {
		return nil, nil, err
	}
	var issues Issues
	out := make([]model.HolidayRecord, 0, f.Len())
	each(f, &issues, func(p *rowParser) {
		out = append(out, model.HolidayRecord{
			Date:        p.date("date"),
			Type:        p.text("type"),
			Locale:      p.text("locale"),
			LocaleName:  p.text("locale_name"),
			Description: p.text("description"),
			Transferred: p.text("transferred"),
			Line:        p.row,
		})
	})
	return out, issues, nil
}

// ParsePredictions parses a key,prediction file into a map. Rows with an
// unparseable key or prediction are reported and skipped.
func ParsePredictions(f *Frame) (map[int]float64, Issues, error) {
	if err := f.Require(PredictionColumns...); err != nil {
		return nil, nil, err
	}
	var issues Issues
	out := make(map[int]float64, f.Len())
	each(f, &issues, func(p *rowParser) {
		key := p.integer("key")
		value := p.number("prediction")
		if key == nil || value == nil {
			return
		}
		out[*key] = *value
	})
	return out, issues, nil
}
