package aggregate

import (
	"errors"
	"slices"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/pgEdge/pgedge-salesetl/internal/dimension"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/fact"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

func day(d int) civil.Date {
	return civil.Date{Year: 2013, Month: time.June, Day: d}
}

func fixture() (dimension.Table[model.FactSale], Dimensions) {
	sales := []model.SaleRecord{
		{Date: day(1), StoreNbr: model.Ptr(1), Family: "BEVERAGES", Sales: model.Ptr(10.0)},
		{Date: day(3), StoreNbr: model.Ptr(2), Family: "AUTOMOTIVE", Sales: model.Ptr(5.0)},
		{Date: day(4), StoreNbr: model.Ptr(99), Family: "UNKNOWN", Sales: model.Ptr(1.0)},
		{StoreNbr: model.Ptr(1), Family: "BEVERAGES"},
	}
	families := dimension.BuildProductFamilies(sales[:2], dimension.KeyOrderSorted)
	holidays, _ := dimension.BuildHolidays([]model.HolidayRecord{
		{Date: day(1), Type: "Holiday", Locale: "Local", LocaleName: "Quito", Description: "Fundacion de Quito"},
		{Date: day(1), Type: "Event", Locale: "National", LocaleName: "Ecuador", Description: "Second holiday same day"},
	})
	stores := dimension.BuildStores([]model.StoreRecord{
		{StoreNbr: model.Ptr(1), City: "Quito", State: "Pichincha", Type: "D"},
		{StoreNbr: model.Ptr(2), City: "Guayaquil", State: "Guayas", Type: "A"},
	})
	facts := fact.Assemble(sales, families).Table
	return facts, Dimensions{Families: families, Holidays: holidays, Stores: stores}
}

func TestDerivePreservesCardinality(t *testing.T) {
	facts, dims := fixture()
	out, stats, err := Derive(facts, dims)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if out.Len() != facts.Len() {
		t.Errorf("Expected %d rows, got %d", facts.Len(), out.Len())
	}
	if stats.HolidayMatches != 1 {
		t.Errorf("Expected 1 holiday match, got %d", stats.HolidayMatches)
	}
}

func TestDeriveEnrichment(t *testing.T) {
	facts, dims := fixture()
	out, _, err := Derive(facts, dims)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	first := out.Rows[0]
	if !first.IsHoliday || first.HolidayType == nil || *first.HolidayType != "Holiday" {
		t.Errorf("Expected first holiday of the date, got %+v", first)
	}
	if !first.IsWeekend {
		t.Error("Expected 2013-06-01 to be a weekend")
	}
	if first.FamilyName == nil || *first.FamilyName != "BEVERAGES" {
		t.Errorf("Expected family name BEVERAGES, got %v", first.FamilyName)
	}
	if first.StoreCity == nil || *first.StoreCity != "Quito" {
		t.Errorf("Expected store city Quito, got %v", first.StoreCity)
	}
	if *first.Day != 1 || *first.Month != 6 || *first.Year != 2013 {
		t.Errorf("Unexpected calendar fields %d/%d/%d", *first.Day, *first.Month, *first.Year)
	}

	second := out.Rows[1]
	if second.IsHoliday || second.HolidayType != nil || second.HolidayDescription != nil {
		t.Errorf("Expected no holiday on 2013-06-03, got %+v", second)
	}
	if second.IsWeekend {
		t.Error("Expected 2013-06-03 to be a weekday")
	}

	unmatched := out.Rows[2]
	if unmatched.FamilyID != nil || unmatched.FamilyName != nil || unmatched.StoreCity != nil {
		t.Errorf("Expected unmatched joins to stay null, got %+v", unmatched)
	}

	noDate := out.Rows[3]
	if noDate.Day != nil || noDate.IsWeekend || noDate.IsHoliday {
		t.Errorf("Expected null date to yield null calendar and false flags, got %+v", noDate)
	}
}

func TestDeriveMissingKeyColumn(t *testing.T) {
	facts, dims := fixture()
	dims.Families.Columns = []string{"family_name"}

	_, _, err := Derive(facts, dims)
	var riErr *etlerr.ReferentialIntegrityError
	if !errors.As(err, &riErr) {
		t.Fatalf("Expected ReferentialIntegrityError, got %v", err)
	}
	if riErr.Key != "family_id" {
		t.Errorf("Expected family_id key, got %s", riErr.Key)
	}
}

func TestDeriveDetectsFanOut(t *testing.T) {
	facts, dims := fixture()
	dims.Stores.Rows = append(slices.Clone(dims.Stores.Rows),
		model.Store{StoreNbr: 1, City: "Duplicate", State: "Pichincha"})

	_, _, err := Derive(facts, dims)
	var invErr *etlerr.InvariantViolationError
	if !errors.As(err, &invErr) {
		t.Fatalf("Expected InvariantViolationError, got %v", err)
	}
	if invErr.Want != 4 || invErr.Got != 6 {
		t.Errorf("Expected 4 wanted and 6 got, got %d and %d", invErr.Want, invErr.Got)
	}
}

func TestDeriveDoesNotModifyInput(t *testing.T) {
	facts, dims := fixture()
	before := slices.Clone(facts.Rows)
	if _, _, err := Derive(facts, dims); err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if !slices.Equal(before, facts.Rows) {
		t.Error("Derive modified the fact table")
	}
}

func TestColumnsMatchRegistry(t *testing.T) {
	r, _ := schema.New(2013, 2017)
	if got := r.MustTable(schema.AggregateSales).InsertColumns(); !slices.Equal(got, Columns) {
		t.Errorf("Registry declares %v, derivation provides %v", got, Columns)
	}
	row := model.AggregateSale{}
	if len(row.Values()) != len(Columns) {
		t.Errorf("Row provides %d values for %d columns", len(row.Values()), len(Columns))
	}
}
