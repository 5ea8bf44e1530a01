package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-salesetl/internal/config"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/loader"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/internal/testutil"
)

func day(m time.Month, d int) civil.Date {
	return civil.Date{Year: 2013, Month: m, Day: d}
}

func extracts() *extract.Extracts {
	return &extract.Extracts{
		Sales: []model.SaleRecord{
			{Date: day(time.January, 1), StoreNbr: model.Ptr(1), Family: "BEVERAGES", Sales: model.Ptr(10.0)},
			{Date: day(time.January, 2), StoreNbr: model.Ptr(2), Family: "AUTOMOTIVE", Sales: model.Ptr(4.0)},
			{Date: day(time.January, 2), StoreNbr: model.Ptr(1), Family: "BEVERAGES", Sales: model.Ptr(2.5)},
		},
		Stores: []model.StoreRecord{
			{StoreNbr: model.Ptr(1), City: "Quito", State: "Pichincha", Type: "D", Cluster: model.Ptr(13)},
			{StoreNbr: model.Ptr(2), City: "Quito", State: "Pichincha", Type: "D", Cluster: model.Ptr(13)},
		},
		Oil: []model.OilRecord{
			{Date: day(time.January, 1)},
			{Date: day(time.January, 2), Price: model.Ptr(93.14)},
		},
		Holidays: []model.HolidayRecord{
			{Date: day(time.January, 1), Type: "Holiday", Locale: "National", LocaleName: "Ecuador",
				Description: "Primer dia del ano", Transferred: "False"},
		},
	}
}

func TestBuild(t *testing.T) {
	ds, err := Build(extracts(), BuildOptions{StartYear: 2013, EndYear: 2013})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	tests := []struct {
		name string
		got  int
		want int
	}{
		{"oil", ds.Oil.Len(), 2},
		{"stores", ds.Stores.Len(), 2},
		{"families", ds.Families.Len(), 2},
		{"dates", ds.Dates.Len(), 365},
		{"holidays", ds.Holidays.Len(), 1},
		{"city states", ds.CityStates.Len(), 1},
		{"facts", ds.Facts.Len(), 3},
		{"aggregate", ds.Aggregate.Len(), 3},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %d %s rows, got %d", tt.want, tt.name, tt.got)
		}
	}

	if !ds.Aggregate.Rows[0].IsHoliday {
		t.Error("Expected 2013-01-01 to be a holiday")
	}
}

func TestBuildTablesOrder(t *testing.T) {
	ds, err := Build(extracts(), BuildOptions{StartYear: 2013, EndYear: 2013})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	reg, _ := schema.New(2013, 2013)
	want := []string{
		schema.DimOil, schema.DimStore, schema.DimProductFamily, schema.DimDate,
		schema.DimHoliday, schema.DimCityState, schema.FactSales, schema.AggregateSales,
	}
	tables := ds.Tables()
	if len(tables) != len(want) {
		t.Fatalf("Expected %d tables, got %d", len(want), len(tables))
	}
	for i, tr := range tables {
		if tr.Name != want[i] {
			t.Errorf("Expected table %d to be %s, got %s", i, want[i], tr.Name)
		}
		cols := len(reg.MustTable(tr.Name).InsertColumns())
		for _, row := range tr.Rows {
			if len(row) != cols {
				t.Errorf("%s row has %d values, table has %d columns", tr.Name, len(row), cols)
				break
			}
		}
	}
}

func TestBuildStrict(t *testing.T) {
	ex := extracts()
	ex.Issues = extract.Issues{{Table: "sales", Row: 3, Column: "sales", Value: "abc"}}

	if _, err := Build(ex, BuildOptions{StartYear: 2013, EndYear: 2013}); err != nil {
		t.Errorf("Expected lenient build to succeed, got %v", err)
	}

	_, err := Build(ex, BuildOptions{StartYear: 2013, EndYear: 2013, Strict: true})
	var dqErr *etlerr.DataQualityError
	if !errors.As(err, &dqErr) {
		t.Fatalf("Expected DataQualityError, got %v", err)
	}
	if dqErr.Row != 3 {
		t.Errorf("Expected row 3, got %d", dqErr.Row)
	}
}

func TestBuildInvalidYears(t *testing.T) {
	if _, err := Build(extracts(), BuildOptions{StartYear: 2015, EndYear: 2013}); err == nil {
		t.Error("Expected error for inverted year range")
	}
}

func TestLoadDatasetContinuesAfterFailure(t *testing.T) {
	ds, err := Build(extracts(), BuildOptions{StartYear: 2013, EndYear: 2013})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	reg, _ := schema.New(2013, 2013)

	fake := testutil.NewFakeDB()
	fake.ExecFunc = func(n int, sql string, args []any) (pgconn.CommandTag, error) {
		if strings.Contains(sql, `"dim_holiday"`) {
			return pgconn.CommandTag{}, errors.New("check constraint violated")
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}

	results, err := NewLoader(fake, reg, loader.DefaultOptions()).LoadDataset(context.Background(), ds)
	var loadErr *etlerr.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError, got %v", err)
	}
	if loadErr.Table != schema.DimHoliday {
		t.Errorf("Expected failing table dim_holiday, got %s", loadErr.Table)
	}
	if len(results) != 8 {
		t.Fatalf("Expected all 8 tables attempted, got %d", len(results))
	}
	if results[7].Table != schema.AggregateSales || results[7].Chunks != 1 {
		t.Errorf("Expected aggregate_sales loaded after the failure, got %+v", results[7])
	}
	if fake.Rollbacks != 1 {
		t.Errorf("Expected 1 rollback, got %d", fake.Rollbacks)
	}
}

func TestLoadDatasetStopsOnCancel(t *testing.T) {
	ds, _ := Build(extracts(), BuildOptions{StartYear: 2013, EndYear: 2013})
	reg, _ := schema.New(2013, 2013)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := testutil.NewFakeDB()
	results, err := NewLoader(fake, reg, loader.DefaultOptions()).LoadDataset(ctx, ds)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected to stop after the first table, got %d results", len(results))
	}
}

func TestSummarize(t *testing.T) {
	reg, _ := schema.New(2013, 2014)
	existing := make([][]any, 0)
	for _, tbl := range reg.Tables() {
		existing = append(existing, []any{tbl.Name})
	}

	dir := t.TempDir()
	preds := filepath.Join(dir, "family.csv")
	if err := os.WriteFile(preds, []byte("key,prediction\n1,99.5\n"), 0644); err != nil {
		t.Fatalf("writing predictions failed: %v", err)
	}

	fake := testutil.NewFakeDB()
	fake.QueryFunc = func(sql string, args []any) (*testutil.FakeRows, error) {
		switch {
		case strings.Contains(sql, "information_schema"):
			return testutil.NewFakeRows([]string{"table_name"}, existing...), nil
		case strings.Contains(sql, `MAX("family_name")`):
			return testutil.NewFakeRows([]string{"family_id", "family_name", "s13", "s14"},
				[]any{1, "AUTOMOTIVE", 1.0, 2.0}), nil
		default:
			return testutil.NewFakeRows([]string{"store_nbr", "s13", "s14"},
				[]any{1, 3.0, 4.0}, []any{2, 5.0, 6.0}), nil
		}
	}

	results, err := Summarize(context.Background(), fake, reg, SummarizeOptions{FamilyPredictions: preds})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Table != schema.SummaryFamilySales || results[0].Rows != 1 {
		t.Errorf("Unexpected family result %+v", results[0])
	}
	if results[1].Table != schema.SummaryStoreSales || results[1].Rows != 2 {
		t.Errorf("Unexpected store result %+v", results[1])
	}

	var familyInsert *testutil.Statement
	for _, st := range fake.Snapshot() {
		if strings.HasPrefix(st.SQL, `INSERT INTO "summary_family_sales"`) {
			familyInsert = &st
		}
		if strings.HasPrefix(st.SQL, "CREATE TABLE") {
			t.Errorf("Expected no tables created, got %s", st.SQL)
		}
	}
	if familyInsert == nil {
		t.Fatal("Expected a family summary insert")
	}
	if familyInsert.Args[4] != 99.5 {
		t.Errorf("Expected prediction 99.5, got %v", familyInsert.Args[4])
	}
}

func TestSummarizeFromDataset(t *testing.T) {
	ds, err := Build(extracts(), BuildOptions{StartYear: 2013, EndYear: 2013})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	reg, _ := schema.New(2013, 2013)

	fake := testutil.NewFakeDB()
	fake.QueryFunc = func(sql string, args []any) (*testutil.FakeRows, error) {
		if strings.Contains(sql, `FROM "aggregate_sales"`) {
			t.Errorf("Expected no aggregate query, got %s", sql)
		}
		return testutil.NewFakeRows([]string{"table_name"}), nil
	}

	results, err := Summarize(context.Background(), fake, reg, SummarizeOptions{Dataset: ds})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(results) != 2 || results[0].Rows != 2 || results[1].Rows != 2 {
		t.Fatalf("Expected 2 families and 2 stores, got %+v", results)
	}

	var storeInsert *testutil.Statement
	for _, st := range fake.Snapshot() {
		if strings.HasPrefix(st.SQL, `INSERT INTO "summary_store_sales"`) {
			storeInsert = &st
		}
	}
	if storeInsert == nil {
		t.Fatal("Expected a store summary insert")
	}
	// store_nbr, sales_sum_2013, predicted_sales_2014 per store
	want := []any{1, 12.5, 0.0, 2, 4.0, 0.0}
	if len(storeInsert.Args) != len(want) {
		t.Fatalf("Expected %d args, got %d", len(want), len(storeInsert.Args))
	}
	for i := range want {
		if storeInsert.Args[i] != want[i] {
			t.Errorf("Expected arg %d = %v, got %v", i, want[i], storeInsert.Args[i])
		}
	}
}

func TestRunReadError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources.Sales = filepath.Join(t.TempDir(), "missing.csv")

	fake := testutil.NewFakeDB()
	report, err := Run(context.Background(), fake, cfg)
	if err == nil {
		t.Fatal("Expected error for missing extract")
	}
	if report.RunID == "" || report.Status != StatusFailed {
		t.Errorf("Unexpected report %+v", report)
	}
	if len(fake.Statements) != 0 {
		t.Errorf("Expected no database work before extracts are read, got %d statements", len(fake.Statements))
	}
}
