package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-salesetl/internal/testutil"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"dim_oil", `"dim_oil"`},
		{"sales_sum_2013", `"sales_sum_2013"`},
		{`odd"name`, `"odd""name"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.name); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestSaveRunMetadata(t *testing.T) {
	fake := testutil.NewFakeDB()
	err := SaveRunMetadata(context.Background(), fake, RunInfo{
		RunID:     "run-1",
		StartYear: 2013,
		EndYear:   2017,
		Status:    "complete",
	})
	if err != nil {
		t.Fatalf("SaveRunMetadata failed: %v", err)
	}

	stmts := fake.Snapshot()
	if len(stmts) != 7 {
		t.Fatalf("Expected 7 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0].SQL, "CREATE TABLE IF NOT EXISTS etl_metadata") {
		t.Errorf("Expected metadata table creation first, got %q", stmts[0].SQL)
	}

	saved := make(map[string]any)
	for _, s := range stmts[1:] {
		if !strings.Contains(s.SQL, "ON CONFLICT (key) DO UPDATE") {
			t.Errorf("Expected upsert, got %q", s.SQL)
		}
		saved[s.Args[0].(string)] = s.Args[1]
	}
	for key, want := range map[string]string{
		"run_id":     "run-1",
		"status":     "complete",
		"start_year": "2013",
		"end_year":   "2017",
	} {
		if saved[key] != want {
			t.Errorf("Expected %s=%s, got %v", key, want, saved[key])
		}
	}
	if _, ok := saved["loaded_at"]; !ok {
		t.Error("Expected loaded_at to be saved")
	}
}

func TestSaveRunMetadataError(t *testing.T) {
	fake := testutil.NewFakeDB()
	fake.ExecFunc = func(n int, sql string, args []any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}

	err := SaveRunMetadata(context.Background(), fake, RunInfo{RunID: "run-1"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to create metadata table") {
		t.Errorf("Expected create failure, got %v", err)
	}
}

func TestGetMetadataValue(t *testing.T) {
	fake := testutil.NewFakeDB()
	fake.QueryFunc = func(sql string, args []any) (*testutil.FakeRows, error) {
		if args[0] == "start_year" {
			return testutil.NewFakeRows([]string{"value"}, []any{"2013"}), nil
		}
		return testutil.NewFakeRows([]string{"value"}), nil
	}

	value, err := GetMetadataValue(context.Background(), fake, "start_year")
	if err != nil {
		t.Fatalf("GetMetadataValue failed: %v", err)
	}
	if value != "2013" {
		t.Errorf("Expected 2013, got %s", value)
	}

	_, err = GetMetadataValue(context.Background(), fake, "missing")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("Expected pgx.ErrNoRows, got %v", err)
	}
}

func TestGetAllMetadata(t *testing.T) {
	fake := testutil.NewFakeDB()
	fake.QueryFunc = func(sql string, args []any) (*testutil.FakeRows, error) {
		return testutil.NewFakeRows([]string{"key", "value"},
			[]any{"run_id", "run-1"},
			[]any{"status", "failed"},
		), nil
	}

	metadata, err := GetAllMetadata(context.Background(), fake)
	if err != nil {
		t.Fatalf("GetAllMetadata failed: %v", err)
	}
	if len(metadata) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(metadata))
	}
	if metadata["status"] != "failed" {
		t.Errorf("Expected status failed, got %s", metadata["status"])
	}
}

func TestMetadataExists(t *testing.T) {
	tests := []struct {
		name     string
		exists   bool
		expected bool
	}{
		{"present", true, true},
		{"absent", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeDB()
			fake.QueryFunc = func(sql string, args []any) (*testutil.FakeRows, error) {
				if args[0] != MetadataTable {
					t.Errorf("Expected table argument %s, got %v", MetadataTable, args[0])
				}
				return testutil.NewFakeRows([]string{"exists"}, []any{tt.exists}), nil
			}

			got, err := MetadataExists(context.Background(), fake)
			if err != nil {
				t.Fatalf("MetadataExists failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %t, got %t", tt.expected, got)
			}
		})
	}
}

func TestDropMetadata(t *testing.T) {
	fake := testutil.NewFakeDB()
	if err := DropMetadata(context.Background(), fake); err != nil {
		t.Fatalf("DropMetadata failed: %v", err)
	}
	stmts := fake.Snapshot()
	if len(stmts) != 1 || stmts[0].SQL != "DROP TABLE IF EXISTS etl_metadata" {
		t.Errorf("Expected a single drop statement, got %v", stmts)
	}
}
