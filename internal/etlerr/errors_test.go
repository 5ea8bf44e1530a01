package etlerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorsAs(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("failed to load fact_sales: %w",
		&LoadError{Table: "fact_sales", Chunk: 2, Start: 20000, End: 25000, Err: cause})

	var loadErr *LoadError
	if !errors.As(wrapped, &loadErr) {
		t.Fatal("Expected errors.As to find LoadError")
	}
	if loadErr.Chunk != 2 || loadErr.Start != 20000 || loadErr.End != 25000 {
		t.Errorf("Unexpected chunk bounds: %+v", loadErr)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Expected LoadError to unwrap to its cause")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "missing column",
			err:  &SchemaError{Table: "stores", Column: "city"},
			want: `stores is missing column "city"`,
		},
		{
			name: "table create",
			err:  &SchemaError{Table: "dim_store", Err: errors.New("permission denied")},
			want: "table dim_store: permission denied",
		},
		{
			name: "data quality",
			err:  &DataQualityError{Table: "sales", Row: 7, Column: "date", Value: "not-a-date"},
			want: `sales row 7 column date: cannot parse "not-a-date"`,
		},
		{
			name: "referential integrity",
			err:  &ReferentialIntegrityError{Table: "aggregate_sales", Dimension: "dim_product_family", Key: "family_id"},
			want: "cannot join dim_product_family on family_id",
		},
		{
			name: "invariant",
			err:  &InvariantViolationError{Table: "aggregate_sales", Want: 10, Got: 12},
			want: "aggregate_sales has 12 rows, expected 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("Expected %q to contain %q", tt.err.Error(), tt.want)
			}
		})
	}
}
