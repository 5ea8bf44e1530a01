package model

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    civil.Date
		wantErr bool
	}{
		{input: "2013-01-01", want: civil.Date{Year: 2013, Month: time.January, Day: 1}},
		{input: " 2016-02-29 ", want: civil.Date{Year: 2016, Month: time.February, Day: 29}},
		{input: "2015-07-04 13:45:00", want: civil.Date{Year: 2015, Month: time.July, Day: 4}},
		{input: "2014/12/25", want: civil.Date{Year: 2014, Month: time.December, Day: 25}},
		{input: "", wantErr: true},
		{input: "not-a-date", wantErr: true},
		{input: "2015-02-30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWeekday(t *testing.T) {
	tests := []struct {
		date    civil.Date
		weekday int
		weekend bool
	}{
		{civil.Date{Year: 2013, Month: time.January, Day: 1}, 1, false}, // Tuesday
		{civil.Date{Year: 2013, Month: time.June, Day: 1}, 5, true},     // Saturday
		{civil.Date{Year: 2013, Month: time.June, Day: 2}, 6, true},     // Sunday
		{civil.Date{Year: 2013, Month: time.June, Day: 3}, 0, false},    // Monday
	}

	for _, tt := range tests {
		if got := Weekday(tt.date); got != tt.weekday {
			t.Errorf("Weekday(%v): expected %d, got %d", tt.date, tt.weekday, got)
		}
		if got := IsWeekend(tt.date); got != tt.weekend {
			t.Errorf("IsWeekend(%v): expected %v, got %v", tt.date, tt.weekend, got)
		}
	}
}

func TestDateValue(t *testing.T) {
	if v := DateValue(civil.Date{}); v != nil {
		t.Errorf("Expected nil for zero date, got %v", v)
	}
	v := DateValue(civil.Date{Year: 2017, Month: time.August, Day: 15})
	tm, ok := v.(time.Time)
	if !ok {
		t.Fatalf("Expected time.Time, got %T", v)
	}
	if tm.Year() != 2017 || tm.Month() != time.August || tm.Day() != 15 || tm.Location() != time.UTC {
		t.Errorf("Unexpected time value %v", tm)
	}
}

func TestAggregateSaleValuesOrder(t *testing.T) {
	row := AggregateSale{
		Date:       civil.Date{Year: 2015, Month: time.March, Day: 2},
		StoreNbr:   Ptr(5),
		FamilyID:   Ptr(3),
		FamilyName: Ptr("BEVERAGES"),
		SaleAmount: Ptr(12.5),
	}
	values := row.Values()
	if len(values) != 16 {
		t.Fatalf("Expected 16 values, got %d", len(values))
	}
	if values[4] != false || values[5] != false {
		t.Errorf("Expected is_holiday and is_weekend false, got %v and %v", values[4], values[5])
	}
	if got := *(values[12].(*int)); got != 3 {
		t.Errorf("Expected family_id 3 at position 12, got %d", got)
	}
}
