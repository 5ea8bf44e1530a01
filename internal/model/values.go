//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package model

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// dateLayouts are tried in order after the ISO form fails.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a calendar date. Timestamps are truncated to their date.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, fmt.Errorf("empty date")
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// DateValue returns the database value for d: a UTC midnight time, or nil
// when d is not a valid date.
func DateValue(d civil.Date) any {
	if !d.IsValid() {
		return nil
	}
	return d.In(time.UTC)
}

// Weekday returns the day of week with Monday as 0 and Sunday as 6.
func Weekday(d civil.Date) int {
	return (int(d.In(time.UTC).Weekday()) + 6) % 7
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d civil.Date) bool {
	return d.IsValid() && Weekday(d) >= 5
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
