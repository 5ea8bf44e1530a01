//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package dimension builds the dimension tables of the star schema from the
// parsed extracts. Builders are pure: they never modify their input and
// always return fresh tables.
package dimension

import (
	"fmt"
	"slices"
	"strings"
)

// KeyOrder controls how surrogate keys are assigned.
type KeyOrder string

const (
	// KeyOrderSorted numbers natural keys in lexicographic order, so keys
	// are stable for the same set of values regardless of input order.
	KeyOrderSorted KeyOrder = "sorted"

	// KeyOrderFirstSeen numbers natural keys in order of first appearance.
	KeyOrderFirstSeen KeyOrder = "first-seen"
)

// ParseKeyOrder validates a configured key order.
func ParseKeyOrder(s string) (KeyOrder, error) {
	switch KeyOrder(s) {
	case KeyOrderSorted, KeyOrderFirstSeen:
		return KeyOrder(s), nil
	case "":
		return KeyOrderSorted, nil
	}
	return "", fmt.Errorf("unknown key order %q", s)
}

// Table is a built table: its name, the columns its rows provide in
// order, and the rows.
type Table[R any] struct {
	Name    string
	Columns []string
	Rows    []R
}

// Len returns the number of rows.
func (t Table[R]) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table provides the named column.
func (t Table[R]) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// Column lists for each dimension, in load order.
var (
	StoreColumns         = []string{"store_nbr", "city", "state", "type", "cluster"}
	ProductFamilyColumns = []string{"family_id", "family_name"}
	DateColumns          = []string{"date", "year", "month", "day", "weekday", "is_weekend"}
	HolidayColumns       = []string{"date", "type", "locale", "locale_name", "description", "transferred", "is_transferred", "day_of_week", "is_weekend"}
	CityStateColumns     = []string{"location_id", "city", "state"}
	OilColumns           = []string{"date", "price", "year"}
)

// distinct returns the distinct keys of items in the requested order.
// Keys for which keep returns false are dropped.
func distinct[T any, K comparable](items []T, key func(T) K, keep func(K) bool, order KeyOrder, less func(a, b K) int) []K {
	seen := make(map[K]struct{})
	var keys []K
	for _, it := range items {
		k := key(it)
		if !keep(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if order == KeyOrderSorted {
		slices.SortStableFunc(keys, less)
	}
	return keys
}

// cityState is the natural key of dim_city_state.
type cityState struct {
	city  string
	state string
}

func compareCityState(a, b cityState) int {
	if c := strings.Compare(a.city, b.city); c != 0 {
		return c
	}
	return strings.Compare(a.state, b.state)
}
