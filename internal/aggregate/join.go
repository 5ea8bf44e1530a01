//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package aggregate

// indexBy groups rows by key. Rows whose key is not valid are skipped. With
// firstOnly set, only the first row per key is kept.
func indexBy[R any, K comparable](rows []R, key func(*R) (K, bool), firstOnly bool) map[K][]R {
	idx := make(map[K][]R, len(rows))
	for i := range rows {
		k, ok := key(&rows[i])
		if !ok {
			continue
		}
		if firstOnly && len(idx[k]) > 0 {
			continue
		}
		idx[k] = append(idx[k], rows[i])
	}
	return idx
}

// leftJoin returns one output row per (left row, match) pair and the left
// row unchanged when it has no match or no valid key. Output follows left
// order. Multiple matches fan out, which the caller detects by comparing
// counts.
func leftJoin[L any, R any, K comparable](left []L, idx map[K][]R, key func(*L) (K, bool), apply func(*L, *R)) (out []L, matched int) {
	out = make([]L, 0, len(left))
	for i := range left {
		var matches []R
		if k, ok := key(&left[i]); ok {
			matches = idx[k]
		}
		if len(matches) == 0 {
			out = append(out, left[i])
			continue
		}
		matched++
		for j := range matches {
			row := left[i]
			apply(&row, &matches[j])
			out = append(out, row)
		}
	}
	return out, matched
}
