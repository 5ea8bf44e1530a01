//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etlerr defines the error kinds raised by the ETL pipeline.
// Callers match them with errors.As.
package etlerr

import (
	"fmt"
)

// SchemaError reports a missing source column or a target table that
// could not be created.
type SchemaError struct {
	Table  string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("schema error: %s is missing column %q", e.Table, e.Column)
	case e.Err != nil:
		return fmt.Sprintf("schema error: table %s: %v", e.Table, e.Err)
	default:
		return fmt.Sprintf("schema error: table %s", e.Table)
	}
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DataQualityError reports a value that could not be coerced to its
// declared type. The offending field is nulled and the row is kept. Row is
// the source file line the record starts on.
type DataQualityError struct {
	Table  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *DataQualityError) Error() string {
	msg := fmt.Sprintf("data quality: %s row %d column %s: cannot parse %q", e.Table, e.Row, e.Column, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataQualityError) Unwrap() error { return e.Err }

// ReferentialIntegrityError reports a join whose dimension does not carry
// the expected key column.
type ReferentialIntegrityError struct {
	Table     string
	Dimension string
	Key       string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("referential integrity: %s cannot join %s on %s: key column missing",
		e.Table, e.Dimension, e.Key)
}

// InvariantViolationError reports a broken row-count postcondition.
type InvariantViolationError struct {
	Table string
	Want  int
	Got   int
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: %s has %d rows, expected %d", e.Table, e.Got, e.Want)
}

// LoadError reports a chunk that failed to commit. Chunks before it stay
// committed; rows [Start, End) were rolled back.
type LoadError struct {
	Table string
	Chunk int
	Start int
	End   int
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load error: %s chunk %d (rows %d-%d): %v", e.Table, e.Chunk, e.Start, e.End, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
