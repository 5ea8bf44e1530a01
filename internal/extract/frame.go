//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package extract reads the raw CSV extracts and parses them into typed
// records.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
)

// Warning is a non-fatal problem found while reading a CSV file. Row is the
// file line the record starts on; the header is line 1.
type Warning struct {
	Row     int
	Message string
}

// Frame is a CSV file held as rows of strings.
type Frame struct {
	Name     string
	Encoding string
	Header   []string
	Rows     [][]string
	Warnings []Warning

	// Lines holds the file line each entry in Rows starts on. Quoted
	// newlines and skipped rows make it differ from the row index.
	Lines []int

	index map[string]int
}

// ReadCSV reads a CSV file with a header row. Short rows are padded and long
// rows truncated to the header width; unparseable rows are skipped. Each of
// these is recorded as a Warning.
func ReadCSV(name string, r io.Reader) (*Frame, error) {
	decoded, enc := NewDecodingReader(r)

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read %s: empty file, no header row", name)
		}
		return nil, fmt.Errorf("failed to read %s header: %w", name, err)
	}

	f := &Frame{
		Name:     name,
		Encoding: enc,
		Header:   make([]string, len(header)),
		index:    make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		f.Header[i] = h
		if _, dup := f.index[h]; !dup {
			f.index[h] = i
		}
	}

	width := len(f.Header)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("failed to read %s: %w", name, err)
			}
			f.Warnings = append(f.Warnings, Warning{Row: perr.StartLine, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		line, _ := reader.FieldPos(0)

		switch {
		case len(row) < width:
			f.Warnings = append(f.Warnings, Warning{
				Row:     line,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding", len(row), width),
			})
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		case len(row) > width:
			f.Warnings = append(f.Warnings, Warning{
				Row:     line,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating", len(row), width),
			})
			row = row[:width]
		}
		f.Rows = append(f.Rows, row)
		f.Lines = append(f.Lines, line)
	}

	return f, nil
}

// Require checks that every named column is present. The first missing
// column is reported as a SchemaError.
func (f *Frame) Require(cols ...string) error {
	for _, c := range cols {
		if _, ok := f.index[c]; !ok {
			return &etlerr.SchemaError{Table: f.Name, Column: c}
		}
	}
	return nil
}

// Col returns the position of a column, or -1.
func (f *Frame) Col(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// Line returns the file line Rows[i] starts on.
func (f *Frame) Line(i int) int {
	if i < len(f.Lines) {
		return f.Lines[i]
	}
	return i + 2
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}
