//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package loader

import (
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
)

// ProgressReporter tracks and reports load progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = totalRows + 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if an interval boundary was crossed.
func (p *ProgressReporter) Update(rowsWritten int64) {
	oldRow := p.currentRow
	p.currentRow += rowsWritten

	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Loading data")
	}
}

// Rows returns the number of rows reported so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done(inserted int64) {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Int64("inserted", inserted).
		Int64("skipped", p.currentRow-inserted).
		Msg("Table loaded")
}
