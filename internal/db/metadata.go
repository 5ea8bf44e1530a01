//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/pkg/version"
)

// MetadataTable records the most recent ETL run.
const MetadataTable = "etl_metadata"

const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS etl_metadata (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
)`

// RunInfo describes a completed ETL run.
type RunInfo struct {
	RunID     string
	StartYear int
	EndYear   int
	Status    string
}

// SaveRunMetadata records run information, replacing the previous run's
// values.
func SaveRunMetadata(ctx context.Context, d DB, run RunInfo) error {
	if _, err := d.Exec(ctx, createMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	metadata := map[string]string{
		"run_id":     run.RunID,
		"status":     run.Status,
		"version":    version.Short(),
		"loaded_at":  time.Now().UTC().Format(time.RFC3339),
		"start_year": fmt.Sprintf("%d", run.StartYear),
		"end_year":   fmt.Sprintf("%d", run.EndYear),
	}

	for key, value := range metadata {
		_, err := d.Exec(ctx, `
            INSERT INTO etl_metadata (key, value) VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, value)
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("status", run.Status).
		Msg("Saved run metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, d DB, key string) (string, error) {
	var value string
	err := d.QueryRow(ctx, `
        SELECT value FROM etl_metadata WHERE key = $1
    `, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, d DB) (map[string]string, error) {
	rows, err := d.Query(ctx, `SELECT key, value FROM etl_metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, d DB) error {
	_, err := d.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", MetadataTable))
	return err
}

// MetadataExists checks if the metadata table exists.
func MetadataExists(ctx context.Context, d DB) (bool, error) {
	var exists bool
	err := d.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT FROM information_schema.tables
            WHERE table_schema = current_schema() AND table_name = $1
        )
    `, MetadataTable).Scan(&exists)
	return exists, err
}
