//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesetl.
// Configuration is loaded from config files, an optional .env file and
// environment variables, then overridden by CLI flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Key orders for surrogate key assignment.
const (
	KeyOrderSorted    = "sorted"
	KeyOrderFirstSeen = "first-seen"
)

// Config holds all configuration for pgedge-salesetl.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Sources lists the raw extract locations.
	Sources SourcesConfig `mapstructure:"sources"`

	// ETL holds configuration for the load subcommand.
	ETL ETLConfig `mapstructure:"etl"`

	// Summary holds configuration for the summarize subcommand.
	Summary SummaryConfig `mapstructure:"summary"`

	// Serve holds configuration for the HTTP read surface.
	Serve ServeConfig `mapstructure:"serve"`

	// Generate holds configuration for sample extract generation.
	Generate GenerateConfig `mapstructure:"generate"`
}

// SourcesConfig holds the extract locations. Each value is a local path
// or a gs://bucket/object URI.
type SourcesConfig struct {
	Sales    string `mapstructure:"sales"`
	Stores   string `mapstructure:"stores"`
	Oil      string `mapstructure:"oil"`
	Holidays string `mapstructure:"holidays"`
}

// ETLConfig holds configuration for the transform and load pipeline.
type ETLConfig struct {
	// StartYear and EndYear bound the date dimension and the summary columns.
	StartYear int `mapstructure:"start_year"`
	EndYear   int `mapstructure:"end_year"`

	// ChunkSize is the number of rows written per transaction.
	ChunkSize int `mapstructure:"chunk_size"`

	// KeyOrder controls surrogate key assignment: sorted or first-seen.
	KeyOrder string `mapstructure:"key_order"`

	// Strict aborts the run on the first data quality issue.
	Strict bool `mapstructure:"strict"`

	// DropExisting drops the star schema before loading.
	DropExisting bool `mapstructure:"drop_existing"`

	// ProgressInterval is the row count between progress log lines.
	ProgressInterval int `mapstructure:"progress_interval"`
}

// SummaryConfig holds configuration for the summary sink.
type SummaryConfig struct {
	// FamilyPredictions and StorePredictions are optional CSV files of
	// key,prediction pairs.
	FamilyPredictions string `mapstructure:"family_predictions"`
	StorePredictions  string `mapstructure:"store_predictions"`

	// Refresh updates existing summary rows instead of skipping them.
	Refresh bool `mapstructure:"refresh"`
}

// ServeConfig holds configuration for the HTTP server.
type ServeConfig struct {
	Listen string `mapstructure:"listen"`
}

// GenerateConfig holds configuration for sample extract generation.
type GenerateConfig struct {
	OutDir   string `mapstructure:"out_dir"`
	Stores   int    `mapstructure:"stores"`
	Families int    `mapstructure:"families"`
	Seed     uint64 `mapstructure:"seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Sources: SourcesConfig{
			Sales:    "data/train.csv",
			Stores:   "data/stores.csv",
			Oil:      "data/oil.csv",
			Holidays: "data/holidays_events.csv",
		},
		ETL: ETLConfig{
			StartYear:        2013,
			EndYear:          2017,
			ChunkSize:        10000,
			KeyOrder:         KeyOrderSorted,
			ProgressInterval: 100000,
		},
		Serve: ServeConfig{
			Listen: ":8080",
		},
		Generate: GenerateConfig{
			OutDir:   "data",
			Stores:   10,
			Families: 12,
			Seed:     42,
		},
	}
}

// Load reads configuration from config files and the environment.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesetl.yaml
// 3. ~/.config/pgedge-salesetl/config.yaml
//
// A .env file in the working directory is loaded first if present.
// SALESETL_CONNECTION (or DATABASE_URL) and SALESETL_LOG_LEVEL override
// the file values.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("pgedge-salesetl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesetl"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.BindEnv("connection", "SALESETL_CONNECTION", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}
	if err := v.BindEnv("log_level", "SALESETL_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("error binding environment: %w", err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateYears checks the configured year range.
func (c *Config) ValidateYears() error {
	if c.ETL.StartYear < 1 || c.ETL.EndYear < 1 {
		return fmt.Errorf("start_year and end_year are required")
	}
	if c.ETL.StartYear > c.ETL.EndYear {
		return fmt.Errorf("start_year %d is after end_year %d", c.ETL.StartYear, c.ETL.EndYear)
	}
	return nil
}

// ValidateLoad checks configuration required for the load command.
func (c *Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateYears(); err != nil {
		return err
	}
	if c.ETL.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1")
	}
	if c.ETL.KeyOrder != KeyOrderSorted && c.ETL.KeyOrder != KeyOrderFirstSeen {
		return fmt.Errorf("key_order must be '%s' or '%s'", KeyOrderSorted, KeyOrderFirstSeen)
	}
	if c.Sources.Sales == "" || c.Sources.Stores == "" ||
		c.Sources.Oil == "" || c.Sources.Holidays == "" {
		return fmt.Errorf("all four source extracts are required")
	}
	return nil
}

// ValidateSummary checks configuration required for the summarize command.
func (c *Config) ValidateSummary() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.ValidateYears()
}

// ValidateServe checks configuration required for the serve command.
func (c *Config) ValidateServe() error {
	if err := c.ValidateSummary(); err != nil {
		return err
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if err := c.ValidateYears(); err != nil {
		return err
	}
	if c.Generate.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Generate.Stores < 1 || c.Generate.Families < 1 {
		return fmt.Errorf("stores and families must be at least 1")
	}
	return nil
}
