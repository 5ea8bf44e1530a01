//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesetl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/config"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	logLevel   string
	startYear  int
	endYear    int

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesetl",
		Short: "Retail sales star schema ETL for PostgreSQL",
		Long: `pgedge-salesetl reads retail sales, store, fuel price and holiday
extracts, builds a star schema of dimension and fact tables, and loads it
into PostgreSQL with conflict-safe, chunked transactions. It also maintains
yearly summary tables and answers aggregate sales queries.

Re-running a load against the same data does not duplicate keyed rows.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesetl.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&startYear, "start-year", 0,
		"first year of the date dimension and summaries (default: 2013)")
	rootCmd.PersistentFlags().IntVar(&endYear, "end-year", 0,
		"last year of the date dimension and summaries (default: 2017)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if startYear > 0 {
		cfg.ETL.StartYear = startYear
	}
	if endYear > 0 {
		cfg.ETL.EndYear = endYear
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the star schema",
	Long: `List the tables pgedge-salesetl creates, in load order, with the
key used to skip rows that are already present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateYears(); err != nil {
			return err
		}
		reg, err := schema.New(cfg.ETL.StartYear, cfg.ETL.EndYear)
		if err != nil {
			return err
		}

		cmd.Println("Star schema tables:")
		cmd.Println()
		for _, t := range reg.Tables() {
			key := "(none, rows are appended)"
			if cols := t.ConflictColumns(); len(cols) > 0 {
				key = fmt.Sprint(cols)
			}
			cmd.Printf("  %-22s %2d columns  key %s\n", t.Name, len(t.Columns), key)
		}
		cmd.Println()
		cmd.Printf("Summary columns cover %d-%d with predictions in %s.\n",
			reg.StartYear(), reg.EndYear(), reg.PredictionColumn())
		return nil
	},
}
