package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/pipeline"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

var (
	summarizeFamilyPredictions string
	summarizeStorePredictions  string
	summarizeRefresh           bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Write yearly sales summaries per family and per store",
	Long: `Compute total sales per year for every product family and every store
from aggregate_sales, merge next-year predictions from CSV files of
key,prediction rows, and write summary_family_sales and summary_store_sales.

Existing summary rows are kept unless --refresh is given. Groups without a
prediction get zero.

Example:
  pgedge-salesetl summarize --family-predictions family_2018.csv \
      --store-predictions store_2018.csv --refresh`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeFamilyPredictions, "family-predictions", "",
		"CSV of family_id,prediction rows")
	summarizeCmd.Flags().StringVar(&summarizeStorePredictions, "store-predictions", "",
		"CSV of store_nbr,prediction rows")
	summarizeCmd.Flags().BoolVar(&summarizeRefresh, "refresh", false,
		"overwrite existing summary rows")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if summarizeFamilyPredictions != "" {
		cfg.Summary.FamilyPredictions = summarizeFamilyPredictions
	}
	if summarizeStorePredictions != "" {
		cfg.Summary.StorePredictions = summarizeStorePredictions
	}
	if summarizeRefresh {
		cfg.Summary.Refresh = true
	}

	// Validate configuration
	if err := cfg.ValidateSummary(); err != nil {
		return err
	}

	reg, err := schema.New(cfg.ETL.StartYear, cfg.ETL.EndYear)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	results, err := pipeline.Summarize(ctx, pool, reg, pipeline.SummarizeOptions{
		FamilyPredictions: cfg.Summary.FamilyPredictions,
		StorePredictions:  cfg.Summary.StorePredictions,
		Refresh:           cfg.Summary.Refresh,
		ChunkSize:         cfg.ETL.ChunkSize,
	})
	if err != nil {
		return err
	}

	for _, res := range results {
		cmd.Printf("  %-22s %6d groups %6d written\n", res.Table, res.Rows, res.Inserted)
	}
	return nil
}
