package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/etlerr"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/pipeline"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

var (
	loadSales            string
	loadStores           string
	loadOil              string
	loadHolidays         string
	loadChunkSize        int
	loadKeyOrder         string
	loadStrict           bool
	loadDropExisting     bool
	loadSummarize        bool
	loadProgressInterval int
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Extract, transform and load the star schema",
	Long: `Read the four source extracts, build the dimension, fact and aggregate
tables, and load them in dependency order. Each chunk of rows is written in
its own transaction; rows whose key already exists are skipped, so a load can
be repeated safely.

Sources may be local paths or gs://bucket/object URIs.

Example:
  pgedge-salesetl load --sales data/train.csv --stores data/stores.csv \
      --oil data/oil.csv --holidays data/holidays_events.csv
  pgedge-salesetl load --chunk-size 5000 --summarize`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadSales, "sales", "",
		"sales extract (default: data/train.csv)")
	loadCmd.Flags().StringVar(&loadStores, "stores", "",
		"store extract (default: data/stores.csv)")
	loadCmd.Flags().StringVar(&loadOil, "oil", "",
		"oil price extract (default: data/oil.csv)")
	loadCmd.Flags().StringVar(&loadHolidays, "holidays", "",
		"holiday extract (default: data/holidays_events.csv)")
	loadCmd.Flags().IntVar(&loadChunkSize, "chunk-size", 0,
		"rows per transaction (default: 10000)")
	loadCmd.Flags().StringVar(&loadKeyOrder, "key-order", "",
		"surrogate key order: sorted or first-seen")
	loadCmd.Flags().BoolVar(&loadStrict, "strict", false,
		"abort on the first value that fails to parse")
	loadCmd.Flags().BoolVar(&loadDropExisting, "drop-existing", false,
		"drop existing schema before loading")
	loadCmd.Flags().BoolVar(&loadSummarize, "summarize", false,
		"write the summary tables for the loaded extracts")
	loadCmd.Flags().IntVar(&loadProgressInterval, "progress-interval", 0,
		"rows between progress log lines")
}

func runLoad(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if loadSales != "" {
		cfg.Sources.Sales = loadSales
	}
	if loadStores != "" {
		cfg.Sources.Stores = loadStores
	}
	if loadOil != "" {
		cfg.Sources.Oil = loadOil
	}
	if loadHolidays != "" {
		cfg.Sources.Holidays = loadHolidays
	}
	if loadChunkSize > 0 {
		cfg.ETL.ChunkSize = loadChunkSize
	}
	if loadKeyOrder != "" {
		cfg.ETL.KeyOrder = loadKeyOrder
	}
	if loadStrict {
		cfg.ETL.Strict = true
	}
	if loadDropExisting {
		cfg.ETL.DropExisting = true
	}
	if loadProgressInterval > 0 {
		cfg.ETL.ProgressInterval = loadProgressInterval
	}

	// Validate configuration
	if err := cfg.ValidateLoad(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	report, err := pipeline.Run(ctx, pool, cfg)
	for _, res := range report.Results {
		cmd.Printf("  %-22s %10d rows %10d inserted %4d chunks\n",
			res.Table, res.Rows, res.Inserted, res.Chunks)
	}
	if err != nil {
		if ctx.Err() != nil {
			logging.Info().Msg("Load interrupted; committed chunks were kept")
		}
		var loadErr *etlerr.LoadError
		if errors.As(err, &loadErr) {
			return fmt.Errorf("load finished with errors: %w", err)
		}
		return err
	}

	if !loadSummarize {
		return nil
	}

	reg, err := schema.New(cfg.ETL.StartYear, cfg.ETL.EndYear)
	if err != nil {
		return err
	}
	_, err = pipeline.Summarize(ctx, pool, reg, pipeline.SummarizeOptions{
		FamilyPredictions: cfg.Summary.FamilyPredictions,
		StorePredictions:  cfg.Summary.StorePredictions,
		Refresh:           cfg.Summary.Refresh,
		ChunkSize:         cfg.ETL.ChunkSize,
		Dataset:           report.Dataset,
	})
	return err
}
