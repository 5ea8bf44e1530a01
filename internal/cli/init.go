package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/pipeline"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the star schema",
	Long: `Create every star schema table that does not exist yet. Existing
tables are left untouched unless --drop-existing is given.

Example:
  pgedge-salesetl init --connection "postgres://..."
  pgedge-salesetl init --drop-existing --start-year 2013 --end-year 2017`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing schema before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initDropExisting {
		cfg.ETL.DropExisting = true
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateYears(); err != nil {
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

	// A schema built for another year range has different summary columns.
	if !cfg.ETL.DropExisting {
		if start, err := db.GetMetadataValue(ctx, pool, "start_year"); err == nil {
			end, _ := db.GetMetadataValue(ctx, pool, "end_year")
			if start != fmt.Sprint(cfg.ETL.StartYear) || end != fmt.Sprint(cfg.ETL.EndYear) {
				logging.Warn().
					Str("loaded_range", start+"-"+end).
					Int("start_year", cfg.ETL.StartYear).
					Int("end_year", cfg.ETL.EndYear).
					Msg("Database was loaded for a different year range; use --drop-existing to rebuild")
			}
		}
	}

	created, err := pipeline.PrepareSchema(ctx, pool, reg, cfg.ETL.DropExisting)
	if err != nil {
		return err
	}

	logging.Info().
		Int("created", len(created)).
		Int("tables", len(reg.Tables())).
		Msg("Schema initialization complete")

	return nil
}
