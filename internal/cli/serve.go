package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/api"
	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/query"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sales queries over HTTP",
	Long: `Start a read-only JSON API over the loaded star schema.

Endpoints:
  GET /healthz
  GET /api/v1/sales?store=1&year=2015&sum=true
  GET /api/v1/families
  GET /api/v1/trends
  GET /api/v1/summary/{family|store}?years=2016,2017

Example:
  pgedge-salesetl serve --listen :8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default: :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if serveListen != "" {
		cfg.Serve.Listen = serveListen
	}

	// Validate configuration
	if err := cfg.ValidateServe(); err != nil {
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

	return api.New(query.NewReader(pool, reg)).Listen(ctx, cfg.Serve.Listen)
}
