package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent ETL run",
	Long: `Print the metadata recorded by the most recent load: run id, status,
year range, tool version and load time.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	exists, err := db.MetadataExists(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to check metadata: %w", err)
	}
	if !exists {
		cmd.Println("No ETL run recorded. Run 'pgedge-salesetl load' first.")
		return nil
	}

	metadata, err := db.GetAllMetadata(ctx, pool)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	cmd.Println("Last ETL run:")
	for _, k := range keys {
		cmd.Printf("  %-12s %s\n", k+":", metadata[k])
	}
	return nil
}
