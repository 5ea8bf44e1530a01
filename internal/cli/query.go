package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesetl/internal/db"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/query"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
	"github.com/pgEdge/pgedge-salesetl/internal/summary"
)

var (
	queryStore  int
	queryFamily int
	queryDay    int
	queryMonth  int
	queryYear   int
	querySum    bool
	queryYears  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the loaded sales data",
	Long: `Answer aggregate sales questions against the loaded star schema.

Example:
  pgedge-salesetl query sales --store 1 --year 2015 --sum
  pgedge-salesetl query sales --family 3 --day 1 --month 4 --year 2016 --sum
  pgedge-salesetl query families
  pgedge-salesetl query trend
  pgedge-salesetl query summary store --years 2016,2017`,
}

var querySalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Sum sales for a store, family and date filter",
	Long: `Sum sales for a filter. Supported combinations:
  --store --year            store total for a year
  --family --year           family total for a year
  --store --family --year   store and family total for a year
  --family --day --month --year [--store]
  --store --day --month --year
  --family                  family total over all years

Only summed results are supported, so --sum is required.`,
	RunE: runQuerySales,
}

var queryFamiliesCmd = &cobra.Command{
	Use:   "families",
	Short: "List product families and their keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReader(func(ctx context.Context, r *query.Reader) error {
			families, err := r.FamilyNames(ctx)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout(), "FAMILY_ID", "FAMILY_NAME")
			for _, f := range families {
				fmt.Fprintf(w, "%d\t%s\n", f.ID, f.Name)
			}
			return w.Flush()
		})
	},
}

var queryTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Print total sales per day",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReader(func(ctx context.Context, r *query.Reader) error {
			points, err := r.SalesTrend(ctx)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout(), "DATE", "TOTAL")
			for _, p := range points {
				fmt.Fprintf(w, "%s\t%.2f\n", p.Date, p.Total)
			}
			return w.Flush()
		})
	},
}

var querySummaryCmd = &cobra.Command{
	Use:       "summary family|store",
	Short:     "Print yearly sales per family or per store",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(summary.ByFamily), string(summary.ByStore)},
	RunE:      runQuerySummary,
}

func init() {
	querySalesCmd.Flags().IntVar(&queryStore, "store", 0, "store number")
	querySalesCmd.Flags().IntVar(&queryFamily, "family", 0, "product family id")
	querySalesCmd.Flags().IntVar(&queryDay, "day", 0, "day of month")
	querySalesCmd.Flags().IntVar(&queryMonth, "month", 0, "month")
	querySalesCmd.Flags().IntVar(&queryYear, "year", 0, "year")
	querySalesCmd.Flags().BoolVar(&querySum, "sum", false, "return summed sales")

	querySummaryCmd.Flags().StringVar(&queryYears, "years", "",
		"comma separated years (default: every summarized year)")

	queryCmd.AddCommand(querySalesCmd)
	queryCmd.AddCommand(queryFamiliesCmd)
	queryCmd.AddCommand(queryTrendCmd)
	queryCmd.AddCommand(querySummaryCmd)
}

// withReader connects, builds a Reader for the configured year range and
// runs fn.
func withReader(fn func(ctx context.Context, r *query.Reader) error) error {
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

	return fn(ctx, query.NewReader(pool, reg))
}

func newTable(out io.Writer, headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

// changedInt returns a pointer to the flag value when the flag was given.
func changedInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func runQuerySales(cmd *cobra.Command, args []string) error {
	filter := query.Filter{
		Store:   changedInt(cmd, "store", queryStore),
		Family:  changedInt(cmd, "family", queryFamily),
		Day:     changedInt(cmd, "day", queryDay),
		Month:   changedInt(cmd, "month", queryMonth),
		Year:    changedInt(cmd, "year", queryYear),
		WantSum: querySum,
	}

	req, err := query.Resolve(filter)
	if err != nil {
		return fmt.Errorf("%s: %w", filter, err)
	}

	return withReader(func(ctx context.Context, r *query.Reader) error {
		res, err := r.Execute(ctx, req)
		if err != nil {
			return err
		}
		logging.Debug().Str("kind", res.Kind).Msg("Query answered")

		if res.Total == nil {
			cmd.Println("no matching sales")
			return nil
		}
		cmd.Printf("%.2f\n", *res.Total)
		return nil
	})
}

func runQuerySummary(cmd *cobra.Command, args []string) error {
	g, err := summary.ParseGrouping(args[0])
	if err != nil {
		return err
	}

	var years []int
	if queryYears != "" {
		for _, part := range strings.Split(queryYears, ",") {
			y, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fmt.Errorf("invalid year %q", part)
			}
			years = append(years, y)
		}
		slices.Sort(years)
		years = slices.Compact(years)
	}

	return withReader(func(ctx context.Context, r *query.Reader) error {
		if len(years) == 0 {
			years = schemaYears()
		}
		rows, err := r.SummaryBy(ctx, g, years)
		if err != nil {
			return err
		}

		headers := []string{strings.ToUpper(g.KeyColumn())}
		if g == summary.ByFamily {
			headers = append(headers, "FAMILY_NAME")
		}
		for _, y := range years {
			headers = append(headers, strconv.Itoa(y))
		}
		w := newTable(cmd.OutOrStdout(), headers...)
		for _, row := range rows {
			cells := []string{strconv.Itoa(row.Key)}
			if g == summary.ByFamily {
				name := ""
				if row.FamilyName != nil {
					name = *row.FamilyName
				}
				cells = append(cells, name)
			}
			for _, y := range years {
				cells = append(cells, strconv.FormatFloat(row.Sales[y], 'f', 2, 64))
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		return w.Flush()
	})
}

func schemaYears() []int {
	years := make([]int, 0, cfg.ETL.EndYear-cfg.ETL.StartYear+1)
	for y := cfg.ETL.StartYear; y <= cfg.ETL.EndYear; y++ {
		years = append(years, y)
	}
	return years
}
