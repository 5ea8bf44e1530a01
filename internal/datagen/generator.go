//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/pgEdge/pgedge-salesetl/internal/extract"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
)

// File names written by Generate. They match the default source paths.
const (
	SalesFile    = "train.csv"
	StoresFile   = "stores.csv"
	OilFile      = "oil.csv"
	HolidaysFile = "holidays_events.csv"
)

// Config configures sample extract generation.
type Config struct {
	OutDir    string
	StartYear int
	EndYear   int
	Stores    int
	Families  int

	// Seed makes the output reproducible. Zero picks a random seed.
	Seed uint64
}

// Files are the paths Generate wrote.
type Files struct {
	Sales    string
	Stores   string
	Oil      string
	Holidays string
}

var (
	storeTypes     = []string{"A", "B", "C", "D", "E"}
	holidayTypes   = []string{"Holiday", "Event", "Additional", "Transfer", "Bridge", "Work Day"}
	holidayWeights = []int{50, 15, 15, 8, 6, 6}
	locales        = []string{"National", "Regional", "Local"}
	localeWeights  = []int{50, 15, 35}
)

// Generator writes sample extracts in the layout the extract readers
// expect.
type Generator struct {
	cfg   Config
	faker *Faker
}

// NewGenerator validates cfg and returns a Generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.EndYear < cfg.StartYear {
		return nil, fmt.Errorf("end year %d is before start year %d", cfg.EndYear, cfg.StartYear)
	}
	if cfg.Stores < 1 || cfg.Families < 1 {
		return nil, fmt.Errorf("stores and families must be at least 1")
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}

	faker := NewFaker()
	if cfg.Seed != 0 {
		faker = NewFakerWithSeed(cfg.Seed)
	}
	return &Generator{cfg: cfg, faker: faker}, nil
}

// Generate writes all four extracts.
func (g *Generator) Generate(ctx context.Context) (Files, error) {
	if err := os.MkdirAll(g.cfg.OutDir, 0755); err != nil {
		return Files{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := Files{
		Sales:    filepath.Join(g.cfg.OutDir, SalesFile),
		Stores:   filepath.Join(g.cfg.OutDir, StoresFile),
		Oil:      filepath.Join(g.cfg.OutDir, OilFile),
		Holidays: filepath.Join(g.cfg.OutDir, HolidaysFile),
	}

	cities := g.cities()
	steps := []struct {
		path string
		fn   func(w *csv.Writer) (int, error)
	}{
		{files.Stores, func(w *csv.Writer) (int, error) { return g.writeStores(w, cities) }},
		{files.Holidays, func(w *csv.Writer) (int, error) { return g.writeHolidays(w, cities) }},
		{files.Oil, g.writeOil},
		{files.Sales, func(w *csv.Writer) (int, error) { return g.writeSales(ctx, w) }},
	}
	for _, step := range steps {
		if err := writeFile(step.path, step.fn); err != nil {
			return files, err
		}
	}
	return files, nil
}

func writeFile(path string, fn func(w *csv.Writer) (int, error)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows, err := fn(w)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	logging.Info().
		Str("file", path).
		Int("rows", rows).
		Msg("Sample extract written")
	return nil
}

type city struct {
	name  string
	state string
}

// cities returns a small pool of locations; several stores share a city.
func (g *Generator) cities() []city {
	n := max(1, (g.cfg.Stores+1)/2)
	out := make([]city, n)
	for i := range out {
		out[i] = city{name: g.faker.City(), state: g.faker.State()}
	}
	return out
}

// families returns distinct upper-case product family names.
func (g *Generator) families() []string {
	seen := make(map[string]bool, g.cfg.Families)
	out := make([]string, 0, g.cfg.Families)
	for attempts := 0; len(out) < g.cfg.Families && attempts < g.cfg.Families*20; attempts++ {
		name := strings.ToUpper(g.faker.ProductCategory())
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for i := len(out); i < g.cfg.Families; i++ {
		out = append(out, fmt.Sprintf("FAMILY %d", i+1))
	}
	return out
}

func (g *Generator) days() []civil.Date {
	start := civil.Date{Year: g.cfg.StartYear, Month: time.January, Day: 1}
	end := civil.Date{Year: g.cfg.EndYear, Month: time.December, Day: 31}
	out := make([]civil.Date, 0, end.DaysSince(start)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (g *Generator) writeStores(w *csv.Writer, cities []city) (int, error) {
	if err := w.Write(extract.StoreColumns); err != nil {
		return 0, err
	}
	for i := 1; i <= g.cfg.Stores; i++ {
		c := Choose(g.faker, cities)
		err := w.Write([]string{
			strconv.Itoa(i),
			c.name,
			c.state,
			Choose(g.faker, storeTypes),
			strconv.Itoa(g.faker.Int(1, 17)),
		})
		if err != nil {
			return i - 1, err
		}
	}
	return g.cfg.Stores, nil
}

func (g *Generator) writeHolidays(w *csv.Writer, cities []city) (int, error) {
	if err := w.Write(extract.HolidayColumns); err != nil {
		return 0, err
	}
	rows := 0
	for year := g.cfg.StartYear; year <= g.cfg.EndYear; year++ {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		for range g.faker.Int(6, 12) {
			locale := ChooseWeighted(g.faker, locales, localeWeights)
			localeName := "Ecuador"
			switch locale {
			case "Regional":
				localeName = Choose(g.faker, cities).state
			case "Local":
				localeName = Choose(g.faker, cities).name
			}
			holidayType := ChooseWeighted(g.faker, holidayTypes, holidayWeights)
			transferred := "False"
			if holidayType == "Holiday" && g.faker.Int(1, 20) == 1 {
				transferred = "True"
			}

			err := w.Write([]string{
				civil.DateOf(g.faker.DateRange(start, end)).String(),
				holidayType,
				locale,
				localeName,
				strings.TrimSuffix(g.faker.Sentence(3), "."),
				transferred,
			})
			if err != nil {
				return rows, err
			}
			rows++
		}
	}
	return rows, nil
}

// writeOil writes a random walk of weekday prices with occasional gaps.
func (g *Generator) writeOil(w *csv.Writer) (int, error) {
	if err := w.Write(extract.OilColumns); err != nil {
		return 0, err
	}
	price := g.faker.Float64(40, 110)
	rows := 0
	for _, d := range g.days() {
		if wd := d.In(time.UTC).Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		price = max(10, price+g.faker.Float64(-2, 2))
		value := strconv.FormatFloat(price, 'f', 2, 64)
		if g.faker.Int(1, 25) == 1 {
			value = ""
		}
		if err := w.Write([]string{d.String(), value}); err != nil {
			return rows, err
		}
		rows++
	}
	return rows, nil
}

// writeSales writes one row per day, store and family. About a third of
// the rows record no sales.
func (g *Generator) writeSales(ctx context.Context, w *csv.Writer) (int, error) {
	if err := w.Write(extract.SalesColumns); err != nil {
		return 0, err
	}
	families := g.families()
	rows := 0
	for _, d := range g.days() {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		date := d.String()
		for store := 1; store <= g.cfg.Stores; store++ {
			storeNbr := strconv.Itoa(store)
			for _, family := range families {
				sales := "0"
				promo := 0
				if g.faker.Int(1, 3) != 1 {
					sales = strconv.FormatFloat(g.faker.Price(1, 500), 'f', 3, 64)
					promo = ChooseWeighted(g.faker, []int{0, 1, 5, 20}, []int{70, 15, 10, 5})
				}
				if err := w.Write([]string{date, storeNbr, family, sales, strconv.Itoa(promo)}); err != nil {
					return rows, err
				}
				rows++
			}
		}
	}
	return rows, nil
}
