//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
)

const gcsScheme = "gs://"

// Extract names, used as the table name in errors.
const (
	NameSales    = "sales"
	NameStores   = "stores"
	NameOil      = "oil"
	NameHolidays = "holidays"
)

// Sources holds the location of each extract: a local path or a
// gs://bucket/object URI.
type Sources struct {
	Sales    string
	Stores   string
	Oil      string
	Holidays string
}

// Extracts holds the parsed extracts.
type Extracts struct {
	Sales    []model.SaleRecord
	Stores   []model.StoreRecord
	Oil      []model.OilRecord
	Holidays []model.HolidayRecord

	// Issues lists coercion failures from all extracts, sales first.
	Issues Issues
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

// SplitGCSURI splits gs://bucket/object into its bucket and object names.
func SplitGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %s", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gs:// URI %s: expected gs://bucket/object", uri)
	}
	return bucket, object, nil
}

// Open opens an extract for reading.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", uri, err)
		}
		return f, nil
	}

	bucket, object, err := SplitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open GCS object %s: %w", uri, err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

// ReadFrame opens and reads one CSV extract.
func ReadFrame(ctx context.Context, name, uri string) (*Frame, error) {
	rc, err := Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := ReadCSV(name, rc)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("extract", name).
		Str("source", uri).
		Str("encoding", f.Encoding).
		Int("rows", f.Len()).
		Int("warnings", len(f.Warnings)).
		Msg("Read extract")
	for _, w := range f.Warnings {
		logging.Debug().Str("extract", name).Int("row", w.Row).Msg(w.Message)
	}
	return f, nil
}

// ReadAll reads and parses the four extracts concurrently.
func ReadAll(ctx context.Context, src Sources) (*Extracts, error) {
	var (
		out                                                Extracts
		salesIssues, storeIssues, oilIssues, holidayIssues Issues
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := ReadFrame(gctx, NameSales, src.Sales)
		if err != nil {
			return err
		}
		out.Sales, salesIssues, err = ParseSales(f)
		return err
	})
	g.Go(func() error {
		f, err := ReadFrame(gctx, NameStores, src.Stores)
		if err != nil {
			return err
		}
		out.Stores, storeIssues, err = ParseStores(f)
		return err
	})
	g.Go(func() error {
		f, err := ReadFrame(gctx, NameOil, src.Oil)
		if err != nil {
			return err
		}
		out.Oil, oilIssues, err = ParseOil(f)
		return err
	})
	g.Go(func() error {
		f, err := ReadFrame(gctx, NameHolidays, src.Holidays)
		if err != nil {
			return err
		}
		out.Holidays, holidayIssues, err = ParseHolidays(f)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Issues = make(Issues, 0, len(salesIssues)+len(storeIssues)+len(oilIssues)+len(holidayIssues))
	out.Issues = append(out.Issues, salesIssues...)
	out.Issues = append(out.Issues, storeIssues...)
	out.Issues = append(out.Issues, oilIssues...)
	out.Issues = append(out.Issues, holidayIssues...)

	return &out, nil
}

// ReadPredictions reads an optional key,prediction file. An empty uri
// yields no predictions.
func ReadPredictions(ctx context.Context, uri string) (map[int]float64, error) {
	if uri == "" {
		return map[int]float64{}, nil
	}
	f, err := ReadFrame(ctx, "predictions", uri)
	if err != nil {
		return nil, err
	}
	preds, issues, err := ParsePredictions(f)
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		logging.Warn().Err(issue).Msg("Skipping prediction row")
	}
	return preds, nil
}
