// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one harvest: search the ids of a query, fetch and
// parse them in batches, then write the collected records once.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v2"

	"github.com/pdiddy/pubmed-harvester/internal/medline"
	"github.com/pdiddy/pubmed-harvester/internal/observability"
	"github.com/pdiddy/pubmed-harvester/internal/query"
	"github.com/pdiddy/pubmed-harvester/internal/table"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// DefaultBatchSize is the number of ids sent per efetch request.
const DefaultBatchSize = 100

// Fetcher is the E-utilities surface the pipeline needs.
type Fetcher interface {
	Search(ctx context.Context, term string) ([]string, error)
	FetchBatch(ctx context.Context, ids []string) ([]byte, error)
}

// RecordSink receives the records of a completed run, after the CSV file
// is in place. The SQLite store implements it.
type RecordSink interface {
	SaveRecords(ctx context.Context, q query.Query, records []types.Record) error
}

// Publisher copies a written CSV file elsewhere. It returns the
// destination URI.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// Result describes a completed run.
type Result struct {
	Query     query.Query
	Term      string
	IDs       int
	Records   []types.Record
	Output    string
	Published string
	Duration  time.Duration
}

// Runner executes pipeline runs sequentially. Sink, Publisher and
// Metrics are optional.
type Runner struct {
	Fetcher   Fetcher
	BatchSize int
	OutputDir string

	Sink      RecordSink
	Publisher Publisher

	// Out receives the progress bar and the final summary line. Nil
	// discards them.
	Out     io.Writer
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Run harvests q. Any request, parse or write failure aborts the run and
// no CSV file is written for it.
func (r *Runner) Run(ctx context.Context, q query.Query) (*Result, error) {
	start := time.Now()
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	term := q.Term()
	log := r.Logger.With().Str("term", term).Logger()

	ids, err := r.Fetcher.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("searching ids: %w", err)
	}
	log.Info().Int("ids", len(ids)).Msg("search complete")

	batches := Partition(ids, batchSize)
	bar := progressbar.NewOptions(len(batches),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Fetching details"),
	)

	records := make([]types.Record, 0, len(ids))
	for i, batch := range batches {
		payload, err := r.Fetcher.FetchBatch(ctx, batch)
		if err != nil {
			r.Metrics.RecordBatch(false, 0)
			return nil, fmt.Errorf("fetching batch %d/%d: %w", i+1, len(batches), err)
		}
		parsed, err := medline.ParseBatch(payload)
		if err != nil {
			r.Metrics.RecordBatch(false, 0)
			return nil, fmt.Errorf("parsing batch %d/%d: %w", i+1, len(batches), err)
		}
		r.Metrics.RecordBatch(true, len(parsed))
		records = append(records, parsed...)

		log.Debug().Int("batch", i+1).Int("ids", len(batch)).Int("records", len(parsed)).Msg("batch parsed")
		bar.Add(1)
	}
	if len(batches) > 0 {
		fmt.Fprintln(out)
	}

	path := filepath.Join(r.OutputDir, table.Filename(q.FreeText, q.Years))
	if err := table.WriteFile(path, records); err != nil {
		return nil, err
	}
	r.Metrics.RecordWritten(len(records))
	fmt.Fprintf(out, "Saved %d records to %s\n", len(records), path)

	res := &Result{
		Query:   q,
		Term:    term,
		IDs:     len(ids),
		Records: records,
		Output:  path,
	}

	if r.Sink != nil {
		if err := r.Sink.SaveRecords(ctx, q, records); err != nil {
			return nil, fmt.Errorf("storing records: %w", err)
		}
	}
	if r.Publisher != nil {
		uri, err := r.Publisher.Publish(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("publishing %s: %w", path, err)
		}
		res.Published = uri
		log.Info().Str("uri", uri).Msg("published")
	}

	res.Duration = time.Since(start)
	log.Info().
		Int("records", len(records)).
		Str("output", path).
		Dur("duration", res.Duration).
		Msg("run complete")
	return res, nil
}

// Partition splits ids into consecutive batches of at most size ids,
// preserving order. It returns nil for an empty input.
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if len(ids) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}
