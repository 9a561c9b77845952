// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-harvester/internal/eutils"
	"github.com/pdiddy/pubmed-harvester/internal/httputil"
	"github.com/pdiddy/pubmed-harvester/internal/observability"
	"github.com/pdiddy/pubmed-harvester/internal/pipeline"
	"github.com/pdiddy/pubmed-harvester/internal/publish"
	"github.com/pdiddy/pubmed-harvester/internal/store"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// harvester holds everything a command needs to run pipelines. Optional
// parts (store, publisher) are nil when not configured.
type harvester struct {
	cfg       types.HarvestConfig
	logger    zerolog.Logger
	metrics   *observability.Metrics
	store     *store.Store
	publisher *publish.Publisher
	runner    *pipeline.Runner
}

func newHarvester(ctx context.Context, cfg types.HarvestConfig, out, logOut io.Writer) (*harvester, error) {
	h := &harvester{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg.Log, logOut),
		metrics: observability.NewMetrics(),
	}

	hc := httputil.NewClient(
		&http.Client{Timeout: cfg.HTTP.Timeout},
		httputil.PolicyFromConfig(cfg.Retry),
		cfg.Eutils.RateLimit,
		h.logger,
	)
	hc.UserAgent = cfg.HTTP.UserAgent
	hc.OnRetry = h.metrics.RecordRetry

	h.runner = &pipeline.Runner{
		Fetcher:   eutils.New(cfg.Eutils, hc, h.logger, h.metrics),
		BatchSize: cfg.BatchSize,
		OutputDir: cfg.OutputDir,
		Out:       out,
		Logger:    h.logger,
		Metrics:   h.metrics,
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		h.store = st
		h.runner.Sink = st
	}

	if cfg.GCS.Bucket != "" {
		pub, err := publish.NewGCS(ctx, cfg.GCS)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.publisher = pub
		h.runner.Publisher = pub
	}

	return h, nil
}

// Close writes the metrics textfile and releases the store and the
// storage client.
func (h *harvester) Close() error {
	var errs []error
	if err := h.metrics.WriteTextfile(h.cfg.MetricsFile); err != nil {
		errs = append(errs, err)
	}
	if h.store != nil {
		errs = append(errs, h.store.Close())
	}
	if h.publisher != nil {
		errs = append(errs, h.publisher.Close())
	}
	return errors.Join(errs...)
}
