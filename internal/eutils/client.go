// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package eutils talks to the NCBI E-utilities: esearch for the id list of
// a query and efetch for batches of PubMed records.
package eutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-harvester/internal/httputil"
	"github.com/pdiddy/pubmed-harvester/internal/observability"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

const (
	// DefaultBaseURL is the E-utilities root.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRetMax asks esearch for every matching id.
	DefaultRetMax = 1000000

	maxErrorBody = 4 << 10
)

// ErrMalformedResponse is returned when an esearch reply lacks the
// esearchresult object or its idlist, or carries an ERROR field.
var ErrMalformedResponse = errors.New("malformed esearch response")

// StatusError is returned for a non-200 response that the retry policy
// does not cover.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client issues esearch and efetch requests through a retrying HTTP client.
type Client struct {
	cfg     types.EutilsConfig
	http    *httputil.Client
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Client. Empty BaseURL and zero RetMax take the package
// defaults. metrics may be nil.
func New(cfg types.EutilsConfig, hc *httputil.Client, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RetMax <= 0 {
		cfg.RetMax = DefaultRetMax
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc, logger: logger, metrics: metrics}
}

type esearchEnvelope struct {
	Result *esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count  string    `json:"count"`
	IDList *[]string `json:"idlist"`
	Error  string    `json:"ERROR"`
}

// Search runs one esearch request for term and returns the matching PMIDs
// in upstream order.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(c.cfg.RetMax))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "esearch", params)
	if err != nil {
		return nil, err
	}

	var env esearchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Result == nil {
		return nil, fmt.Errorf("%w: missing esearchresult", ErrMalformedResponse)
	}
	if env.Result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, env.Result.Error)
	}
	if env.Result.IDList == nil {
		return nil, fmt.Errorf("%w: missing idlist", ErrMalformedResponse)
	}

	ids := *env.Result.IDList
	if count, err := strconv.Atoi(env.Result.Count); err == nil && count > len(ids) {
		c.logger.Warn().
			Int("count", count).
			Int("returned", len(ids)).
			Int("retmax", c.cfg.RetMax).
			Msg("esearch result truncated by upstream cap")
	}

	c.logger.Debug().Int("ids", len(ids)).Str("term", term).Msg("esearch complete")
	return ids, nil
}

// FetchBatch runs one efetch request for ids and returns the raw XML.
func (c *Client) FetchBatch(ctx context.Context, ids []string) ([]byte, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	return c.get(ctx, "efetch", params)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Tool != "" {
		params.Set("tool", c.cfg.Tool)
	}
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
	}

	u := c.cfg.BaseURL + "/" + endpoint + ".fcgi?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.metrics.RecordRequest(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", endpoint, err)
	}
	return body, nil
}
