// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package eutils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-harvester/internal/httputil"
	"github.com/pdiddy/pubmed-harvester/internal/observability"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg types.EutilsConfig) (*Client, *observability.Metrics) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg.BaseURL = ts.URL
	hc := httputil.NewClient(ts.Client(), httputil.NewRetryPolicy(2, time.Millisecond, nil), 0, zerolog.Nop())
	m := observability.NewMetrics()
	return New(cfg, hc, zerolog.Nop(), m), m
}

func TestSearch(t *testing.T) {
	var got *http.Request
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"header":{"type":"esearch"},"esearchresult":{"count":"3","retmax":"3","idlist":["39000001","39000002","39000003"]}}`))
	}, types.EutilsConfig{APIKey: "k", Tool: "pubmed-harvester", Email: "a@b.org"})

	ids, err := c.Search(context.Background(), "fitness AND (2015:2016[dp])")
	require.NoError(t, err)
	assert.Equal(t, []string{"39000001", "39000002", "39000003"}, ids)

	require.NotNil(t, got)
	assert.Equal(t, "/esearch.fcgi", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "pubmed", q.Get("db"))
	assert.Equal(t, "fitness AND (2015:2016[dp])", q.Get("term"))
	assert.Equal(t, "1000000", q.Get("retmax"))
	assert.Equal(t, "json", q.Get("retmode"))
	assert.Equal(t, "k", q.Get("api_key"))
	assert.Equal(t, "pubmed-harvester", q.Get("tool"))
	assert.Equal(t, "a@b.org", q.Get("email"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("esearch", "200")))
}

func TestSearch_EmptyIDList(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	}, types.EutilsConfig{})

	ids, err := c.Search(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearch_OmitsUnsetCredentials(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	}, types.EutilsConfig{RetMax: 50})

	_, err := c.Search(context.Background(), "x")
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "50", q.Get("retmax"))
	assert.False(t, q.Has("api_key"))
	assert.False(t, q.Has("tool"))
	assert.False(t, q.Has("email"))
}

func TestSearch_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing esearchresult", `{"header":{}}`},
		{"missing idlist", `{"esearchresult":{"count":"0"}}`},
		{"upstream error", `{"esearchresult":{"ERROR":"Invalid query"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}, types.EutilsConfig{})

			_, err := c.Search(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestSearch_TruncationWarning(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"5","idlist":["1","2"]}}`))
	}))
	defer ts.Close()

	var logs bytes.Buffer
	hc := httputil.NewClient(ts.Client(), httputil.DefaultRetryPolicy(), 0, zerolog.Nop())
	c := New(types.EutilsConfig{BaseURL: ts.URL, RetMax: 2}, hc, zerolog.New(&logs), nil)

	ids, err := c.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, logs.String(), "truncated")
	assert.Contains(t, logs.String(), `"count":5`)
}

func TestFetchBatch(t *testing.T) {
	var got *http.Request
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(`<PubmedArticleSet></PubmedArticleSet>`))
	}, types.EutilsConfig{})

	body, err := c.FetchBatch(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, `<PubmedArticleSet></PubmedArticleSet>`, string(body))

	assert.Equal(t, "/efetch.fcgi", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "pubmed", q.Get("db"))
	assert.Equal(t, "1,2,3", q.Get("id"))
	assert.Equal(t, "xml", q.Get("retmode"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("efetch", "200")))
}

func TestFetchBatch_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`<PubmedArticleSet/>`))
	}, types.EutilsConfig{})

	body, err := c.FetchBatch(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, `<PubmedArticleSet/>`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchBatch_RetriesExhausted(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, types.EutilsConfig{})

	_, err := c.FetchBatch(context.Background(), []string{"1"})
	var retryErr *httputil.RetryError
	require.True(t, errors.As(err, &retryErr), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, retryErr.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("efetch", "error")))
}

func TestFetchBatch_NonRetryableStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"API key invalid"}`))
	}, types.EutilsConfig{})

	_, err := c.FetchBatch(context.Background(), []string{"1"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, "efetch", statusErr.Endpoint)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "API key invalid")
}

func TestNew_Defaults(t *testing.T) {
	c := New(types.EutilsConfig{BaseURL: "http://x/"}, nil, zerolog.Nop(), nil)
	assert.Equal(t, "http://x", c.cfg.BaseURL)
	assert.Equal(t, DefaultRetMax, c.cfg.RetMax)

	c = New(types.EutilsConfig{}, nil, zerolog.Nop(), nil)
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
}
