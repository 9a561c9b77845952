// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying HTTP client shared by the
// E-utilities calls.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

const (
	defaultMaxRetries  = 5
	defaultBackoffBase = 1 * time.Second
)

// DefaultRetryStatuses are the transient statuses NCBI returns under load.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryPolicy controls which failures are retried and how long to wait.
// Transport errors are always retryable; responses are retried when their
// status is in Statuses.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	Statuses    map[int]bool
}

// DefaultRetryPolicy retries 429/500/502/503/504 five times with a backoff
// of 1s, 2s, 4s, 8s, 16s.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(defaultMaxRetries, defaultBackoffBase, DefaultRetryStatuses)
}

// NewRetryPolicy builds a policy from explicit values. A nil statuses slice
// selects DefaultRetryStatuses.
func NewRetryPolicy(maxRetries int, backoffBase time.Duration, statuses []int) RetryPolicy {
	if statuses == nil {
		statuses = DefaultRetryStatuses
	}
	set := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return RetryPolicy{
		MaxRetries:  maxRetries,
		BackoffBase: backoffBase,
		Statuses:    set,
	}
}

// PolicyFromConfig converts the configuration form into a RetryPolicy.
func PolicyFromConfig(cfg types.RetryConfig) RetryPolicy {
	return NewRetryPolicy(cfg.MaxRetries, cfg.BackoffBase, cfg.Statuses)
}

// Retryable reports whether a response with the given status is retried.
func (p RetryPolicy) Retryable(status int) bool {
	return p.Statuses[status]
}

// Backoff returns the wait before retry number attempt+1: BackoffBase
// doubled attempt times.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BackoffBase << uint(attempt)
}

// RetryError is returned when every attempt failed with a retryable
// status or a transport error.
type RetryError struct {
	Attempts   int
	StatusCode int   // last retryable status, 0 for a transport error
	Err        error // last transport error, nil for a status failure
}

func (e *RetryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("giving up after %d attempts: HTTP %d", e.Attempts, e.StatusCode)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Client executes requests with a RetryPolicy and an optional fixed-rate
// limiter. It is meant for sequential use by one pipeline at a time; the
// wrapped *http.Client keeps its connection pool across runs.
type Client struct {
	HTTP    *http.Client
	Policy  RetryPolicy
	Limiter *rate.Limiter
	Logger  zerolog.Logger

	// UserAgent is set on requests that carry no User-Agent header.
	UserAgent string

	// OnRetry, when set, is called before each backoff wait.
	OnRetry func(attempt int, status int, err error)
}

// NewClient wires an http.Client with a retry policy. ratePerSecond <= 0
// disables rate limiting.
func NewClient(httpClient *http.Client, policy RetryPolicy, ratePerSecond float64, logger zerolog.Logger) *Client {
	c := &Client{
		HTTP:   httpClient,
		Policy: policy,
		Logger: logger,
	}
	if ratePerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return c
}

// Do executes req, retrying transport errors and retryable statuses with
// exponential backoff. A non-retryable response is returned as-is, whatever
// its status. Once retries are exhausted Do returns a *RetryError. If ctx is
// cancelled during a wait Do returns ctx.Err().
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var (
			status  int
			lastErr error
		)
		attemptReq := req.Clone(ctx)
		if c.UserAgent != "" && attemptReq.Header.Get("User-Agent") == "" {
			attemptReq.Header.Set("User-Agent", c.UserAgent)
		}
		resp, err := c.HTTP.Do(attemptReq)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		case !c.Policy.Retryable(resp.StatusCode):
			return resp, nil
		default:
			status = resp.StatusCode
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt >= c.Policy.MaxRetries {
			return nil, &RetryError{Attempts: attempt + 1, StatusCode: status, Err: lastErr}
		}

		backoff := c.Policy.Backoff(attempt)
		c.Logger.Warn().
			Str("path", req.URL.Path).
			Int("status", status).
			AnErr("error", lastErr).
			Dur("backoff", backoff).
			Msgf("transient failure, retrying (attempt %d/%d)", attempt+1, c.Policy.MaxRetries)
		if c.OnRetry != nil {
			c.OnRetry(attempt+1, status, lastErr)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
