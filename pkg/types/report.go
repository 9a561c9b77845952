// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// WindowStatus is the outcome of one (query, window) pipeline run.
type WindowStatus string

const (
	WindowSucceeded WindowStatus = "succeeded"
	WindowFailed    WindowStatus = "failed"
)

// WindowResult records how one (query, window) run of a sweep ended.
type WindowResult struct {
	Query   string       `json:"query" yaml:"query"`
	Window  Window       `json:"window" yaml:"window"`
	Status  WindowStatus `json:"status" yaml:"status"`
	Records int          `json:"records" yaml:"records"`

	// Output is the CSV path written on success.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	// Error holds the failure reason when Status is WindowFailed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// SweepReport aggregates every window result of one sweep.
type SweepReport struct {
	RunID      string         `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
	Results    []WindowResult `json:"results" yaml:"results"`
}

// Succeeded returns the number of windows that completed.
func (r SweepReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == WindowSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the number of windows that aborted.
func (r SweepReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Records returns the total number of records written across the sweep.
func (r SweepReport) Records() int {
	n := 0
	for _, res := range r.Results {
		n += res.Records
	}
	return n
}

// HasFailures reports whether any window failed.
func (r SweepReport) HasFailures() bool {
	return r.Failed() > 0
}
