// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sweep runs the harvest pipeline over every (query, year window)
// pair of a plan. A failing window is recorded and the sweep moves on.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pubmed-harvester/internal/observability"
	"github.com/pdiddy/pubmed-harvester/internal/pipeline"
	"github.com/pdiddy/pubmed-harvester/internal/query"
	"github.com/pdiddy/pubmed-harvester/internal/table"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// Plan is the parameter grid of a sweep.
type Plan struct {
	Queries          []string
	PublicationTypes []string
	StartYear        int
	EndYear          int
	WindowYears      int
}

// PlanFromConfig converts the configuration form into a Plan.
func PlanFromConfig(cfg types.SweepConfig) Plan {
	return Plan{
		Queries:          cfg.Queries,
		PublicationTypes: cfg.PublicationTypes,
		StartYear:        cfg.StartYear,
		EndYear:          cfg.EndYear,
		WindowYears:      cfg.WindowYears,
	}
}

// Validate checks that the plan yields at least one window and that no two
// queries write to the same output file.
func (p Plan) Validate() error {
	if len(p.Queries) == 0 {
		return errors.New("sweep needs at least one query")
	}
	if p.WindowYears <= 0 {
		return fmt.Errorf("window width must be positive, got %d", p.WindowYears)
	}
	if p.StartYear > p.EndYear {
		return fmt.Errorf("start year %d is after end year %d", p.StartYear, p.EndYear)
	}

	seen := make(map[string]string, len(p.Queries))
	for _, q := range p.Queries {
		name := table.Filename(q, nil)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("queries %q and %q both write %s", prev, q, name)
		}
		seen[name] = q
	}
	return nil
}

// Windows splits [start, end] into consecutive inclusive windows of width
// years; the last window is clipped to end. Nothing is returned when
// start > end or width <= 0.
func Windows(start, end, width int) []types.Window {
	if width <= 0 || start > end {
		return nil
	}
	var out []types.Window
	for s := start; s <= end; s += width {
		out = append(out, types.Window{Start: s, End: min(s+width-1, end)})
	}
	return out
}

// Runner runs one (query, window) harvest. *pipeline.Runner implements it.
type Runner interface {
	Run(ctx context.Context, q query.Query) (*pipeline.Result, error)
}

// ReportSaver persists a finished sweep report. The SQLite store
// implements it.
type ReportSaver interface {
	SaveReport(ctx context.Context, report types.SweepReport) error
}

// Driver executes sweep plans.
type Driver struct {
	Runner Runner
	Saver  ReportSaver

	// Out receives one line per window. Nil discards them.
	Out     io.Writer
	Logger  zerolog.Logger
	Metrics *observability.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes every (query, window) pair in query-major order. Window
// failures are captured in the report and never stop the sweep. Run
// returns an error only for an invalid plan, a cancelled context (the
// partial report is still returned) or a failure to save the report.
func (d *Driver) Run(ctx context.Context, plan Plan) (types.SweepReport, error) {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	report := types.SweepReport{RunID: uuid.NewString(), StartedAt: now()}
	if err := plan.Validate(); err != nil {
		return report, err
	}

	windows := Windows(plan.StartYear, plan.EndYear, plan.WindowYears)
	total := len(plan.Queries) * len(windows)
	d.Logger.Info().
		Str("run_id", report.RunID).
		Int("queries", len(plan.Queries)).
		Int("windows", len(windows)).
		Msg("sweep started")

	var runErr error
	n := 0
loop:
	for _, text := range plan.Queries {
		for _, w := range windows {
			if err := ctx.Err(); err != nil {
				runErr = err
				break loop
			}
			n++
			fmt.Fprintf(out, "[%d/%d] %s %s\n", n, total, text, w)

			res := d.runWindow(ctx, report.RunID, text, plan.PublicationTypes, w, now)
			report.Results = append(report.Results, res)
			d.Metrics.RecordWindow(string(res.Status))
		}
	}
	report.FinishedAt = now()

	d.Logger.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Int("records", report.Records()).
		Msg("sweep finished")

	if d.Saver != nil {
		if err := d.Saver.SaveReport(context.WithoutCancel(ctx), report); err != nil {
			return report, errors.Join(runErr, fmt.Errorf("saving sweep report: %w", err))
		}
	}
	return report, runErr
}

func (d *Driver) runWindow(ctx context.Context, runID, text string, pubTypes []string, w types.Window, now func() time.Time) types.WindowResult {
	log := observability.WithWindow(d.Logger, runID, text, w)
	start := now()
	res := types.WindowResult{Query: text, Window: w}

	result, err := d.Runner.Run(ctx, query.New(text, pubTypes, &w))
	res.Duration = now().Sub(start)
	if err != nil {
		res.Status = types.WindowFailed
		res.Error = err.Error()
		log.Error().Err(err).Msg("window failed")
		return res
	}

	res.Status = types.WindowSucceeded
	res.Records = len(result.Records)
	res.Output = result.Output
	log.Info().Int("records", res.Records).Msg("window complete")
	return res
}
