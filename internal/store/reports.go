// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// ErrNotFound is returned when a sweep run ID is unknown.
var ErrNotFound = errors.New("sweep run not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveReport stores a sweep report and its window results. Saving the
// same run ID again replaces the earlier copy.
func (s *Store) SaveReport(ctx context.Context, report types.SweepReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sweeps WHERE run_id = ?`, report.RunID); err != nil {
		return fmt.Errorf("deleting old report: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sweeps (run_id, started_at, finished_at) VALUES (?, ?, ?)`,
		report.RunID,
		report.StartedAt.UTC().Format(timeLayout),
		report.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting sweep: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO window_results (run_id, seq, query, start_year, end_year, status, records, output, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		_, err := stmt.ExecContext(ctx,
			report.RunID, i, r.Query, r.Window.Start, r.Window.End,
			string(r.Status), r.Records, nullString(r.Output), nullString(r.Error),
			r.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting window result %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Report loads one sweep report by run ID.
func (s *Store) Report(ctx context.Context, runID string) (*types.SweepReport, error) {
	var started, finished string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at FROM sweeps WHERE run_id = ?`, runID,
	).Scan(&started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying sweep: %w", err)
	}

	report := &types.SweepReport{RunID: runID}
	if report.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if report.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT query, start_year, end_year, status, records, output, error, duration_ms
		 FROM window_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying window results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r               types.WindowResult
			status          string
			output, errText sql.NullString
			durationMs      int64
		)
		if err := rows.Scan(&r.Query, &r.Window.Start, &r.Window.End, &status,
			&r.Records, &output, &errText, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning window result: %w", err)
		}
		r.Status = types.WindowStatus(status)
		r.Output = output.String
		r.Error = errText.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		report.Results = append(report.Results, r)
	}
	return report, rows.Err()
}

// RunSummary is one row of the sweep history.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Windows    int
	Failed     int
	Records    int
}

// ListRuns returns the most recent sweeps first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT s.run_id, s.started_at, s.finished_at,
			COUNT(w.seq),
			COALESCE(SUM(CASE WHEN w.status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(w.records), 0)
		FROM sweeps s
		LEFT JOIN window_results w ON w.run_id = s.run_id
		GROUP BY s.run_id
		ORDER BY s.started_at DESC`
	args := []any{string(types.WindowFailed)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sweeps: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs                RunSummary
			started, finished string
		)
		if err := rows.Scan(&rs.RunID, &started, &finished, &rs.Windows, &rs.Failed, &rs.Records); err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		rs.StartedAt, _ = time.Parse(timeLayout, started)
		rs.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, rs)
	}
	return out, rows.Err()
}
