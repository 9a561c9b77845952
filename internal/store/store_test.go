// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-harvester/internal/query"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "harvest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSaveRecords_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q := query.New("fitness", []string{"Review"}, &types.Window{Start: 2015, End: 2016})

	records := []types.Record{
		{ID: "1", Title: "T1", Abstract: "A1", PublicationYear: "2015", PublicationTypes: []string{"Review", "Journal Article"}},
		{ID: "2", Title: "T2"},
		{Title: "no pmid"},
	}
	require.NoError(t, s.SaveRecords(ctx, q, records))

	got, err := s.Records(ctx, q.Term())
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestSaveRecords_RerunReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q := query.New("fitness", nil, &types.Window{Start: 2015, End: 2016})

	require.NoError(t, s.SaveRecords(ctx, q, []types.Record{
		{ID: "1", PublicationTypes: []string{"Review"}},
		{ID: "2"},
		{ID: "3"},
	}))
	require.NoError(t, s.SaveRecords(ctx, q, []types.Record{{ID: "9"}}))

	got, err := s.Records(ctx, q.Term())
	require.NoError(t, err)
	assert.Equal(t, []types.Record{{ID: "9"}}, got)

	var orphanTypes int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM publication_types`).Scan(&orphanTypes))
	assert.Zero(t, orphanTypes)
}

func TestSaveRecords_TermsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := query.New("fitness", nil, &types.Window{Start: 2015, End: 2016})
	b := query.New("fitness", nil, &types.Window{Start: 2017, End: 2018})

	require.NoError(t, s.SaveRecords(ctx, a, []types.Record{{ID: "1"}}))
	require.NoError(t, s.SaveRecords(ctx, b, []types.Record{{ID: "2"}, {ID: "1"}}))

	got, err := s.Records(ctx, a.Term())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.Records(ctx, b.Term())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecords_UnknownTerm(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Records(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func sampleReport(runID string, started time.Time) types.SweepReport {
	return types.SweepReport{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Results: []types.WindowResult{
			{Query: "a", Window: types.Window{Start: 2015, End: 2016}, Status: types.WindowSucceeded, Records: 10, Output: "a.csv", Duration: 2 * time.Second},
			{Query: "a", Window: types.Window{Start: 2017, End: 2018}, Status: types.WindowFailed, Error: "efetch: HTTP 400", Duration: 300 * time.Millisecond},
			{Query: "b", Window: types.Window{Start: 2015, End: 2016}, Status: types.WindowSucceeded, Records: 5, Output: "b.csv", Duration: time.Second},
		},
	}
}

func TestSaveReport_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleReport("run-1", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))

	require.NoError(t, s.SaveReport(ctx, want))

	got, err := s.Report(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, want.Results, got.Results)
}

func TestSaveReport_ReplacesSameRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	report := sampleReport("run-1", time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, s.SaveReport(ctx, report))

	report.Results = report.Results[:1]
	require.NoError(t, s.SaveReport(ctx, report))

	got, err := s.Report(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Results, 1)
}

func TestReport_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Report(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveReport(ctx, sampleReport("older", base)))
	require.NoError(t, s.SaveReport(ctx, sampleReport("newer", base.Add(24*time.Hour))))
	require.NoError(t, s.SaveReport(ctx, types.SweepReport{RunID: "empty", StartedAt: base.Add(-time.Hour), FinishedAt: base}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "newer", runs[0].RunID)
	assert.Equal(t, "older", runs[1].RunID)
	assert.Equal(t, 3, runs[0].Windows)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 15, runs[0].Records)
	assert.Equal(t, "empty", runs[2].RunID)
	assert.Zero(t, runs[2].Windows)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "newer", limited[0].RunID)
}
