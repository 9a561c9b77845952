// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

func TestWrite(t *testing.T) {
	records := []types.Record{
		{ID: "1", Title: "T1", Abstract: "A1", PublicationYear: "2020"},
		{ID: "2", Title: "T2"},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	want := "pubmed_id,title,abstract,publication_year\n" +
		"1,T1,A1,2020\n" +
		"2,T2,,\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_EmptyRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.Equal(t, "pubmed_id,title,abstract,publication_year\n", buf.String())
}

func TestWrite_RoundTripsSpecialCharacters(t *testing.T) {
	records := []types.Record{{
		ID:              "7",
		Title:           `Effects of "HIIT", a review`,
		Abstract:        "Line one\nline two, with comma. Müller & Søren: β-alanine <5%",
		PublicationYear: "2019",
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"7", records[0].Title, records[0].Abstract, "2019"}, rows[1])
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", Filename("fitness training", &types.Window{Start: 2015, End: 2016}))
	records := []types.Record{{ID: "1", Title: "T"}}

	require.NoError(t, WriteFile(path, records))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// A rerun with the same input produces a byte-identical file.
	require.NoError(t, WriteFile(path, records))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "filtered_pubmed_fitness_training_2015-2016.csv", entries[0].Name())
}

func TestWriteFile_OverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, []types.Record{{ID: "1"}, {ID: "2"}}))
	require.NoError(t, WriteFile(path, []types.Record{{ID: "3"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pubmed_id,title,abstract,publication_year\n3,,,\n", string(data))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		years *types.Window
		want  string
	}{
		{"no window", "fitness training", nil, "filtered_pubmed_fitness_training.csv"},
		{"window", "fitness training", &types.Window{Start: 2015, End: 2016}, "filtered_pubmed_fitness_training_2015-2016.csv"},
		{"case and punctuation", "COVID-19: Vaccine/Trials!", nil, "filtered_pubmed_covid-19_vaccine_trials_1231fda4.csv"},
		{"accents", "Ästhetik Café", nil, "filtered_pubmed_asthetik_cafe_88797c62.csv"},
		{"nothing usable", "!!!", nil, "filtered_pubmed_query_e84c538e.csv"},
		{"greek letters kept", "α-synuclein", nil, "filtered_pubmed_α-synuclein.csv"},
		{"cjk kept", "运动训练", &types.Window{Start: 2015, End: 2016}, "filtered_pubmed_运动训练_2015-2016.csv"},
		{"operator case preserved", "heart OR lung", nil, "filtered_pubmed_heart_or_lung_e339e6f8.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.text, tt.years))
		})
	}
}

func TestFilename_Deterministic(t *testing.T) {
	w := &types.Window{Start: 2021, End: 2022}
	assert.Equal(t, Filename("fitness training", w), Filename("fitness training", w))
	assert.NotEqual(t, Filename("fitness training", w), Filename("fitness training", &types.Window{Start: 2021, End: 2021}))
}

func TestFilename_DistinctQueriesDoNotCollide(t *testing.T) {
	w := &types.Window{Start: 2015, End: 2016}
	pairs := [][2]string{
		{"α-synuclein", "β-synuclein"},
		{"运动训练", "心脏康复"},
		{"heart OR lung", "heart or lung"},
		{"fitness  training", "fitness training"},
		{"a_b", "a b"},
		{"!!!", "???"},
	}
	for _, p := range pairs {
		assert.NotEqual(t, Filename(p[0], w), Filename(p[1], w), "%q vs %q", p[0], p[1])
	}
}
