// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps harvested records and sweep reports in SQLite so
// past runs can be listed and compared without re-reading CSV files.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmed-harvester/internal/query"
	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// Store wraps the run database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			term TEXT NOT NULL,
			position INTEGER NOT NULL,
			free_text TEXT NOT NULL,
			start_year INTEGER,
			end_year INTEGER,
			pmid TEXT,
			title TEXT,
			abstract TEXT,
			publication_year TEXT,
			harvested_at TEXT NOT NULL,
			PRIMARY KEY (term, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_pmid ON records(pmid)`,
		`CREATE TABLE IF NOT EXISTS publication_types (
			term TEXT NOT NULL,
			position INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			type TEXT NOT NULL,
			PRIMARY KEY (term, position, idx),
			FOREIGN KEY (term, position) REFERENCES records(term, position) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS sweeps (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS window_results (
			run_id TEXT NOT NULL REFERENCES sweeps(run_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			query TEXT NOT NULL,
			start_year INTEGER NOT NULL,
			end_year INTEGER NOT NULL,
			status TEXT NOT NULL,
			records INTEGER NOT NULL,
			output TEXT,
			error TEXT,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRecords replaces the stored records of q's search term with
// records, keeping their order.
func (s *Store) SaveRecords(ctx context.Context, q query.Query, records []types.Record) error {
	term := q.Term()
	var startYear, endYear sql.NullInt64
	if q.Years != nil {
		startYear = sql.NullInt64{Int64: int64(q.Years.Start), Valid: true}
		endYear = sql.NullInt64{Int64: int64(q.Years.End), Valid: true}
	}
	harvestedAt := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE term = ?`, term); err != nil {
		return fmt.Errorf("deleting old records: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (term, position, free_text, start_year, end_year, pmid, title, abstract, publication_year, harvested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer recStmt.Close()

	typeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO publication_types (term, position, idx, type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing type insert: %w", err)
	}
	defer typeStmt.Close()

	for i, r := range records {
		_, err := recStmt.ExecContext(ctx,
			term, i, q.FreeText, startYear, endYear,
			nullString(r.ID), nullString(r.Title), nullString(r.Abstract), nullString(r.PublicationYear),
			harvestedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
		for j, pt := range r.PublicationTypes {
			if _, err := typeStmt.ExecContext(ctx, term, i, j, pt); err != nil {
				return fmt.Errorf("inserting publication type of record %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// Records returns the stored records of a search term in harvest order.
func (s *Store) Records(ctx context.Context, term string) ([]types.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, pmid, title, abstract, publication_year
		 FROM records WHERE term = ? ORDER BY position`, term)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var (
		records   []types.Record
		positions = map[int]int{}
	)
	for rows.Next() {
		var (
			pos                  int
			id, title, abs, year sql.NullString
		)
		if err := rows.Scan(&pos, &id, &title, &abs, &year); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		positions[pos] = len(records)
		records = append(records, types.Record{
			ID:              id.String,
			Title:           title.String,
			Abstract:        abs.String,
			PublicationYear: year.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := s.db.QueryContext(ctx,
		`SELECT position, type FROM publication_types WHERE term = ? ORDER BY position, idx`, term)
	if err != nil {
		return nil, fmt.Errorf("querying publication types: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var (
			pos int
			pt  string
		)
		if err := typeRows.Scan(&pos, &pt); err != nil {
			return nil, fmt.Errorf("scanning publication type: %w", err)
		}
		if i, ok := positions[pos]; ok {
			records[i].PublicationTypes = append(records[i].PublicationTypes, pt)
		}
	}
	return records, typeRows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
