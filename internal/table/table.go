// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package table writes harvested records as CSV.
package table

import (
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// Header is the fixed CSV column order.
var Header = []string{"pubmed_id", "title", "abstract", "publication_year"}

const filePrefix = "filtered_pubmed_"

// Write emits the header and one row per record, in order. Absent fields
// are written as empty cells.
func Write(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.ID, r.Title, r.Abstract, r.PublicationYear}); err != nil {
			return fmt.Errorf("writing record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to path through a temporary file in the same
// directory, renamed into place once complete. Parent directories are
// created as needed.
func WriteFile(path string, records []types.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := Write(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Filename returns the deterministic output name for a query and optional
// year window, e.g. filtered_pubmed_fitness_training_2015-2016.csv.
func Filename(freeText string, years *types.Window) string {
	name := filePrefix + Slug(freeText)
	if years != nil {
		name += "_" + years.String()
	}
	return name + ".csv"
}

// Slug folds text to a filesystem-safe token: accents stripped, case
// folded, and every run of characters other than letters, digits and '-'
// collapsed to one underscore. When the fold loses information (case,
// punctuation, spacing, marks) a short hash of the raw text is appended so
// distinct queries never share a name. Text with nothing usable yields
// "query" plus the hash.
func Slug(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = cases.Fold().String(folded)

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	slug := b.String()
	if slug != "" && strings.ReplaceAll(slug, "_", " ") == text {
		return slug
	}
	if slug == "" {
		slug = "query"
	}
	return slug + "_" + textHash(text)
}

func textHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h[:4])
}
