// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubmed-harvester
// pipeline: parsed article records, year windows, run configuration and
// sweep reports.
package types

import "fmt"

// Record is one parsed PubMed article. String fields are empty when the
// source record does not carry the value; the CSV writer renders those as
// empty cells.
type Record struct {
	// ID is the PubMed identifier (PMID). It is non-empty whenever the
	// article node in the source batch carries a PMID.
	ID string `json:"pubmed_id" yaml:"pubmed_id"`

	// Title is the article title with inline markup flattened to text.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Abstract is every abstract section in document order, entity-decoded,
	// labeled sections prefixed "LABEL: ", joined by single spaces.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PublicationYear is the journal issue year, or the leading token of
	// the MedlineDate when no Year element exists.
	PublicationYear string `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`

	// PublicationTypes lists the PublicationType labels in source order.
	// They are kept for the run store and tests; the CSV omits them.
	PublicationTypes []string `json:"publication_types,omitempty" yaml:"publication_types,omitempty"`
}

// Window is an inclusive range of publication years.
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// String renders the window as "start-end".
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}
