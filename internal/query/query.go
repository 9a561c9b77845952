// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query composes PubMed search terms from free text, publication
// type filters and a publication-year window.
package query

import (
	"fmt"
	"strings"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// Query holds the search parameters of one pipeline run.
type Query struct {
	FreeText         string
	PublicationTypes []string

	// Years bounds the publication date when non-nil.
	Years *types.Window
}

// New returns a Query with its own copy of the type list so later changes
// to the caller's slice do not leak into the term.
func New(freeText string, publicationTypes []string, years *types.Window) Query {
	q := Query{FreeText: freeText}
	if len(publicationTypes) > 0 {
		q.PublicationTypes = append([]string(nil), publicationTypes...)
	}
	if years != nil {
		w := *years
		q.Years = &w
	}
	return q
}

// Term builds the esearch term:
//
//	free text [AND (T1[Publication Type] OR T2[Publication Type])] [AND (start:end[dp])]
//
// The year range is not validated; start > end yields a query that matches
// nothing.
func (q Query) Term() string {
	term := q.FreeText

	if len(q.PublicationTypes) > 0 {
		clauses := make([]string, len(q.PublicationTypes))
		for i, t := range q.PublicationTypes {
			clauses[i] = t + "[Publication Type]"
		}
		term += " AND (" + strings.Join(clauses, " OR ") + ")"
	}

	if q.Years != nil {
		term += fmt.Sprintf(" AND (%d:%d[dp])", q.Years.Start, q.Years.End)
	}

	return term
}

// String returns the search term.
func (q Query) String() string { return q.Term() }
