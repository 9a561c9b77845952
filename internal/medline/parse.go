// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package medline parses PubMed efetch XML into flat records. Each field
// rule is a pure function over the typed node tree so fallbacks can be
// tested without a payload.
package medline

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

// ErrMalformedPayload wraps every XML decoding failure of a batch.
var ErrMalformedPayload = errors.New("malformed efetch payload")

// ParseBatch decodes one efetch response and returns a Record per
// PubmedArticle in document order. Missing optional fields never fail;
// unparsable XML does.
func ParseBatch(payload []byte) ([]types.Record, error) {
	d := xml.NewDecoder(bytes.NewReader(payload))
	d.CharsetReader = charset.NewReaderLabel
	d.Entity = xml.HTMLEntity

	var set ArticleSet
	if err := d.Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	records := make([]types.Record, len(set.Articles))
	for i, a := range set.Articles {
		records[i] = ToRecord(a)
	}
	return records, nil
}

// ToRecord applies every field rule to one article.
func ToRecord(a Article) types.Record {
	r := types.Record{
		PublicationTypes: PublicationTypes(a),
	}
	r.ID, _ = ID(a)
	r.Title, _ = Title(a)
	if body := a.Citation.Article; body != nil {
		r.Abstract, _ = AbstractText(body.Abstract)
		r.PublicationYear, _ = PublicationYear(body.Journal.Issue.PubDate)
	}
	return r
}

// ID returns the trimmed PMID.
func ID(a Article) (string, bool) {
	if a.Citation.PMID == nil {
		return "", false
	}
	return nonEmpty(a.Citation.PMID.Value)
}

// Title returns the ArticleTitle text, inline markup flattened.
func Title(a Article) (string, bool) {
	body := a.Citation.Article
	if body == nil || body.Title == nil {
		return "", false
	}
	return nonEmpty(body.Title.Joined(""))
}

// AbstractText assembles the abstract. With AbstractText sections, each
// section's fragments are joined by spaces, trimmed, entity-decoded and
// prefixed "LABEL: " when labeled; sections are joined by single spaces.
// Without sections the element's own text is used, entity-decoded.
func AbstractText(abs *Abstract) (string, bool) {
	if abs == nil {
		return "", false
	}

	if len(abs.Sections) == 0 {
		return nonEmpty(html.UnescapeString(strings.TrimSpace(abs.Text)))
	}

	parts := make([]string, 0, len(abs.Sections))
	for _, s := range abs.Sections {
		text := html.UnescapeString(strings.TrimSpace(s.Joined(" ")))
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return nonEmpty(strings.Join(parts, " "))
}

// PublicationYear prefers PubDate/Year and falls back to the first
// whitespace-delimited token of PubDate/MedlineDate.
func PublicationYear(d *PubDate) (string, bool) {
	if d == nil {
		return "", false
	}
	if d.Year != nil {
		if y, ok := nonEmpty(d.Year.Value); ok {
			return y, true
		}
	}
	if d.MedlineDate != nil {
		if fields := strings.Fields(d.MedlineDate.Value); len(fields) > 0 {
			return fields[0], true
		}
	}
	return "", false
}

// PublicationTypes returns the PublicationType labels in source order.
func PublicationTypes(a Article) []string {
	body := a.Citation.Article
	if body == nil || len(body.PublicationTypes) == 0 {
		return nil
	}
	out := make([]string, 0, len(body.PublicationTypes))
	for _, t := range body.PublicationTypes {
		if v, ok := nonEmpty(t.Value); ok {
			out = append(out, v)
		}
	}
	return out
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
