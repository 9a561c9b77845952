// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import (
	"encoding/xml"
	"strings"
)

// ArticleSet is the root of an efetch.fcgi response (retmode=xml).
type ArticleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []Article `xml:"PubmedArticle"`
}

// Article is one PubmedArticle node. Only the elements the harvester reads
// are modelled; pointer fields are nil when the element is absent.
type Article struct {
	Citation Citation `xml:"MedlineCitation"`
}

// Citation is the MedlineCitation element.
type Citation struct {
	PMID    *Text        `xml:"PMID"`
	Article *ArticleBody `xml:"Article"`
}

// ArticleBody is the MedlineCitation/Article element.
type ArticleBody struct {
	Journal          Journal    `xml:"Journal"`
	Title            *MixedText `xml:"ArticleTitle"`
	Abstract         *Abstract  `xml:"Abstract"`
	PublicationTypes []Text     `xml:"PublicationTypeList>PublicationType"`
}

// Journal is the Article/Journal element.
type Journal struct {
	Issue JournalIssue `xml:"JournalIssue"`
}

// JournalIssue carries the publication date of the issue.
type JournalIssue struct {
	PubDate *PubDate `xml:"PubDate"`
}

// PubDate holds either a structured Year or a free-form MedlineDate such
// as "2019 Jan-Feb" or "1998 Dec-1999 Jan".
type PubDate struct {
	Year        *Text `xml:"Year"`
	MedlineDate *Text `xml:"MedlineDate"`
}

// Abstract holds labeled or unlabeled AbstractText sections. Text is the
// element's own character data, used only when there are no sections.
type Abstract struct {
	Text     string            `xml:",chardata"`
	Sections []AbstractSection `xml:"AbstractText"`
}

// Text is an element with plain character data.
type Text struct {
	Value string `xml:",chardata"`
}

// MixedText collects every character-data fragment below an element, in
// document order, so inline markup such as <i> or <sup> keeps its text.
type MixedText struct {
	Fragments []string
}

// UnmarshalXML implements xml.Unmarshaler.
func (m *MixedText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return m.collect(d)
}

func (m *MixedText) collect(d *xml.Decoder) error {
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return nil
			}
			depth--
		case xml.CharData:
			if len(t) > 0 {
				m.Fragments = append(m.Fragments, string(t))
			}
		}
	}
}

// Joined returns the fragments joined by sep.
func (m *MixedText) Joined(sep string) string {
	if m == nil {
		return ""
	}
	return strings.Join(m.Fragments, sep)
}

// AbstractSection is one AbstractText element with its optional Label.
type AbstractSection struct {
	Label string
	MixedText
}

// UnmarshalXML implements xml.Unmarshaler.
func (s *AbstractSection) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			s.Label = attr.Value
		}
	}
	return s.collect(d)
}
