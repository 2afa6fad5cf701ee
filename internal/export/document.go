// Package export renders country two-pagers (DOCX, PDF) and table downloads
// (CSV, XLSX).
package export

import (
	"strings"

	"github.com/sells-group/htm-dashboard/internal/profile"
)

// Field is one labelled value in a document section.
type Field struct {
	Key   string
	Value string
}

// ProfileDocument is the content of a country two-pager. Page one carries
// the procurement snapshot and QA; page two the bottlenecks and
// recommendations.
type ProfileDocument struct {
	Country         string
	Procurement     []Field
	PFM             []Field
	QA              []Field
	Bottlenecks     []string
	Recommendations []string
}

// Title is the document heading.
func (d *ProfileDocument) Title() string {
	return d.Country + " - Procurement & PFM Profile"
}

// NewProfileDocument builds a document from a country profile. Bottlenecks
// come from the bottlenecks narrative, recommendations from the innovations
// narrative; either is split into items on semicolons and line breaks.
func NewProfileDocument(p *profile.Profile) *ProfileDocument {
	return &ProfileDocument{
		Country:         p.Country,
		Procurement:     fields(p.Procurement),
		PFM:             fields(p.PFM),
		QA:              fields(p.QA),
		Bottlenecks:     splitItems(p.Texts[profile.TextBottlenecks]),
		Recommendations: splitItems(p.Texts[profile.TextInnovations]),
	}
}

func fields(ind []profile.Indicator) []Field {
	out := make([]Field, 0, len(ind))
	for _, i := range ind {
		out = append(out, Field{Key: i.Indicator, Value: i.Value})
	}
	return out
}

func splitItems(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '\n' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
