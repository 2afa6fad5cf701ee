// Package profile derives the per-country views over the profile tables:
// indicator lists, narrative texts, QA readiness and co-financing execution.
package profile

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// CountryColumn keys every profile table.
const CountryColumn = "Country"

// Narrative columns of the ctexts table.
const (
	TextPolicyFramework  = "policy_framework"
	TextProcurementCycle = "procurement_cycle"
	TextBottlenecks      = "bottlenecks"
	TextQualityAssurance = "quality_assurance"
	TextInnovations      = "innovations"
)

var narrativeColumns = []string{
	TextPolicyFramework,
	TextProcurementCycle,
	TextBottlenecks,
	TextQualityAssurance,
	TextInnovations,
}

// ErrCountryNotFound is returned when no profile table mentions the country.
var ErrCountryNotFound = eris.New("profile: country not found")

// Indicator is one column of a country's row.
type Indicator struct {
	Indicator string `json:"indicator"`
	Value     string `json:"value"`
}

// Profile is everything the country page shows.
type Profile struct {
	Country     string            `json:"country"`
	Procurement []Indicator       `json:"procurement"`
	PFM         []Indicator       `json:"pfm"`
	QA          []Indicator       `json:"qa"`
	Texts       map[string]string `json:"texts"`
	QAScore     *int              `json:"qa_score,omitempty"`
}

// Countries lists the countries of the procurement profile table in file
// order.
func Countries(ds *model.Dataset) []string {
	return ds.Profile(model.TableProcurement).Column(CountryColumn)
}

// CountryProfile collects the procurement, PFM and QA rows for country and
// its narrative texts. Tables without a row for the country contribute
// nothing; if none has one, ErrCountryNotFound is returned.
func CountryProfile(ds *model.Dataset, country string) (*Profile, error) {
	p := &Profile{Country: strings.TrimSpace(country), Texts: map[string]string{}}
	found := false

	if ind, ok := Indicators(ds.Profile(model.TableProcurement), country); ok {
		p.Procurement, found = ind, true
	}
	if ind, ok := Indicators(ds.Profile(model.TablePFM), country); ok {
		p.PFM, found = ind, true
	}
	qa := ds.Profile(model.TableQA)
	if ind, ok := Indicators(qa, country); ok {
		p.QA, found = ind, true
		score := QAScore(rowMap(qa, qa.FindRow(CountryColumn, country)))
		p.QAScore = &score
	}

	texts := ds.Profile(model.TableTexts)
	if i := texts.FindRow(CountryColumn, country); i >= 0 {
		found = true
		for _, col := range narrativeColumns {
			if texts.HasColumn(col) {
				p.Texts[col] = texts.Value(i, col)
			}
		}
	}

	if !found {
		return nil, eris.Wrapf(ErrCountryNotFound, "profile: %q", country)
	}
	return p, nil
}

// Indicators returns the row for country as ordered indicator/value pairs,
// without the Country column.
func Indicators(t *model.Table, country string) ([]Indicator, bool) {
	i := t.FindRow(CountryColumn, country)
	if i < 0 {
		return nil, false
	}
	out := make([]Indicator, 0, len(t.Columns))
	for j, col := range t.Columns {
		if col == CountryColumn {
			continue
		}
		v := ""
		if j < len(t.Rows[i]) {
			v = t.Rows[i][j]
		}
		out = append(out, Indicator{Indicator: col, Value: v})
	}
	return out, true
}

func rowMap(t *model.Table, i int) map[string]string {
	m := make(map[string]string, len(t.Columns))
	if i < 0 {
		return m
	}
	for j, col := range t.Columns {
		if j < len(t.Rows[i]) {
			m[col] = t.Rows[i][j]
		}
	}
	return m
}
