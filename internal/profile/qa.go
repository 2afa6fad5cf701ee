package profile

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// QA table columns that feed the readiness score.
const (
	ColQAPolicy    = "QA Policy Exists"
	ColPreShipment = "Pre-shipment Testing"
	ColPostMarket  = "Post-market Surveillance"
)

// MaxQAScore is the best attainable readiness score.
const MaxQAScore = 5

// QAScore is the illustrative readiness composite: 1, plus 1 when a QA policy
// exists, plus 1 for full or partial pre-shipment testing, plus 2 for moderate
// or strong post-market surveillance. Matching is case-insensitive.
func QAScore(row map[string]string) int {
	s := 1
	if norm(row[ColQAPolicy]) == "yes" {
		s++
	}
	switch norm(row[ColPreShipment]) {
	case "yes", "partial":
		s++
	}
	switch norm(row[ColPostMarket]) {
	case "moderate", "strong":
		s += 2
	}
	return s
}

// CountryScore pairs a country with its QA score.
type CountryScore struct {
	Country string `json:"country"`
	Score   int    `json:"score"`
}

// QAScores scores every row of the QA table, highest first. Ties keep file
// order.
func QAScores(qa *model.Table) []CountryScore {
	out := make([]CountryScore, 0, len(qa.Rows))
	for i := range qa.Rows {
		out = append(out, CountryScore{
			Country: qa.Value(i, CountryColumn),
			Score:   QAScore(rowMap(qa, i)),
		})
	}
	slices.SortStableFunc(out, func(a, b CountryScore) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
