package profile

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// ColExecutionRate is the co-financing execution column.
const ColExecutionRate = "Execution Rate (%)"

// ValueCount is one category and how many rows carry it.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts the distinct non-empty values of column, most frequent
// first and alphabetically among equals. A missing column yields nil.
func ValueCounts(t *model.Table, column string) []ValueCount {
	if !t.HasColumn(column) {
		return nil
	}
	counts := map[string]int{}
	for _, v := range t.Column(column) {
		if v = strings.TrimSpace(v); v != "" {
			counts[v]++
		}
	}
	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}

// ExecutionRate is a country's co-financing execution percentage.
type ExecutionRate struct {
	Country string  `json:"country"`
	Rate    float64 `json:"execution_rate_pct"`
}

// ExecutionRates parses the execution column of the co-financing table,
// dropping values that are not numbers, and sorts highest first. The bool is
// false when the table has no such column.
func ExecutionRates(cof *model.Table) ([]ExecutionRate, bool) {
	if !cof.HasColumn(ColExecutionRate) {
		return nil, false
	}
	var out []ExecutionRate
	for i := range cof.Rows {
		raw := strings.TrimSuffix(strings.TrimSpace(cof.Value(i, ColExecutionRate)), "%")
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		out = append(out, ExecutionRate{Country: cof.Value(i, CountryColumn), Rate: rate})
	}
	slices.SortStableFunc(out, func(a, b ExecutionRate) int {
		return cmp.Compare(b.Rate, a.Rate)
	})
	return out, true
}

// SelectColumns projects t onto cols in the order given. Unknown columns are
// an error; an empty selection returns t unchanged.
func SelectColumns(t *model.Table, cols []string) (*model.Table, error) {
	if len(cols) == 0 {
		return t, nil
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		if idx[i] = t.ColumnIndex(c); idx[i] < 0 {
			return nil, eris.Errorf("profile: table %s has no column %q", t.Name, c)
		}
	}
	out := &model.Table{Name: t.Name, Columns: slices.Clone(cols), Rows: make([][]string, len(t.Rows))}
	for r, row := range t.Rows {
		proj := make([]string, len(idx))
		for i, j := range idx {
			if j < len(row) {
				proj[i] = row[j]
			}
		}
		out.Rows[r] = proj
	}
	return out, nil
}
