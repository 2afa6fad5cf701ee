// Package kpi derives per-country procurement and PFM indicators, a composite
// risk score, and Monte Carlo delay/stock-out estimates. Everything here is a
// pure function of its inputs.
package kpi

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// Metric names used in warnings and column maps.
const (
	MetricLeadTime        = "lead_time_days"
	MetricPaymentDelay    = "payment_delay_days"
	MetricFulfillment     = "fulfillment_rate"
	MetricPriceVariance   = "price_variance_pct"
	MetricBudgetExecution = "budget_execution_rate"
	MetricShortfall       = "shortfall"
)

// Options tune a Compute call.
type Options struct {
	// Year selects the budget year joined onto each country. Zero picks each
	// country's latest year.
	Year int
	// Policy overrides DefaultRiskPolicy when non-nil.
	Policy *RiskPolicy
}

// Result is the engine output.
type Result struct {
	Rows     []model.KPIRow        `json:"rows"`
	Records  []model.RecordMetrics `json:"records"`
	Warnings []Warning             `json:"warnings"`
	Policy   RiskPolicy            `json:"policy"`
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// FulfillmentRate returns delivered/ordered. Delivered may exceed ordered.
func FulfillmentRate(delivered, ordered int64) (float64, error) {
	if ordered == 0 {
		return 0, &DivisionByZeroError{Metric: MetricFulfillment, Subject: "quantity_ordered = 0"}
	}
	return float64(delivered) / float64(ordered), nil
}

// PriceVariancePct returns (unitPrice/benchmark - 1) * 100.
func PriceVariancePct(unitPrice, benchmark decimal.Decimal) (float64, error) {
	if benchmark.IsZero() {
		return 0, &DivisionByZeroError{Metric: MetricPriceVariance, Subject: "benchmark price = 0"}
	}
	return unitPrice.Div(benchmark).Sub(one).Mul(hundred).InexactFloat64(), nil
}

// BudgetExecutionRate returns disbursed/allocated.
func BudgetExecutionRate(b model.Budget) (float64, error) {
	if b.AllocatedUSD.IsZero() {
		return 0, &DivisionByZeroError{
			Metric:  MetricBudgetExecution,
			Subject: fmt.Sprintf("country %d year %d (allocated = 0)", b.CountryID, b.Year),
		}
	}
	return b.DisbursedUSD.Div(b.AllocatedUSD).InexactFloat64(), nil
}

// mean accumulates an arithmetic mean over available values.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}

type countryAgg struct {
	records     int
	lead        mean
	payment     mean
	fulfillment mean
	variance    mean
}

// Compute joins procurement records to the reference tables and returns one
// KPI row per country that has at least one joined record, ordered by
// country id.
//
// Records whose country or product is unknown are dropped. Records whose
// product has no benchmark still count towards lead time, payment delay and
// fulfillment but are left out of price variance. Both cases, and every
// zero denominator, are reported as warnings instead of failing the call.
func Compute(in model.KPIInput, opts Options) (*Result, error) {
	switch {
	case len(in.Countries) == 0:
		return nil, &EmptyDatasetError{Table: "countries"}
	case len(in.Products) == 0:
		return nil, &EmptyDatasetError{Table: "products"}
	case len(in.Procurement) == 0:
		return nil, &EmptyDatasetError{Table: "procurement"}
	}

	policy := DefaultRiskPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	countries := make(map[int]model.Country, len(in.Countries))
	for _, c := range in.Countries {
		if _, dup := countries[c.ID]; !dup {
			countries[c.ID] = c
		}
	}
	products := make(map[int]model.Product, len(in.Products))
	for _, p := range in.Products {
		if _, dup := products[p.ID]; !dup {
			products[p.ID] = p
		}
	}
	benchmarks := make(map[int]model.Benchmark, len(in.Benchmarks))
	for _, b := range in.Benchmarks {
		if _, dup := benchmarks[b.ProductID]; !dup {
			benchmarks[b.ProductID] = b
		}
	}

	res := &Result{Policy: policy}
	aggs := make(map[int]*countryAgg)

	for _, rec := range in.Procurement {
		country, ok := countries[rec.CountryID]
		if !ok {
			res.warn(rec.CountryID, &MissingReferenceRowError{ProcurementID: rec.ID, Table: "countries", Key: rec.CountryID})
			continue
		}
		product, ok := products[rec.ProductID]
		if !ok {
			res.warn(rec.CountryID, &MissingReferenceRowError{ProcurementID: rec.ID, Table: "products", Key: rec.ProductID})
			continue
		}

		m := model.RecordMetrics{
			ProcurementID: rec.ID,
			CountryID:     country.ID,
			CountryName:   country.Name,
			ProductID:     product.ID,
			ProductName:   product.Name,
			Disease:       product.Disease,
			FundingSource: rec.FundingSource,
		}

		if !rec.PODate.IsZero() && !rec.DeliveryDate.IsZero() {
			m.LeadTimeDays = ptr(float64(rec.PODate.DaysUntil(rec.DeliveryDate)))
		}
		if !rec.DeliveryDate.IsZero() && !rec.PaymentDate.IsZero() {
			m.PaymentDelayDays = ptr(float64(rec.DeliveryDate.DaysUntil(rec.PaymentDate)))
		}

		if rate, err := FulfillmentRate(rec.QuantityDelivered, rec.QuantityOrdered); err != nil {
			res.warn(country.ID, fmt.Errorf("procurement %d: %w", rec.ID, err))
		} else {
			m.FulfillmentRate = ptr(rate)
		}

		if bench, ok := benchmarks[rec.ProductID]; !ok {
			res.warn(country.ID, &MissingReferenceRowError{ProcurementID: rec.ID, Table: "benchmarks", Key: rec.ProductID})
		} else if pct, err := PriceVariancePct(rec.UnitPriceLocal, bench.WamboPriceUSD); err != nil {
			res.warn(country.ID, fmt.Errorf("procurement %d: %w", rec.ID, err))
		} else {
			m.PriceVariancePct = ptr(pct)
		}

		res.Records = append(res.Records, m)

		agg := aggs[country.ID]
		if agg == nil {
			agg = &countryAgg{}
			aggs[country.ID] = agg
		}
		agg.records++
		agg.lead.add(m.LeadTimeDays)
		agg.payment.add(m.PaymentDelayDays)
		agg.fulfillment.add(m.FulfillmentRate)
		agg.variance.add(m.PriceVariancePct)
	}

	if len(aggs) == 0 {
		return nil, &EmptyDatasetError{Table: "joined procurement"}
	}

	ids := make([]int, 0, len(aggs))
	for id := range aggs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	budgets := selectBudgets(in.Budgets, opts.Year)

	res.Rows = make([]model.KPIRow, 0, len(ids))
	for _, id := range ids {
		c := countries[id]
		agg := aggs[id]
		row := model.KPIRow{
			CountryID:        c.ID,
			Name:             c.Name,
			ISO3:             c.ISO3,
			Lat:              c.Lat,
			Lon:              c.Lon,
			IncomeLevel:      c.IncomeLevel,
			Records:          agg.records,
			LeadTimeDays:     agg.lead.value(),
			PaymentDelayDays: agg.payment.value(),
			FulfillmentRate:  agg.fulfillment.value(),
			PriceVariancePct: agg.variance.value(),
		}
		if b, ok := budgets[id]; ok {
			if rate, err := BudgetExecutionRate(b); err != nil {
				res.warn(id, err)
			} else {
				row.BudgetExecutionRate = ptr(rate)
			}
		}
		res.Rows = append(res.Rows, row)
	}

	res.score()
	return res, nil
}

// selectBudgets picks one budget row per country: the requested year, or the
// latest year when year is zero. The first row wins on ties.
func selectBudgets(budgets []model.Budget, year int) map[int]model.Budget {
	out := make(map[int]model.Budget)
	for _, b := range budgets {
		if year != 0 && b.Year != year {
			continue
		}
		cur, ok := out[b.CountryID]
		if !ok || b.Year > cur.Year {
			out[b.CountryID] = b
		}
	}
	return out
}

// score fills RiskScore on every row.
func (r *Result) score() {
	components := []struct {
		name   string
		weight float64
		value  func(model.KPIRow) *float64
	}{
		{MetricLeadTime, r.Policy.LeadTimeWeight, func(k model.KPIRow) *float64 { return k.LeadTimeDays }},
		{MetricPaymentDelay, r.Policy.PaymentDelayWeight, func(k model.KPIRow) *float64 { return k.PaymentDelayDays }},
		{MetricPriceVariance, r.Policy.PriceVarianceWeight, func(k model.KPIRow) *float64 { return k.PriceVariancePct }},
		{MetricShortfall, r.Policy.ShortfallWeight, func(k model.KPIRow) *float64 {
			if k.FulfillmentRate == nil {
				return nil
			}
			return ptr(1 - *k.FulfillmentRate)
		}},
	}

	scores := make([]float64, len(r.Rows))
	for _, comp := range components {
		maxVal, seen := 0.0, false
		for _, row := range r.Rows {
			if v := comp.value(row); v != nil && (!seen || *v > maxVal) {
				maxVal, seen = *v, true
			}
		}
		if !seen {
			continue
		}
		if maxVal < 0 {
			r.warn(0, &NegativeMaximumError{Metric: comp.name, Max: maxVal})
			continue
		}
		if maxVal == 0 {
			r.warn(0, &DivisionByZeroError{Metric: comp.name, Subject: "normalisation (max = 0)"})
			continue
		}
		for i, row := range r.Rows {
			if v := comp.value(row); v != nil {
				scores[i] += comp.weight * (*v / maxVal)
			}
		}
	}

	for i := range r.Rows {
		r.Rows[i].RiskScore = scores[i]
	}
}

func (r *Result) warn(countryID int, err error) {
	r.Warnings = append(r.Warnings, newWarning(countryID, err))
	zap.L().Warn("kpi: degraded value",
		zap.Int("country_id", countryID),
		zap.Error(err),
	)
}

// CountryRecords returns the per-record metrics of one country.
func (r *Result) CountryRecords(countryID int) []model.RecordMetrics {
	var out []model.RecordMetrics
	for _, m := range r.Records {
		if m.CountryID == countryID {
			out = append(out, m)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
