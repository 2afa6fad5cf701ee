package kpi

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/htm-dashboard/internal/model"
)

func rec(id, country, product int, po, delivery, payment string, ordered, delivered int64, price string) model.ProcurementRecord {
	return model.ProcurementRecord{
		ID:                id,
		CountryID:         country,
		ProductID:         product,
		PODate:            model.MustDate(po),
		DeliveryDate:      model.MustDate(delivery),
		PaymentDate:       model.MustDate(payment),
		QuantityOrdered:   ordered,
		QuantityDelivered: delivered,
		UnitPriceLocal:    decimal.RequireFromString(price),
	}
}

func bench(product int, price string) model.Benchmark {
	p := decimal.RequireFromString(price)
	return model.Benchmark{ProductID: product, WamboPriceUSD: p, GDFPriceUSD: p}
}

func budget(country, year int, allocated, disbursed int64) model.Budget {
	return model.Budget{
		CountryID:    country,
		Year:         year,
		AllocatedUSD: decimal.NewFromInt(allocated),
		DisbursedUSD: decimal.NewFromInt(disbursed),
	}
}

func twoCountries() model.KPIInput {
	return model.KPIInput{
		Countries: []model.Country{
			{ID: 1, Name: "Alpha", ISO3: "ALP"},
			{ID: 2, Name: "Beta", ISO3: "BET"},
		},
		Products:   []model.Product{{ID: 1, Disease: "TB", Name: "RHZE"}},
		Benchmarks: []model.Benchmark{bench(1, "0.50")},
	}
}

func hasWarning[T error](t *testing.T, ws []Warning) T {
	t.Helper()
	for _, w := range ws {
		var target T
		if errors.As(w.Err, &target) {
			return target
		}
	}
	var zero T
	t.Fatalf("no warning of type %T in %v", zero, ws)
	return zero
}

func TestCompute_LeadTimeContribution(t *testing.T) {
	in := twoCountries()
	// Payment on delivery, full fulfillment, benchmark price: only lead time varies.
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-31", "2024-01-31", 100, 100, "0.50"),
		rec(2, 2, 1, "2024-01-01", "2024-03-31", "2024-03-31", 100, 100, "0.50"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, 30.0, *res.Rows[0].LeadTimeDays)
	assert.Equal(t, 90.0, *res.Rows[1].LeadTimeDays)
	assert.InDelta(t, 0.4*(30.0/90.0), res.Rows[0].RiskScore, 1e-12)
	assert.InDelta(t, 0.4, res.Rows[1].RiskScore, 1e-12)

	// Zero maxima for the other three metrics contribute nothing and warn.
	var zeroDiv int
	for _, w := range res.Warnings {
		var dz *DivisionByZeroError
		if errors.As(w.Err, &dz) {
			zeroDiv++
		}
	}
	assert.Equal(t, 3, zeroDiv)
}

func TestCompute_NegativeMaximumLeftOut(t *testing.T) {
	in := twoCountries()
	// Both countries buy under the 0.50 benchmark, so the largest variance is negative.
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-31", "2024-01-31", 100, 100, "0.40"),
		rec(2, 2, 1, "2024-01-01", "2024-03-31", "2024-03-31", 100, 100, "0.45"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Less(t, *res.Rows[1].PriceVariancePct, 0.0)

	neg := hasWarning[*NegativeMaximumError](t, res.Warnings)
	assert.Equal(t, MetricPriceVariance, neg.Metric)
	assert.InDelta(t, -10.0, neg.Max, 1e-9)

	for _, w := range res.Warnings {
		var dz *DivisionByZeroError
		if errors.As(w.Err, &dz) {
			assert.NotEqual(t, MetricPriceVariance, dz.Metric)
		}
	}

	// Only lead time contributes.
	assert.InDelta(t, 0.4*(30.0/90.0), res.Rows[0].RiskScore, 1e-12)
	assert.InDelta(t, 0.4, res.Rows[1].RiskScore, 1e-12)
}

func TestCompute_MissingBenchmarkExcludedFromVarianceOnly(t *testing.T) {
	in := twoCountries()
	in.Products = append(in.Products, model.Product{ID: 2, Disease: "HIV", Name: "TLD"})
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 90, "0.55"),
		rec(2, 1, 2, "2024-01-01", "2024-01-31", "2024-02-10", 100, 70, "9.99"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]

	assert.Equal(t, 2, row.Records)
	assert.InDelta(t, 20.0, *row.LeadTimeDays, 1e-12)
	assert.InDelta(t, 0.8, *row.FulfillmentRate, 1e-12)
	assert.InDelta(t, 10.0, *row.PriceVariancePct, 1e-9, "only the benchmarked record counts")

	missing := hasWarning[*MissingReferenceRowError](t, res.Warnings)
	assert.Equal(t, "benchmarks", missing.Table)
	assert.Equal(t, 2, missing.ProcurementID)

	require.Len(t, res.Records, 2)
	assert.Nil(t, res.Records[1].PriceVariancePct)
	assert.NotNil(t, res.Records[1].LeadTimeDays)
}

func TestCompute_UnknownReferencesDropped(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
		rec(2, 9, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
		rec(3, 1, 9, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 1, res.Rows[0].Records)
	assert.Len(t, res.Records, 1)

	var tables []string
	for _, w := range res.Warnings {
		var m *MissingReferenceRowError
		if errors.As(w.Err, &m) {
			tables = append(tables, m.Table)
		}
	}
	assert.Equal(t, []string{"countries", "products"}, tables)
}

func TestCompute_ZeroQuantityOrdered(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 0, 10, "0.50"),
		rec(2, 2, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 50, "0.50"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Nil(t, res.Rows[0].FulfillmentRate)
	assert.InDelta(t, 0.5, *res.Rows[1].FulfillmentRate, 1e-12)

	dz := hasWarning[*DivisionByZeroError](t, res.Warnings)
	assert.Equal(t, MetricFulfillment, dz.Metric)
}

func TestCompute_NegativeDelaysAreValid(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-03-01", "2024-02-20", "2024-02-10", 100, 120, "0.50"),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	row := res.Rows[0]
	assert.Equal(t, -10.0, *row.LeadTimeDays)
	assert.Equal(t, -10.0, *row.PaymentDelayDays)
	assert.InDelta(t, 1.2, *row.FulfillmentRate, 1e-12, "over-delivery is not clamped")
}

func TestCompute_MissingPaymentDate(t *testing.T) {
	in := twoCountries()
	r := rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50")
	r.PaymentDate = model.Date{}
	in.Procurement = []model.ProcurementRecord{r}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Rows[0].PaymentDelayDays)
	assert.NotNil(t, res.Rows[0].LeadTimeDays)
}

func TestCompute_EmptyInputs(t *testing.T) {
	full := twoCountries()
	full.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
	}

	tests := []struct {
		name  string
		mut   func(*model.KPIInput)
		table string
	}{
		{"no countries", func(in *model.KPIInput) { in.Countries = nil }, "countries"},
		{"no products", func(in *model.KPIInput) { in.Products = nil }, "products"},
		{"no procurement", func(in *model.KPIInput) { in.Procurement = nil }, "procurement"},
		{"nothing joins", func(in *model.KPIInput) { in.Procurement[0].CountryID = 42 }, "joined procurement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := full
			in.Procurement = append([]model.ProcurementRecord(nil), full.Procurement...)
			tt.mut(&in)

			_, err := Compute(in, Options{})
			require.Error(t, err)
			assert.True(t, IsEmptyDataset(err))
			var empty *EmptyDatasetError
			require.ErrorAs(t, err, &empty)
			assert.Equal(t, tt.table, empty.Table)
		})
	}
}

func TestCompute_BudgetExecution(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
		rec(2, 2, 1, "2024-01-01", "2024-01-11", "2024-01-21", 100, 100, "0.50"),
	}
	in.Budgets = []model.Budget{
		budget(1, 2023, 10_000_000, 5_000_000),
		budget(1, 2024, 12_000_000, 10_500_000),
		budget(2, 2024, 0, 1_000),
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.875, *res.Rows[0].BudgetExecutionRate, 1e-12, "latest year wins")
	assert.Nil(t, res.Rows[1].BudgetExecutionRate)
	dz := hasWarning[*DivisionByZeroError](t, res.Warnings)
	assert.Equal(t, MetricBudgetExecution, dz.Metric)

	res, err = Compute(in, Options{Year: 2023})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, *res.Rows[0].BudgetExecutionRate, 1e-12)
	assert.Nil(t, res.Rows[1].BudgetExecutionRate, "no 2023 budget for country 2")
}

func TestCompute_RiskScoreBounded(t *testing.T) {
	in := model.KPIInput{
		Products:   []model.Product{{ID: 1}, {ID: 2}},
		Benchmarks: []model.Benchmark{bench(1, "0.10"), bench(2, "0.20")},
	}
	// Odd countries buy product 2, even ones product 1; every price sits at or
	// above its benchmark so all four metrics are non-negative.
	prices := []string{"0.25", "0.11", "0.30", "0.13", "0.21"}
	for i := 1; i <= 5; i++ {
		in.Countries = append(in.Countries, model.Country{ID: i})
		in.Procurement = append(in.Procurement,
			rec(i, i, 1+i%2, "2024-01-01", "2024-02-01", "2024-03-15", 1000, int64(1000-37*i), prices[i-1]),
			rec(10+i, i, 1, "2024-01-10", "2024-0"+string(rune('1'+i))+"-05", "2024-09-01", 500, 490, "0.12"),
		)
	}

	res, err := Compute(in, Options{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 5)
	for _, r := range res.Rows {
		assert.GreaterOrEqual(t, r.RiskScore, 0.0, r.CountryID)
		assert.LessOrEqual(t, r.RiskScore, 1.0+1e-12, r.CountryID)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-02-01", "2024-04-15", "2024-06-30", 500000, 495000, "0.36"),
		rec(2, 1, 1, "2024-03-10", "2024-05-25", "2024-06-10", 100000, 100000, "0.29"),
		rec(3, 2, 1, "2024-01-20", "2024-05-10", "2024-07-05", 200000, 195000, "0.16"),
	}
	in.Budgets = []model.Budget{budget(1, 2024, 12_000_000, 10_500_000)}

	first, err := Compute(in, Options{})
	require.NoError(t, err)
	second, err := Compute(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Records, second.Records)
}

func TestCompute_CustomPolicy(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-31", "2024-02-10", 100, 100, "0.50"),
		rec(2, 2, 1, "2024-01-01", "2024-03-31", "2024-04-30", 100, 100, "0.50"),
	}

	policy := RiskPolicy{PaymentDelayWeight: 1}
	res, err := Compute(in, Options{Policy: &policy})
	require.NoError(t, err)
	assert.InDelta(t, 10.0/30.0, res.Rows[0].RiskScore, 1e-12)
	assert.InDelta(t, 1.0, res.Rows[1].RiskScore, 1e-12)
	assert.Equal(t, policy, res.Policy)

	bad := RiskPolicy{LeadTimeWeight: 2}
	_, err = Compute(in, Options{Policy: &bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestCountryRecords(t *testing.T) {
	in := twoCountries()
	in.Procurement = []model.ProcurementRecord{
		rec(1, 1, 1, "2024-01-01", "2024-01-31", "2024-02-10", 100, 100, "0.50"),
		rec(2, 2, 1, "2024-01-01", "2024-03-31", "2024-04-30", 100, 100, "0.50"),
		rec(3, 1, 1, "2024-01-01", "2024-03-31", "2024-04-30", 100, 100, "0.50"),
	}
	res, err := Compute(in, Options{})
	require.NoError(t, err)

	got := res.CountryRecords(1)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ProcurementID)
	assert.Equal(t, 3, got[1].ProcurementID)
	assert.Equal(t, "RHZE", got[0].ProductName)
}

func TestFulfillmentRate(t *testing.T) {
	tests := []struct {
		name      string
		delivered int64
		ordered   int64
		want      float64
		wantErr   bool
	}{
		{"partial", 495000, 500000, 0.99, false},
		{"complete", 100, 100, 1, false},
		{"over delivery", 110, 100, 1.1, false},
		{"nothing delivered", 0, 100, 0, false},
		{"zero ordered", 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FulfillmentRate(tt.delivered, tt.ordered)
			if tt.wantErr {
				var dz *DivisionByZeroError
				require.ErrorAs(t, err, &dz)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, float64(tt.delivered)/float64(tt.ordered), got)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestPriceVariancePct(t *testing.T) {
	got, err := PriceVariancePct(decimal.RequireFromString("0.36"), decimal.RequireFromString("0.34"))
	require.NoError(t, err)
	assert.InDelta(t, 5.882352941, got, 1e-6)

	got, err = PriceVariancePct(decimal.RequireFromString("0.33"), decimal.RequireFromString("0.34"))
	require.NoError(t, err)
	assert.Less(t, got, 0.0)

	_, err = PriceVariancePct(decimal.RequireFromString("0.33"), decimal.Zero)
	var dz *DivisionByZeroError
	require.ErrorAs(t, err, &dz)
}
