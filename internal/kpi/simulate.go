package kpi

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// Simulation defaults.
const (
	DefaultDraws              = 10000
	DefaultDelayThresholdDays = 90.0
	DefaultStockoutThreshold  = 0.95
	DefaultHistogramBins      = 40
)

// ctxCheckEvery is how many draws pass between cancellation checks.
const ctxCheckEvery = 4096

// SimulationOptions parameterise Simulate.
type SimulationOptions struct {
	Draws int
	Seed  uint64
	// DelayThresholdDays defaults to 90 when nil.
	DelayThresholdDays *float64
	// StockoutThreshold defaults to 0.95 when nil.
	StockoutThreshold *float64
}

// MeanStd returns the arithmetic mean and the sample standard deviation
// (n-1 denominator). The deviation is 0 for fewer than two samples.
func MeanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mu := sum / float64(len(xs))
	if len(xs) < 2 {
		return mu, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return mu, math.Sqrt(ss / float64(len(xs)-1))
}

// SampleColumns extracts the lead-time and fulfillment columns from joined
// record metrics, skipping unavailable values.
func SampleColumns(records []model.RecordMetrics) (lead, fulfillment []float64) {
	for _, r := range records {
		if r.LeadTimeDays != nil {
			lead = append(lead, *r.LeadTimeDays)
		}
		if r.FulfillmentRate != nil {
			fulfillment = append(fulfillment, *r.FulfillmentRate)
		}
	}
	return lead, fulfillment
}

// Simulate draws opts.Draws samples from a normal distribution fitted to the
// lead-time samples and, independently, opts.Draws samples from one fitted to
// the fulfillment samples. The two variables are not correlated. The same
// seed and inputs always give the same result.
func Simulate(ctx context.Context, leadTimes, fulfillment []float64, opts SimulationOptions) (*model.SimulationResult, error) {
	if opts.Draws <= 0 {
		return nil, &InvalidArgumentError{Field: "n_draws", Reason: "must be a positive integer"}
	}
	if len(leadTimes) == 0 {
		return nil, &EmptyDatasetError{Table: "lead time samples"}
	}
	if len(fulfillment) == 0 {
		return nil, &EmptyDatasetError{Table: "fulfillment samples"}
	}
	delayAt := DefaultDelayThresholdDays
	if opts.DelayThresholdDays != nil {
		delayAt = *opts.DelayThresholdDays
	}
	if delayAt < 0 || math.IsNaN(delayAt) {
		return nil, &InvalidArgumentError{Field: "delay_threshold_days", Reason: "must not be negative"}
	}
	stockoutAt := DefaultStockoutThreshold
	if opts.StockoutThreshold != nil {
		stockoutAt = *opts.StockoutThreshold
	}
	if stockoutAt < 0 || math.IsNaN(stockoutAt) {
		return nil, &InvalidArgumentError{Field: "stockout_threshold", Reason: "must not be negative"}
	}

	leadMu, leadSigma := MeanStd(leadTimes)
	fulMu, fulSigma := MeanStd(fulfillment)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	lead, err := drawNormal(ctx, rng, leadMu, leadSigma, opts.Draws)
	if err != nil {
		return nil, err
	}
	ful, err := drawNormal(ctx, rng, fulMu, fulSigma, opts.Draws)
	if err != nil {
		return nil, err
	}

	var delayed, stockout int
	for i := range opts.Draws {
		if lead[i] > delayAt {
			delayed++
		}
		if ful[i] < stockoutAt {
			stockout++
		}
	}

	return &model.SimulationResult{
		Draws:           opts.Draws,
		Seed:            opts.Seed,
		DelayThreshold:  delayAt,
		StockoutCutoff:  stockoutAt,
		ProbDelay:       float64(delayed) / float64(opts.Draws),
		ProbStockout:    float64(stockout) / float64(opts.Draws),
		LeadTimeMean:    leadMu,
		LeadTimeStdDev:  leadSigma,
		FulfillmentMean: fulMu,
		FulfillmentStd:  fulSigma,
		LeadTimes:       lead,
		Fulfillment:     ful,
	}, nil
}

func drawNormal(ctx context.Context, rng *rand.Rand, mu, sigma float64, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range n {
		if i%ctxCheckEvery == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "kpi: simulation cancelled")
		}
		out[i] = mu + sigma*rng.NormFloat64()
	}
	return out, nil
}

// Bin is one equal-width histogram bucket. Lower is inclusive; Upper is
// exclusive except for the last bucket.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram buckets samples into bins equal-width bins spanning their range.
// A constant sample set yields a single bin.
func Histogram(samples []float64, bins int) []Bin {
	if len(samples) == 0 {
		return nil
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(samples)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, s := range samples {
		idx := int((s - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
