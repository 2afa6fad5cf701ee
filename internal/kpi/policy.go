package kpi

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RiskPolicy holds the weights of the composite risk score. Each metric is
// divided by its maximum across the countries in the current result before
// weighting, so scores are relative to the batch: computing over a different
// country subset changes every score. A metric whose maximum is zero or
// negative is left out of the score with a warning.
type RiskPolicy struct {
	LeadTimeWeight      float64 `yaml:"lead_time_weight" json:"lead_time_weight"`
	PaymentDelayWeight  float64 `yaml:"payment_delay_weight" json:"payment_delay_weight"`
	PriceVarianceWeight float64 `yaml:"price_variance_weight" json:"price_variance_weight"`
	ShortfallWeight     float64 `yaml:"shortfall_weight" json:"shortfall_weight"`
}

// DefaultRiskPolicy returns the standard weighting. Weights sum to 1.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		LeadTimeWeight:      0.4,
		PaymentDelayWeight:  0.3,
		PriceVarianceWeight: 0.2,
		ShortfallWeight:     0.1,
	}
}

// WeightSum returns the sum of all component weights.
func (p RiskPolicy) WeightSum() float64 {
	return p.LeadTimeWeight + p.PaymentDelayWeight + p.PriceVarianceWeight + p.ShortfallWeight
}

// Validate checks that weights are non-negative and sum to 1.
func (p RiskPolicy) Validate() error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"lead_time_weight", p.LeadTimeWeight},
		{"payment_delay_weight", p.PaymentDelayWeight},
		{"price_variance_weight", p.PriceVarianceWeight},
		{"shortfall_weight", p.ShortfallWeight},
	}
	for _, w := range weights {
		if w.w < 0 || math.IsNaN(w.w) {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	if sum := p.WeightSum(); math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1, got %.4f", sum))
	}

	if len(errs) > 0 {
		return eris.Errorf("kpi: risk policy validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadPolicy reads a risk policy from a YAML file with a top-level "risk"
// key. Omitted weights keep their default value.
func LoadPolicy(path string) (RiskPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RiskPolicy{}, eris.Wrapf(err, "kpi: read policy %s", path)
	}

	wrapper := struct {
		Risk RiskPolicy `yaml:"risk"`
	}{Risk: DefaultRiskPolicy()}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return RiskPolicy{}, eris.Wrap(err, "kpi: parse policy")
	}

	if err := wrapper.Risk.Validate(); err != nil {
		return RiskPolicy{}, err
	}
	return wrapper.Risk, nil
}
