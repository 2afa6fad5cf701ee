package model

// KPIRow is the per-country indicator row produced by the KPI engine.
// Metric fields are nil when no record of the country could supply them.
type KPIRow struct {
	CountryID           int      `json:"country_id" csv:"country_id"`
	Name                string   `json:"name" csv:"name"`
	ISO3                string   `json:"iso3" csv:"iso3"`
	Lat                 float64  `json:"lat" csv:"lat"`
	Lon                 float64  `json:"lon" csv:"lon"`
	IncomeLevel         string   `json:"income_level,omitempty" csv:"income_level"`
	Records             int      `json:"records" csv:"records"`
	LeadTimeDays        *float64 `json:"lead_time_days" csv:"lead_time_days"`
	PaymentDelayDays    *float64 `json:"payment_delay_days" csv:"payment_delay_days"`
	FulfillmentRate     *float64 `json:"fulfillment_rate" csv:"fulfillment_rate"`
	PriceVariancePct    *float64 `json:"price_variance_pct" csv:"price_variance_pct"`
	BudgetExecutionRate *float64 `json:"budget_execution_rate" csv:"budget_execution_rate"`
	RiskScore           float64  `json:"risk_score" csv:"risk_score"`
}

// SimulationResult is the output of a Monte Carlo run, ready for histogram
// rendering.
type SimulationResult struct {
	Draws           int       `json:"n_draws"`
	Seed            uint64    `json:"seed"`
	DelayThreshold  float64   `json:"delay_threshold_days"`
	StockoutCutoff  float64   `json:"stockout_threshold"`
	ProbDelay       float64   `json:"p_delay"`
	ProbStockout    float64   `json:"p_stockout"`
	LeadTimeMean    float64   `json:"lead_time_mean"`
	LeadTimeStdDev  float64   `json:"lead_time_std"`
	FulfillmentMean float64   `json:"fulfillment_mean"`
	FulfillmentStd  float64   `json:"fulfillment_std"`
	LeadTimes       []float64 `json:"lead_time_samples"`
	Fulfillment     []float64 `json:"fulfillment_samples"`
}
