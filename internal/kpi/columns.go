package kpi

import "github.com/sells-group/htm-dashboard/internal/model"

// KPIColumns is the column order handed to the presentation layer.
var KPIColumns = []string{
	"country_id",
	"name",
	"iso3",
	"lat",
	"lon",
	"income_level",
	"records",
	MetricLeadTime,
	MetricPaymentDelay,
	MetricFulfillment,
	MetricPriceVariance,
	MetricBudgetExecution,
	"risk_score",
}

// Columns converts rows into a column name -> values mapping. Unavailable
// metrics appear as nil.
func Columns(rows []model.KPIRow) map[string][]any {
	out := make(map[string][]any, len(KPIColumns))
	for _, c := range KPIColumns {
		out[c] = make([]any, 0, len(rows))
	}
	for _, r := range rows {
		out["country_id"] = append(out["country_id"], r.CountryID)
		out["name"] = append(out["name"], r.Name)
		out["iso3"] = append(out["iso3"], r.ISO3)
		out["lat"] = append(out["lat"], r.Lat)
		out["lon"] = append(out["lon"], r.Lon)
		out["income_level"] = append(out["income_level"], r.IncomeLevel)
		out["records"] = append(out["records"], r.Records)
		out[MetricLeadTime] = append(out[MetricLeadTime], optional(r.LeadTimeDays))
		out[MetricPaymentDelay] = append(out[MetricPaymentDelay], optional(r.PaymentDelayDays))
		out[MetricFulfillment] = append(out[MetricFulfillment], optional(r.FulfillmentRate))
		out[MetricPriceVariance] = append(out[MetricPriceVariance], optional(r.PriceVariancePct))
		out[MetricBudgetExecution] = append(out[MetricBudgetExecution], optional(r.BudgetExecutionRate))
		out["risk_score"] = append(out["risk_score"], r.RiskScore)
	}
	return out
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
