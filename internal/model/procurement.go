package model

import "github.com/shopspring/decimal"

// ProcurementRecord is one purchase-order-to-payment cycle. Records are never
// mutated after load.
type ProcurementRecord struct {
	ID                int             `json:"procurement_id" csv:"procurement_id"`
	CountryID         int             `json:"country_id" csv:"country_id"`
	ProductID         int             `json:"product_id" csv:"product_id"`
	PODate            Date            `json:"po_date" csv:"po_date"`
	DeliveryDate      Date            `json:"delivery_date" csv:"delivery_date"`
	PaymentDate       Date            `json:"payment_date" csv:"payment_date,omitempty"`
	QuantityOrdered   int64           `json:"quantity_ordered" csv:"quantity_ordered"`
	QuantityDelivered int64           `json:"quantity_delivered" csv:"quantity_delivered"`
	UnitPriceLocal    decimal.Decimal `json:"unit_price_local" csv:"unit_price_local"`
	Currency          string          `json:"currency,omitempty" csv:"currency,omitempty"`
	FundingSource     string          `json:"funding_source,omitempty" csv:"funding_source,omitempty"`
}

// RecordMetrics are the values derived from a single joined procurement
// record. Nil metrics could not be computed for that record.
type RecordMetrics struct {
	ProcurementID    int      `json:"procurement_id"`
	CountryID        int      `json:"country_id"`
	CountryName      string   `json:"country"`
	ProductID        int      `json:"product_id"`
	ProductName      string   `json:"product_name"`
	Disease          string   `json:"disease"`
	FundingSource    string   `json:"funding_source,omitempty"`
	LeadTimeDays     *float64 `json:"lead_time_days"`
	PaymentDelayDays *float64 `json:"payment_delay_days"`
	FulfillmentRate  *float64 `json:"fulfillment_rate"`
	PriceVariancePct *float64 `json:"price_variance_pct"`
}
