package model

import "github.com/shopspring/decimal"

// Country is static reference data for one reporting country.
type Country struct {
	ID          int     `json:"country_id" csv:"country_id"`
	Name        string  `json:"name" csv:"name"`
	ISO3        string  `json:"iso3" csv:"iso3"`
	Lat         float64 `json:"lat" csv:"lat"`
	Lon         float64 `json:"lon" csv:"lon"`
	Region      string  `json:"region,omitempty" csv:"region,omitempty"`
	IncomeLevel string  `json:"income_level,omitempty" csv:"income_level,omitempty"`
}

// Product is a procured health commodity.
type Product struct {
	ID      int    `json:"product_id" csv:"product_id"`
	Disease string `json:"disease" csv:"disease"`
	Name    string `json:"product_name" csv:"product_name"`
}

// Benchmark holds reference unit prices from the two price-tracking sources.
// WamboPriceUSD is the one used for price variance.
type Benchmark struct {
	ProductID     int             `json:"product_id" csv:"product_id"`
	WamboPriceUSD decimal.Decimal `json:"wambo_price_usd" csv:"wambo_price_usd"`
	GDFPriceUSD   decimal.Decimal `json:"gdf_price_usd" csv:"gdf_price_usd"`
}

// Budget is one country-year allocation for the HTM commodity category.
type Budget struct {
	CountryID     int             `json:"country_id" csv:"country_id"`
	Year          int             `json:"year" csv:"year"`
	AllocatedUSD  decimal.Decimal `json:"allocated_htm_usd" csv:"allocated_htm_usd"`
	DisbursedUSD  decimal.Decimal `json:"disbursed_htm_usd" csv:"disbursed_htm_usd"`
	FundingSource string          `json:"funding_source,omitempty" csv:"funding_source,omitempty"`
}
