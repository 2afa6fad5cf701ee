package dataset

import (
	"github.com/shopspring/decimal"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// Demo returns the built-in dataset served when no data source is configured:
// six WCA countries, three tracer products and seven 2024 purchase orders.
func Demo() *model.Dataset {
	return &model.Dataset{
		KPI: model.KPIInput{
			Countries:   demoCountries(),
			Products:    demoProducts(),
			Procurement: demoProcurement(),
			Benchmarks:  demoBenchmarks(),
			Budgets:     demoBudgets(),
		},
		Profiles: demoProfiles(),
	}
}

func demoCountries() []model.Country {
	return []model.Country{
		{ID: 1, Name: "Benin", ISO3: "BEN", Lat: 9.31, Lon: 2.32, Region: "WCA", IncomeLevel: "Lower-middle"},
		{ID: 2, Name: "Guinea", ISO3: "GIN", Lat: 9.95, Lon: -9.7, Region: "WCA", IncomeLevel: "Low"},
		{ID: 3, Name: "Niger", ISO3: "NER", Lat: 17.61, Lon: 8.08, Region: "WCA", IncomeLevel: "Low"},
		{ID: 4, Name: "Mauritania", ISO3: "MRT", Lat: 20.26, Lon: -10.46, Region: "WCA", IncomeLevel: "Lower-middle"},
		{ID: 5, Name: "Senegal", ISO3: "SEN", Lat: 14.5, Lon: -14.45, Region: "WCA", IncomeLevel: "Lower-middle"},
		{ID: 6, Name: "Togo", ISO3: "TGO", Lat: 8.62, Lon: 0.82, Region: "WCA", IncomeLevel: "Low"},
	}
}

func demoProducts() []model.Product {
	return []model.Product{
		{ID: 1, Disease: "HIV", Name: "RHZE (Rifampicin/Isoniazid/Pyrazinamide/Ethambutol)"},
		{ID: 2, Disease: "TB", Name: "TLD (Tenofovir/Lamivudine/Dolutegravir)"},
		{ID: 3, Disease: "Malaria", Name: "Artemether-Lumefantrine 20/120mg"},
	}
}

func demoProcurement() []model.ProcurementRecord {
	type po struct {
		id, country, product int
		po, delivery, paid   string
		ordered, delivered   int64
		price, currency, src string
	}
	orders := []po{
		{1, 1, 1, "2024-02-01", "2024-04-15", "2024-06-30", 500000, 495000, "0.36", "XOF", "Gov"},
		{2, 1, 2, "2024-03-10", "2024-05-25", "2024-06-10", 100000, 100000, "0.29", "XOF", "Gov"},
		{3, 2, 3, "2024-01-20", "2024-05-10", "2024-07-05", 200000, 195000, "0.16", "GNF", "Gov"},
		{4, 3, 1, "2024-03-05", "2024-07-02", "2024-10-01", 600000, 580000, "0.40", "XOF", "Mixed"},
		{5, 4, 2, "2024-04-01", "2024-07-20", "2024-09-05", 80000, 79000, "0.31", "MRU", "Gov"},
		{6, 5, 1, "2024-01-15", "2024-03-10", "2024-03-30", 700000, 700000, "0.33", "XOF", "Gov"},
		{7, 6, 3, "2024-02-12", "2024-06-01", "2024-07-25", 250000, 240000, "0.18", "XOF", "Mixed"},
	}
	out := make([]model.ProcurementRecord, 0, len(orders))
	for _, o := range orders {
		out = append(out, model.ProcurementRecord{
			ID:                o.id,
			CountryID:         o.country,
			ProductID:         o.product,
			PODate:            model.MustDate(o.po),
			DeliveryDate:      model.MustDate(o.delivery),
			PaymentDate:       model.MustDate(o.paid),
			QuantityOrdered:   o.ordered,
			QuantityDelivered: o.delivered,
			UnitPriceLocal:    decimal.RequireFromString(o.price),
			Currency:          o.currency,
			FundingSource:     o.src,
		})
	}
	return out
}

func demoBenchmarks() []model.Benchmark {
	return []model.Benchmark{
		{ProductID: 1, WamboPriceUSD: decimal.RequireFromString("0.34"), GDFPriceUSD: decimal.RequireFromString("0.33")},
		{ProductID: 2, WamboPriceUSD: decimal.RequireFromString("0.28"), GDFPriceUSD: decimal.RequireFromString("0.29")},
		{ProductID: 3, WamboPriceUSD: decimal.RequireFromString("0.15"), GDFPriceUSD: decimal.RequireFromString("0.14")},
	}
}

func demoBudgets() []model.Budget {
	alloc := []int64{12_000_000, 8_000_000, 9_500_000, 5_000_000, 15_000_000, 7_000_000}
	disb := []int64{10_500_000, 6_000_000, 9_100_000, 4_200_000, 14_700_000, 6_100_000}
	src := []string{"Gov", "Gov", "Mixed", "Gov", "Gov", "Mixed"}
	out := make([]model.Budget, len(alloc))
	for i := range alloc {
		out[i] = model.Budget{
			CountryID:     i + 1,
			Year:          2024,
			AllocatedUSD:  decimal.NewFromInt(alloc[i]),
			DisbursedUSD:  decimal.NewFromInt(disb[i]),
			FundingSource: src[i],
		}
	}
	return out
}

func demoProfiles() map[string]*model.Table {
	tables := []*model.Table{
		{
			Name:    model.TableProcurement,
			Columns: []string{"Country", "Dedicated Procurement Agency", "Autonomy Level", "HTM Procurement Guidelines"},
			Rows: [][]string{
				{"Benin", "Yes", "Semi-autonomous", "Yes"},
				{"Guinea", "Yes", "Low", "Partial"},
				{"Niger", "No", "Low", "No"},
				{"Mauritania", "Yes", "Semi-autonomous", "Partial"},
				{"Senegal", "Yes", "Autonomous", "Yes"},
				{"Togo", "Yes", "Semi-autonomous", "Yes"},
			},
		},
		{
			Name:    model.TablePFM,
			Columns: []string{"Country", "Budget Allocation Timeliness", "Payment Delays", "Alignment with Procurement Cycle"},
			Rows: [][]string{
				{"Benin", "Timely", "Moderate", "Partial"},
				{"Guinea", "Late", "Severe", "Weak"},
				{"Niger", "Late", "Severe", "Weak"},
				{"Mauritania", "Timely", "Moderate", "Partial"},
				{"Senegal", "Timely", "Minor", "Strong"},
				{"Togo", "Late", "Moderate", "Partial"},
			},
		},
		{
			Name:    model.TableQA,
			Columns: []string{"Country", "QA Policy Exists", "Pre-shipment Testing", "Post-market Surveillance"},
			Rows: [][]string{
				{"Benin", "Yes", "Yes", "Moderate"},
				{"Guinea", "No", "Partial", "Weak"},
				{"Niger", "No", "No", "Weak"},
				{"Mauritania", "Yes", "Partial", "Weak"},
				{"Senegal", "Yes", "Yes", "Strong"},
				{"Togo", "Yes", "Partial", "Moderate"},
			},
		},
		{
			Name:    model.TableCofinancing,
			Columns: []string{"Country", "Execution Rate (%)", "Risk of Non-Materialization"},
			Rows: [][]string{
				{"Benin", "87.5", "Low"},
				{"Guinea", "75", "High"},
				{"Niger", "95.8", "Medium"},
				{"Mauritania", "84", "Medium"},
				{"Senegal", "98", "Low"},
				{"Togo", "n/a", "Medium"},
			},
		},
		{
			Name:    model.TableTexts,
			Columns: []string{"Country", "policy_framework", "procurement_cycle", "bottlenecks", "quality_assurance", "innovations"},
			Rows: [][]string{
				{"Benin", "National procurement code covers HTM commodities.", "Annual quantification feeds a single tender.", "Late customs clearance.", "NRA performs pre-shipment sampling.", "Pooled procurement pilot with neighbours."},
				{"Guinea", "HTM guidelines in draft.", "Orders placed after budget release.", "Treasury release delays.", "Limited laboratory capacity.", "Electronic LMIS rollout."},
				{"Niger", "No HTM-specific guidelines.", "Donor-driven ordering calendar.", "Long lead times and stockouts.", "Testing outsourced abroad.", "Regional warehouse partnership."},
				{"Mauritania", "Procurement code revised in 2022.", "Bi-annual tenders.", "Small volumes raise unit prices.", "Partial pre-shipment testing.", "Framework agreements."},
				{"Senegal", "Autonomous central medical store.", "Multi-year framework contracts.", "Payment arrears to suppliers.", "Post-market surveillance network.", "Domestic co-financing ring-fenced."},
				{"Togo", "Guidelines adopted, not yet enforced.", "Quarterly call-offs.", "Budget execution below plan.", "Sampling at port of entry.", "Mobile stock reporting."},
			},
		},
		{
			Name:    model.TableComparative,
			Columns: []string{"Country", "Budget Credibility", "Cash Management", "Arrears Monitoring"},
			Rows: [][]string{
				{"Benin", "B", "B", "C"},
				{"Senegal", "A", "B", "B"},
				{"Togo", "C", "C", "C"},
			},
		},
		{
			Name:    model.TableWCASummary,
			Columns: []string{"Indicator", "Value"},
			Rows: [][]string{
				{"Countries covered", "6"},
				{"Products tracked", "3"},
			},
		},
	}
	out := make(map[string]*model.Table, len(tables))
	for _, t := range tables {
		out[t.Name] = t
	}
	return out
}
