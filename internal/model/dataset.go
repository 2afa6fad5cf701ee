package model

// Profile table names as published in the data directory.
const (
	TableProcurement = "procurement"
	TablePFM         = "pfm"
	TableQA          = "qa"
	TableCofinancing = "cofinancing"
	TableTexts       = "ctexts"
	TableComparative = "cpfm"
	TableWCASummary  = "wca_summary"
)

// ProfileTables lists every profile table in load order.
var ProfileTables = []string{
	TableProcurement,
	TablePFM,
	TableQA,
	TableCofinancing,
	TableTexts,
	TableComparative,
	TableWCASummary,
}

// KPIInput bundles the typed tables consumed by the KPI engine.
type KPIInput struct {
	Countries   []Country           `json:"countries"`
	Products    []Product           `json:"products"`
	Procurement []ProcurementRecord `json:"procurement"`
	Benchmarks  []Benchmark         `json:"benchmarks"`
	Budgets     []Budget            `json:"budgets"`
}

// Dataset is everything one request needs: the KPI tables plus the profile
// tables keyed by name. It is read-only once loaded. KPIErr is set when the
// KPI tables failed to load; the profile tables are still usable then.
type Dataset struct {
	KPI      KPIInput          `json:"kpi"`
	Profiles map[string]*Table `json:"profiles"`
	KPIErr   error             `json:"-"`
}

// KPITables returns the KPI tables, or the error that kept them from loading.
func (d *Dataset) KPITables() (KPIInput, error) {
	if d.KPIErr != nil {
		return KPIInput{}, d.KPIErr
	}
	return d.KPI, nil
}

// Profile returns the named profile table, or an empty table when it was not
// loaded.
func (d *Dataset) Profile(name string) *Table {
	if d != nil && d.Profiles != nil {
		if t, ok := d.Profiles[name]; ok && t != nil {
			return t
		}
	}
	return &Table{Name: name}
}
