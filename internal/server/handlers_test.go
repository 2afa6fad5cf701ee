package server

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
	"github.com/sells-group/htm-dashboard/internal/profile"
)

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func TestKPIs(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/kpis")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[kpiResponse](t, resp)

	assert.Len(t, got.Rows, 6)
	assert.Equal(t, kpi.KPIColumns, got.ColumnOrder)
	assert.Len(t, got.Columns["iso3"], 6)
	assert.Empty(t, got.SnapshotID)
	assert.Equal(t, kpi.DefaultRiskPolicy(), got.Policy)
}

func dirServer(t *testing.T, files map[string]string) *testClient {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return newTestServerWith(t, Options{Source: dataset.DirSource{Dir: dir}})
}

func kpiTableFiles() map[string]string {
	return map[string]string{
		dataset.FileCountries: "country_id,name,iso3\n1,Benin,BEN\n",
		dataset.FileProducts:  "product_id,product_name\n1,TLD\n",
		dataset.FileProcurement: "procurement_id,country_id,product_id,po_date,delivery_date,quantity_ordered,quantity_delivered,unit_price_local\n" +
			"1,1,1,2024-02-01,2024-04-15,500000,495000,0.36\n",
		"qa.csv": "Country,QA Policy Exists\nBenin,Yes\n",
	}
}

func TestKPIs_UnreadableBudgetsAreUnavailable(t *testing.T) {
	files := kpiTableFiles()
	files[dataset.FileBudgets] = "country_id,year,allocated_htm_usd,disbursed_htm_usd\n1,2024,oops,100\n"
	tc := dirServer(t, files)
	tc.login()

	resp := tc.get("/api/kpis")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[kpiResponse](t, resp)
	require.Len(t, got.Rows, 1)
	assert.Nil(t, got.Rows[0].BudgetExecutionRate)
}

func TestKPITablesFailing_ProfilesStillServed(t *testing.T) {
	files := kpiTableFiles()
	files[dataset.FileCountries] = "country_id,name\n1,Benin\n"
	tc := dirServer(t, files)
	tc.login()

	assert.Equal(t, http.StatusUnprocessableEntity, tc.get("/api/kpis").StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, tc.postJSON("/api/simulate", map[string]any{}).StatusCode)

	resp := tc.get("/api/tables/qa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.Table](t, resp).Rows, 1)
	assert.Equal(t, http.StatusOK, tc.get("/api/qa/scores").StatusCode)
}

func TestKPIs_BadYear(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()
	for _, q := range []string{"abc", "-1", "0"} {
		resp := tc.get("/api/kpis?year=" + q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestKPIs_SnapshotWithoutStore(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()
	resp := tc.get("/api/kpis?snapshot=true")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, tc.get("/api/snapshots").StatusCode)
}

func TestKPIs_SnapshotRoundTrip(t *testing.T) {
	tc := newTestServer(t, newSQLiteStore(t))
	tc.login()

	resp := tc.get("/api/kpis?snapshot=true&year=2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := decode[kpiResponse](t, resp).SnapshotID
	require.NotEmpty(t, id)

	resp = tc.get("/api/snapshots/" + id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[model.Snapshot](t, resp)
	assert.Equal(t, "admin", snap.CreatedBy)
	assert.Equal(t, "demo", snap.Source)
	assert.Equal(t, 2024, snap.Year)
	assert.Len(t, snap.Rows, 6)

	resp = tc.get("/api/snapshots?created_by=admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Snapshot](t, resp), 1)

	resp = tc.get("/api/snapshots?created_by=analyst")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.Snapshot](t, resp))

	assert.Equal(t, http.StatusNotFound, tc.get("/api/snapshots/does-not-exist").StatusCode)
	assert.Equal(t, http.StatusBadRequest, tc.get("/api/snapshots?limit=x").StatusCode)
}

func TestKPIsCSV(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/kpis.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "kpis.csv")

	records, err := csv.NewReader(bytes.NewReader(readAll(t, resp))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 7)
	assert.Equal(t, "country_id", records[0][0])
}

func TestKPIsXLSX(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/kpis.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(readAll(t, resp), []byte("PK")))
}

func TestCountryRecords(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/countries/ben/records")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Country model.KPIRow          `json:"country"`
		Records []model.RecordMetrics `json:"records"`
	}
	require.NoError(t, jsonDecode(resp, &got))
	assert.Equal(t, "BEN", got.Country.ISO3)
	assert.Len(t, got.Records, 2)

	assert.Equal(t, http.StatusNotFound, tc.get("/api/countries/XXX/records").StatusCode)
}

func TestSimulate(t *testing.T) {
	tc := newTestServer(t, newSQLiteStore(t))
	tc.login()

	draws, seed := 1000, uint64(7)
	resp := tc.postJSON("/api/simulate", SimulateRequest{NDraws: &draws, Seed: &seed})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[simulateResponse](t, resp)

	assert.Equal(t, 1000, first.Draws)
	assert.Len(t, first.LeadTimes, 1000)
	assert.Len(t, first.Fulfillment, 1000)
	assert.Len(t, first.LeadTimeHistogram, kpi.DefaultHistogramBins)
	assert.NotEmpty(t, first.RunID)
	assert.GreaterOrEqual(t, first.ProbDelay, 0.0)
	assert.LessOrEqual(t, first.ProbDelay, 1.0)

	resp = tc.postJSON("/api/simulate", SimulateRequest{NDraws: &draws, Seed: &seed})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[simulateResponse](t, resp)
	assert.Equal(t, first.ProbDelay, second.ProbDelay)
	assert.Equal(t, first.ProbStockout, second.ProbStockout)

	resp = tc.get("/api/simulations")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.SimulationRun](t, resp), 2)
}

func TestSimulate_Defaults(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.do(http.MethodPost, "/api/simulate", nil, "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[simulateResponse](t, resp)
	assert.Equal(t, 500, got.Draws)
	assert.Equal(t, uint64(42), got.Seed)
	assert.Empty(t, got.RunID)
}

func TestSimulate_ZeroThresholds(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	zero := 0.0
	resp := tc.postJSON("/api/simulate", SimulateRequest{DelayThresholdDays: &zero, StockoutThreshold: &zero})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[simulateResponse](t, resp)
	assert.Equal(t, 0.0, got.DelayThreshold)
	assert.Equal(t, 0.0, got.StockoutCutoff)
}

func TestSimulate_InvalidRequests(t *testing.T) {
	zero, huge := 0, 20_000
	neg := -3.0
	over := 1.5
	tests := []struct {
		name string
		req  SimulateRequest
	}{
		{"zero draws", SimulateRequest{NDraws: &zero}},
		{"above max", SimulateRequest{NDraws: &huge}},
		{"negative threshold", SimulateRequest{DelayThresholdDays: &neg}},
		{"stockout above one", SimulateRequest{StockoutThreshold: &over}},
	}
	tc := newTestServer(t, nil)
	tc.login()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tc.postJSON("/api/simulate", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestTables(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/tables/qa")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tbl := decode[model.Table](t, resp)
	assert.Equal(t, "qa", tbl.Name)
	assert.Len(t, tbl.Rows, 6)

	resp = tc.get("/api/tables/qa?cols=Country,QA%20Policy%20Exists")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Country", "QA Policy Exists"}, decode[model.Table](t, resp).Columns)

	resp = tc.get("/api/tables/pfm.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records, err := csv.NewReader(bytes.NewReader(readAll(t, resp))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 7)

	assert.Equal(t, http.StatusBadRequest, tc.get("/api/tables/qa?cols=Bogus").StatusCode)
	assert.Equal(t, http.StatusNotFound, tc.get("/api/tables/secrets").StatusCode)
}

func TestProfiles(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/profiles/Benin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[profile.Profile](t, resp)
	assert.Equal(t, "Benin", p.Country)
	require.NotNil(t, p.QAScore)
	assert.Equal(t, 5, *p.QAScore)

	resp = tc.get("/api/profiles/Benin.docx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeDOCX, resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(readAll(t, resp), []byte("PK")))

	resp = tc.get("/api/profiles/Benin.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(readAll(t, resp), []byte("%PDF")))

	assert.Equal(t, http.StatusNotFound, tc.get("/api/profiles/Atlantis").StatusCode)
}

func TestQAScores(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/qa/scores")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		MaxScore int                    `json:"max_score"`
		Scores   []profile.CountryScore `json:"scores"`
	}
	require.NoError(t, jsonDecode(resp, &got))
	assert.Equal(t, profile.MaxQAScore, got.MaxScore)
	require.Len(t, got.Scores, 6)
	assert.Equal(t, profile.CountryScore{Country: "Benin", Score: 5}, got.Scores[0])
	assert.Equal(t, profile.CountryScore{Country: "Niger", Score: 1}, got.Scores[5])
}

func TestExecutionRatesAndCounts(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	resp := tc.get("/api/cofinancing/execution")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rates struct {
		Available bool                    `json:"available"`
		Rates     []profile.ExecutionRate `json:"rates"`
	}
	require.NoError(t, jsonDecode(resp, &rates))
	assert.True(t, rates.Available)
	assert.Len(t, rates.Rates, 5)

	resp = tc.get("/api/counts/procurement/Autonomy%20Level")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decode[[]profile.ValueCount](t, resp)
	require.NotEmpty(t, counts)
	assert.Equal(t, "Semi-autonomous", counts[0].Value)
	assert.Equal(t, 3, counts[0].Count)

	assert.Equal(t, http.StatusNotFound, tc.get("/api/counts/procurement/Nope").StatusCode)
}

func TestUpload(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()

	body, ct := multipartFile(t, "plan.csv", []byte("Country,Budget\nBenin,10\nTogo,20\n"))
	resp := tc.do(http.MethodPost, "/api/uploads", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Filename string       `json:"filename"`
		Table    *model.Table `json:"table"`
	}
	require.NoError(t, jsonDecode(resp, &got))
	assert.Equal(t, "plan.csv", got.Filename)
	require.NotNil(t, got.Table)
	assert.Equal(t, []string{"Country", "Budget"}, got.Table.Columns)
	assert.Len(t, got.Table.Rows, 2)
}

func TestUpload_MissingFile(t *testing.T) {
	tc := newTestServer(t, nil)
	tc.login()
	resp := tc.do(http.MethodPost, "/api/uploads", bytes.NewReader(nil), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
