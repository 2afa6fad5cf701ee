package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
)

// WriteCSV writes a generic table with its header row.
func WriteCSV(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "export: write csv rows")
	}
	return nil
}

// WriteKPICSV writes KPI rows using their csv tags. Unavailable metrics are
// empty cells.
func WriteKPICSV(w io.Writer, rows []model.KPIRow) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(model.KPIRow{}); err != nil {
			return eris.Wrap(err, "export: encode kpi header")
		}
	}
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return eris.Wrapf(err, "export: encode kpi row %d", r.CountryID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush kpi csv")
	}
	return nil
}

// WriteXLSX writes t as a single-sheet workbook.
func WriteXLSX(w io.Writer, sheetName string, t *model.Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sheetName)
	}
	header := sheet.AddRow()
	for _, c := range t.Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, v := range r {
			cell := row.AddCell()
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cell.SetFloat(n)
			} else {
				cell.SetString(v)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// KPITable flattens KPI rows into a generic table in presentation column
// order.
func KPITable(rows []model.KPIRow) *model.Table {
	values := kpi.Columns(rows)
	t := &model.Table{Name: "kpis", Columns: kpi.KPIColumns, Rows: make([][]string, len(rows))}
	for i := range rows {
		r := make([]string, len(kpi.KPIColumns))
		for j, c := range kpi.KPIColumns {
			if v := values[c][i]; v != nil {
				r[j] = formatCell(v)
			}
		}
		t.Rows[i] = r
	}
	return t
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
