package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/htm-dashboard/internal/fetcher"
	"github.com/sells-group/htm-dashboard/internal/model"
)

// File names of the typed KPI tables.
const (
	FileCountries   = "countries.csv"
	FileProducts    = "products.csv"
	FileProcurement = "procurement_records.csv"
	FileBenchmarks  = "benchmarks.csv"
	FileBudgets     = "budgets.csv"
)

var (
	countryColumns     = []string{"country_id", "name", "iso3"}
	productColumns     = []string{"product_id", "product_name"}
	procurementColumns = []string{
		"procurement_id", "country_id", "product_id", "po_date", "delivery_date",
		"quantity_ordered", "quantity_delivered", "unit_price_local",
	}
	benchmarkColumns = []string{"product_id", "wambo_price_usd"}
	budgetColumns    = []string{"country_id", "year", "allocated_htm_usd", "disbursed_htm_usd"}
)

// Load reads the KPI tables and every profile table. A nil source yields the
// demo dataset. A KPI load failure is kept on Dataset.KPIErr so the profile
// views keep working; only a cancelled context fails the whole load.
func Load(ctx context.Context, src Source) (*model.Dataset, error) {
	if src == nil {
		return Demo(), nil
	}
	ds := &model.Dataset{Profiles: LoadProfiles(ctx, src)}
	in, err := LoadKPIInput(ctx, src)
	if cerr := ctx.Err(); cerr != nil {
		return nil, eris.Wrap(cerr, "dataset: load")
	}
	if err != nil {
		zap.L().Warn("kpi tables unavailable",
			zap.String("source", src.String()),
			zap.Error(err),
		)
		ds.KPIErr = err
		return ds, nil
	}
	ds.KPI = *in
	return ds, nil
}

// LoadKPIInput decodes the five typed tables. Countries, products and
// procurement records must exist and decode; benchmarks and budgets may be
// absent or unreadable, in which case the engine reports the affected metrics
// as unavailable.
func LoadKPIInput(ctx context.Context, src Source) (*model.KPIInput, error) {
	var (
		in  model.KPIInput
		err error
	)
	if in.Countries, err = loadTyped[model.Country](ctx, src, FileCountries, countryColumns, true); err != nil {
		return nil, err
	}
	if in.Products, err = loadTyped[model.Product](ctx, src, FileProducts, productColumns, true); err != nil {
		return nil, err
	}
	if in.Procurement, err = loadTyped[model.ProcurementRecord](ctx, src, FileProcurement, procurementColumns, true); err != nil {
		return nil, err
	}
	if in.Benchmarks, err = loadTyped[model.Benchmark](ctx, src, FileBenchmarks, benchmarkColumns, false); err != nil {
		return nil, err
	}
	if in.Budgets, err = loadTyped[model.Budget](ctx, src, FileBudgets, budgetColumns, false); err != nil {
		return nil, err
	}
	return &in, nil
}

func loadTyped[T any](ctx context.Context, src Source, name string, required []string, mustExist bool) ([]T, error) {
	data, err := src.Open(ctx, name)
	if err != nil {
		if mustExist {
			return nil, err
		}
		zap.L().Warn("optional table unavailable", zap.String("table", name), zap.Error(err))
		return nil, nil
	}
	rows, err := DecodeCSV[T](name, data, required)
	if err != nil && !mustExist {
		zap.L().Warn("optional table unreadable", zap.String("table", name), zap.Error(err))
		return nil, nil
	}
	return rows, err
}

// DecodeCSV decodes a CSV document into a slice of T using the csv struct
// tags. Every column in required must be present in the header.
func DecodeCSV[T any](name string, data []byte, required []string) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(fetcher.DecodeText(data))))
	if errors.Is(err, io.EOF) {
		if len(required) > 0 {
			return nil, &MissingColumnError{Table: name, Column: required[0]}
		}
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read header of %s", name)
	}

	header := make(map[string]bool, len(dec.Header()))
	for _, h := range dec.Header() {
		header[h] = true
	}
	for _, col := range required {
		if !header[col] {
			return nil, &MissingColumnError{Table: name, Column: col}
		}
	}

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "dataset: decode %s", name)
		}
		out = append(out, v)
	}
	return out, nil
}

// LoadProfiles loads the seven profile tables concurrently. A table that is
// missing or does not parse is replaced by an empty table and logged.
func LoadProfiles(ctx context.Context, src Source) map[string]*model.Table {
	var (
		mu     sync.Mutex
		tables = make(map[string]*model.Table, len(model.ProfileTables))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, name := range model.ProfileTables {
		g.Go(func() error {
			t, err := loadTable(gctx, src, name)
			if err != nil {
				zap.L().Warn("profile table degraded to empty",
					zap.String("table", name),
					zap.String("source", src.String()),
					zap.Error(err),
				)
				t = &model.Table{Name: name}
			}
			mu.Lock()
			tables[name] = t
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return tables
}

func loadTable(ctx context.Context, src Source, name string) (*model.Table, error) {
	data, err := src.Open(ctx, name+".csv")
	if err != nil {
		return nil, err
	}
	return ParseTable(name, data)
}

// ParseTable parses a CSV document into a generic table. Short rows are
// padded to the header width.
func ParseTable(name string, data []byte) (*model.Table, error) {
	header, rows, err := fetcher.ReadCSV(data, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", name)
	}
	return newTable(name, header, rows), nil
}

func newTable(name string, header []string, rows [][]string) *model.Table {
	t := &model.Table{Name: name, Columns: header, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
