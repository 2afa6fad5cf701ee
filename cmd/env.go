package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/auth"
	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/store"
)

// dataSource builds the configured table source; nil means the demo dataset.
func dataSource() dataset.Source {
	src := dataset.NewSource(cfg.Data.Source, cfg.Data.Timeout())
	if src == nil {
		zap.L().Info("no data source configured, using demo dataset")
	}
	return src
}

// riskPolicy loads the configured policy file, or the default policy.
func riskPolicy() (kpi.RiskPolicy, error) {
	if cfg.Risk.PolicyFile == "" {
		return kpi.DefaultRiskPolicy(), nil
	}
	p, err := kpi.LoadPolicy(cfg.Risk.PolicyFile)
	if err != nil {
		return kpi.RiskPolicy{}, eris.Wrapf(err, "load risk policy %s", cfg.Risk.PolicyFile)
	}
	return p, nil
}

func credentials() auth.Credentials {
	if len(cfg.Auth.Credentials) == 0 {
		return auth.DefaultCredentials()
	}
	return auth.Credentials(cfg.Auth.Credentials)
}

// openStore opens and migrates the configured snapshot store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// computeKPIs loads the KPI tables and runs the engine for year.
func computeKPIs(ctx context.Context, year int) (*kpi.Result, error) {
	policy, err := riskPolicy()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(ctx, dataSource())
	if err != nil {
		return nil, err
	}
	in, err := ds.KPITables()
	if err != nil {
		return nil, err
	}
	res, err := kpi.Compute(in, kpi.Options{Year: year, Policy: &policy})
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		zap.L().Warn("kpi warning", zap.Int("country_id", w.CountryID), zap.String("message", w.Message))
	}
	return res, nil
}
