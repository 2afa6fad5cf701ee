package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/htm-dashboard/internal/export"
	"github.com/sells-group/htm-dashboard/internal/model"
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Compute per-country KPIs and risk scores",
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, _ := cmd.Flags().GetInt("year")
		format, _ := cmd.Flags().GetString("format")

		res, err := computeKPIs(cmd.Context(), year)
		if err != nil {
			return eris.Wrap(err, "kpi")
		}

		out := cmd.OutOrStdout()
		switch format {
		case "table":
			formatKPITable(out, res.Rows)
		case "csv":
			return export.WriteKPICSV(out, res.Rows)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		default:
			return eris.Errorf("kpi: unknown format %q (table, csv, json)", format)
		}
		return nil
	},
}

func init() {
	kpiCmd.Flags().Int("year", 0, "budget year (default: latest per country)")
	kpiCmd.Flags().String("format", "table", "output format: table, csv, json")
	rootCmd.AddCommand(kpiCmd)
}

// formatKPITable writes KPI rows as an aligned table. Unavailable metrics
// print as "-".
func formatKPITable(out io.Writer, rows []model.KPIRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ISO3\tCOUNTRY\tRECORDS\tLEAD_DAYS\tPAY_DELAY\tFULFILL\tPRICE_VAR%\tBUDGET_EXEC\tRISK")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%.3f\n",
			r.ISO3,
			r.Name,
			r.Records,
			optFloat(r.LeadTimeDays, 1),
			optFloat(r.PaymentDelayDays, 1),
			optFloat(r.FulfillmentRate, 3),
			optFloat(r.PriceVariancePct, 1),
			optFloat(r.BudgetExecutionRate, 3),
			r.RiskScore,
		)
	}
	_ = w.Flush()
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}
