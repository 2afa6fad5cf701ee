package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/export"
	"github.com/sells-group/htm-dashboard/internal/profile"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write KPI tables and country profiles to files",
}

var exportKPIsCmd = &cobra.Command{
	Use:   "kpis <file.csv|file.xlsx>",
	Short: "Export the KPI table as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		res, err := computeKPIs(cmd.Context(), year)
		if err != nil {
			return eris.Wrap(err, "export kpis")
		}
		return writeFile(args[0], func(f *os.File) error {
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".csv":
				return export.WriteKPICSV(f, res.Rows)
			case ".xlsx":
				return export.WriteXLSX(f, "KPIs", export.KPITable(res.Rows))
			default:
				return eris.Errorf("export kpis: unsupported extension %q", filepath.Ext(args[0]))
			}
		})
	},
}

var exportProfileCmd = &cobra.Command{
	Use:   "profile <country> <file.docx|file.pdf>",
	Short: "Export a country profile as DOCX or PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(cmd.Context(), dataSource())
		if err != nil {
			return eris.Wrap(err, "export profile")
		}
		p, err := profile.CountryProfile(ds, args[0])
		if err != nil {
			return eris.Wrapf(err, "export profile (known: %s)", strings.Join(profile.Countries(ds), ", "))
		}
		doc := export.NewProfileDocument(p)
		return writeFile(args[1], func(f *os.File) error {
			switch strings.ToLower(filepath.Ext(args[1])) {
			case ".docx":
				return export.WriteDOCX(f, doc)
			case ".pdf":
				return export.WritePDF(f, doc)
			default:
				return eris.Errorf("export profile: unsupported extension %q", filepath.Ext(args[1]))
			}
		})
	},
}

var exportTableCmd = &cobra.Command{
	Use:   "table <name> <file.csv|file.xlsx>",
	Short: "Export a profile table as CSV or XLSX",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cols, _ := cmd.Flags().GetStringSlice("cols")
		ds, err := dataset.Load(cmd.Context(), dataSource())
		if err != nil {
			return eris.Wrap(err, "export table")
		}
		t, err := profile.SelectColumns(ds.Profile(args[0]), cols)
		if err != nil {
			return eris.Wrap(err, "export table")
		}
		return writeFile(args[1], func(f *os.File) error {
			switch strings.ToLower(filepath.Ext(args[1])) {
			case ".csv":
				return export.WriteCSV(f, t)
			case ".xlsx":
				return export.WriteXLSX(f, args[0], t)
			default:
				return eris.Errorf("export table: unsupported extension %q", filepath.Ext(args[1]))
			}
		})
	},
}

func init() {
	exportKPIsCmd.Flags().Int("year", 0, "budget year (default: latest per country)")
	exportTableCmd.Flags().StringSlice("cols", nil, "columns to keep (default: all)")

	exportCmd.AddCommand(exportKPIsCmd)
	exportCmd.AddCommand(exportProfileCmd)
	exportCmd.AddCommand(exportTableCmd)
	rootCmd.AddCommand(exportCmd)
}

// writeFile creates path and hands it to write. A failed write removes the
// partial file.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()       //nolint:errcheck
		os.Remove(path) //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	zap.L().Info("exported", zap.String("file", path))
	return nil
}
