package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/htm-dashboard/internal/model"
	"github.com/sells-group/htm-dashboard/internal/store"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect saved KPI snapshots and simulation runs",
}

// -- snapshots save --

var snapshotsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Compute KPIs and save them as a snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		year, _ := cmd.Flags().GetInt("year")
		user, _ := cmd.Flags().GetString("user")

		res, err := computeKPIs(ctx, year)
		if err != nil {
			return eris.Wrap(err, "snapshots save")
		}
		policy, err := json.Marshal(res.Policy)
		if err != nil {
			return eris.Wrap(err, "snapshots save: marshal policy")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap := &model.Snapshot{
			CreatedBy: user,
			Source:    sourceName(),
			Year:      year,
			Policy:    policy,
			Rows:      res.Rows,
		}
		for _, w := range res.Warnings {
			snap.Warnings = append(snap.Warnings, w.Message)
		}
		if err := st.SaveSnapshot(ctx, snap); err != nil {
			return eris.Wrap(err, "snapshots save")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), snap.ID)
		return nil
	},
}

// -- snapshots list --

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List KPI snapshots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		user, _ := cmd.Flags().GetString("user")
		year, _ := cmd.Flags().GetInt("year")
		limit, _ := cmd.Flags().GetInt("limit")

		snaps, err := st.ListSnapshots(ctx, store.SnapshotFilter{
			CreatedBy: user,
			Year:      year,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "snapshots list")
		}

		if len(snaps) == 0 {
			fmt.Fprintln(os.Stderr, "No snapshots found.")
			return nil
		}

		formatSnapshotList(cmd.OutOrStdout(), snaps)
		return nil
	},
}

// -- snapshots show --

var snapshotsShowCmd = &cobra.Command{
	Use:   "show <snapshot-id>",
	Short: "Show a snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.GetSnapshot(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "snapshots show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

// -- snapshots simulations --

var snapshotsSimulationsCmd = &cobra.Command{
	Use:   "simulations",
	Short: "List recorded simulation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListSimulations(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "snapshots simulations")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No simulation runs found.")
			return nil
		}
		formatSimulationList(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	snapshotsSaveCmd.Flags().Int("year", 0, "budget year (default: latest per country)")
	snapshotsSaveCmd.Flags().String("user", "cli", "name recorded as the snapshot author")

	snapshotsListCmd.Flags().String("user", "", "filter by author")
	snapshotsListCmd.Flags().Int("year", 0, "filter by budget year")
	snapshotsListCmd.Flags().Int("limit", 50, "max number of snapshots to display")

	snapshotsSimulationsCmd.Flags().Int("limit", 50, "max number of runs to display")

	snapshotsCmd.AddCommand(snapshotsSaveCmd)
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsSimulationsCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func sourceName() string {
	if cfg.Data.Source == "" {
		return "demo"
	}
	return cfg.Data.Source
}

// formatSnapshotList writes a tabular list of snapshots to w.
func formatSnapshotList(out io.Writer, snaps []model.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED_BY\tSOURCE\tYEAR\tROWS\tWARNINGS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----------\t------\t----\t----\t--------\t-------")

	for _, s := range snaps {
		year := "latest"
		if s.Year > 0 {
			year = fmt.Sprint(s.Year)
		}
		source := s.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(s.ID),
			s.CreatedBy,
			source,
			year,
			len(s.Rows),
			len(s.Warnings),
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatSimulationList writes a tabular list of simulation runs to w.
func formatSimulationList(out io.Writer, runs []model.SimulationRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED_BY\tDRAWS\tSEED\tP_DELAY\tP_STOCKOUT\tCREATED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%.4f\t%s\n",
			truncateID(r.ID),
			r.CreatedBy,
			r.Draws,
			r.Seed,
			r.ProbDelay,
			r.ProbStockout,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
