package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the Monte Carlo delay and stock-out simulation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		draws, _ := cmd.Flags().GetInt("draws")
		seed, _ := cmd.Flags().GetUint64("seed")
		delay, _ := cmd.Flags().GetFloat64("delay-threshold")
		stockout, _ := cmd.Flags().GetFloat64("stockout-threshold")
		save, _ := cmd.Flags().GetBool("save")

		if draws == 0 {
			draws = cfg.Simulation.DefaultDraws
		}
		if draws > cfg.Simulation.MaxDraws {
			return &kpi.InvalidArgumentError{Field: "draws", Reason: fmt.Sprintf("exceeds simulation.max_draws (%d)", cfg.Simulation.MaxDraws)}
		}
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Simulation.Seed
		}

		res, err := computeKPIs(ctx, 0)
		if err != nil {
			return eris.Wrap(err, "simulate")
		}
		lead, fulfillment := kpi.SampleColumns(res.Records)
		sim, err := kpi.Simulate(ctx, lead, fulfillment, kpi.SimulationOptions{
			Draws:              draws,
			Seed:               seed,
			DelayThresholdDays: &delay,
			StockoutThreshold:  &stockout,
		})
		if err != nil {
			return eris.Wrap(err, "simulate")
		}

		formatSimulation(cmd.OutOrStdout(), sim)

		if save {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			run := model.NewSimulationRun("cli", sim)
			if err := st.SaveSimulation(ctx, &run); err != nil {
				return eris.Wrap(err, "simulate: save run")
			}
			zap.L().Info("simulation run saved", zap.String("id", run.ID))
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().Int("draws", 0, "number of draws (default from config)")
	simulateCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	simulateCmd.Flags().Float64("delay-threshold", kpi.DefaultDelayThresholdDays, "lead time in days counted as a delay")
	simulateCmd.Flags().Float64("stockout-threshold", kpi.DefaultStockoutThreshold, "fulfillment rate below which a draw is a stock-out")
	simulateCmd.Flags().Bool("save", false, "record the run in the store")
	rootCmd.AddCommand(simulateCmd)
}

// histogramWidth is the widest bar printed by formatSimulation.
const histogramWidth = 40

// formatSimulation writes the probabilities, fitted parameters and a text
// histogram of the lead-time draws.
func formatSimulation(out io.Writer, sim *model.SimulationResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Draws:\t%d (seed %d)\n", sim.Draws, sim.Seed)
	_, _ = fmt.Fprintf(w, "P(lead time > %.0f days):\t%.4f\n", sim.DelayThreshold, sim.ProbDelay)
	_, _ = fmt.Fprintf(w, "P(fulfillment < %.2f):\t%.4f\n", sim.StockoutCutoff, sim.ProbStockout)
	_, _ = fmt.Fprintf(w, "Lead time fit:\tmean %.1f, std %.1f\n", sim.LeadTimeMean, sim.LeadTimeStdDev)
	_, _ = fmt.Fprintf(w, "Fulfillment fit:\tmean %.3f, std %.3f\n", sim.FulfillmentMean, sim.FulfillmentStd)
	_ = w.Flush()

	bins := kpi.Histogram(sim.LeadTimes, 20)
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}
	if peak == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nLead time distribution (days):")
	for _, b := range bins {
		bar := strings.Repeat("#", b.Count*histogramWidth/peak)
		_, _ = fmt.Fprintf(out, "%8.1f | %-*s %d\n", b.Lower, histogramWidth, bar, b.Count)
	}
}
