package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "htm-dashboard",
	Short: "HTM procurement and PFM dashboard",
	Long:  "Computes procurement and PFM indicators, risk scores and Monte Carlo delay/stock-out estimates for HTM commodities, and serves them with country profiles over HTTP.",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	// Assigned here rather than in the literal: the hook calls commandMode,
	// which refers to rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		switch mode := commandMode(cmd); mode {
		case "serve", "kpi", "simulate", "export", "snapshots":
			return cfg.Validate(mode)
		}
		return nil
	}
}

// commandMode returns the name of the top-level command cmd belongs to.
func commandMode(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent() != rootCmd {
		cmd = cmd.Parent()
	}
	return cmd.Name()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
