package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/relief-analytics/vulnassess-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vulnassess",
	Short: "Administrative-area vulnerability assessment engine",
	Long:  "Aligns tabular datasets to canonical administrative boundaries, scores them on a discrete scale, and rolls scores up a pillar/theme framework.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
