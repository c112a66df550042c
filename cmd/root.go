package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "agri-advisor",
	Short: "Agricultural advisory engine for smallholder farmers",
	Long:  "Combines live weather and soil readings with a farmer's question, runs deterministic alert and soil rules, and generates grounded advice through a provider fallback chain.",
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
