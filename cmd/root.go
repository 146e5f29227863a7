package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "greenroom",
	Short: "Greenroom - resource management for multi-reader script coverage",
	Long: `Greenroom coordinates a panel of LLM reader agents over script drafts:
rate-limited admission to the underlying providers, bounded prompt
assembly, and durable per-reader memory across revisions.`,
}

var configPath string

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a greenroom.yaml configuration file")
}
