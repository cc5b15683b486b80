// Package main provides the bcaengine CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bcaengine",
		Short: "Benefit-cost analysis for fleet regulation scenarios",
		Long: `bcaengine values the emission, energy-security and fuel effects of fleet
model scenarios, discounts them at the social discount rates, and reports
present and annualized net benefits against a baseline scenario.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: .bcaengine/config.yaml in this or a parent directory)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		newRunCmd(),
		newDiscountCmd(),
		newFactorsCmd(),
		newCombineCmd(),
		newRunsCmd(),
		newServeCmd(),
	)
	return rootCmd
}
