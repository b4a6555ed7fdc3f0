// Command marketplace-scraper collects second-hand marketplace listings
// through a chain of fallback backends and merges CSV datasets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "marketplace-scraper",
	Short: "Marketplace listing scraper",
	Long: "Scrapes second-hand marketplace listings with fallback backends, estimates posting dates " +
		"from coarse time filters, and merges CSV datasets into one canonical Date,Item,Price file.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
