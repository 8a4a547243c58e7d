// Command seaweed-cluster computes and clusters seaweed growth trajectories
// for every configured scenario and scope, and reports on the clusters.
//
// Usage:
//
//	seaweed-cluster run
//	seaweed-cluster elbow --scenario=150tg --scope=global
//	seaweed-cluster summarize --scenario=150tg --scope=global [--publish]
//	seaweed-cluster compare --scope=global [--subfactors] [--yearly]
//
// Configuration is read from the environment (and an optional .env file).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "seaweed-cluster",
	Short: "Cluster seaweed growth trajectories per scenario and scope",
	Long: "seaweed-cluster stores the per-cell parameter tables of each nuclear-winter\n" +
		"scenario, clusters the growth-rate trajectories with DTW k-means and\n" +
		"summarizes every cluster.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(elbowCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
