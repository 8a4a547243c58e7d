package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var elbowFlags struct {
	scenario string
	scope    string
}

var elbowCmd = &cobra.Command{
	Use:   "elbow",
	Short: "Compute the k -> inertia curve of an unclustered unit",
	RunE:  runElbow,
}

func init() {
	f := elbowCmd.Flags()
	f.StringVar(&elbowFlags.scenario, "scenario", "", "scenario name (required)")
	f.StringVar(&elbowFlags.scope, "scope", "", "scope name (required)")

	_ = elbowCmd.MarkFlagRequired("scenario")
	_ = elbowCmd.MarkFlagRequired("scope")
}

func runElbow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.unit(elbowFlags.scenario, elbowFlags.scope)
	if err != nil {
		return err
	}
	records, err := a.pipeline.Elbow(ctx, u)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-4s %s\n", "k", "inertia")
	for _, r := range records {
		fmt.Fprintf(out, "%-4d %.6g\n", r.K, r.Inertia)
	}
	return nil
}
