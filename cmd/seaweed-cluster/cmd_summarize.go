package main

import (
	"github.com/spf13/cobra"
)

var summarizeFlags struct {
	scenario string
	scope    string
	publish  bool
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print or publish the cluster summaries of a clustered unit",
	RunE:  runSummarize,
}

func init() {
	f := summarizeCmd.Flags()
	f.StringVar(&summarizeFlags.scenario, "scenario", "", "scenario name (required)")
	f.StringVar(&summarizeFlags.scope, "scope", "", "scope name (required)")
	f.BoolVar(&summarizeFlags.publish, "publish", false, "write to the configured sinks instead of stdout")

	_ = summarizeCmd.MarkFlagRequired("scenario")
	_ = summarizeCmd.MarkFlagRequired("scope")
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, summarizeFlags.publish)
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.unit(summarizeFlags.scenario, summarizeFlags.scope)
	if err != nil {
		return err
	}
	if summarizeFlags.publish {
		return a.pipeline.Publish(ctx, u)
	}
	summaries, err := a.pipeline.Summaries(ctx, u)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), summaries)
}
