package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/seaweed-cluster/internal/report"
)

var compareFlags struct {
	scope      string
	scenarios  []string
	latMin     float64
	latMax     float64
	subfactors bool
	yearly     bool
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the stored growth rate of several scenarios",
	Long: "compare prints the area-weighted monthly median growth of each scenario\n" +
		"within a latitude band, and its median per year after the event.\n" +
		"--subfactors and --yearly add per-scenario nutrient and yearly reports.",
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.scope, "scope", "global", "scope name")
	f.StringSliceVar(&compareFlags.scenarios, "scenarios", nil, "scenarios to compare (default: all configured)")
	f.Float64Var(&compareFlags.latMin, "lat-min", -45, "exclusive southern latitude bound")
	f.Float64Var(&compareFlags.latMax, "lat-max", 45, "exclusive northern latitude bound")
	f.BoolVar(&compareFlags.subfactors, "subfactors", false, "include nutrient subfactor medians per clustered scenario")
	f.BoolVar(&compareFlags.yearly, "yearly", false, "include per-cell yearly mean growth per clustered scenario")
}

type scenarioExtras struct {
	Scenario   string                   `json:"scenario"`
	Subfactors []report.SubfactorMedian `json:"subfactors,omitempty"`
	Yearly     []report.YearlyGrid      `json:"yearly,omitempty"`
}

type compareOutput struct {
	Scope       string                      `json:"scope"`
	Comparisons []report.ScenarioComparison `json:"comparisons"`
	Scenarios   []scenarioExtras            `json:"scenarios,omitempty"`
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	scenarios := compareFlags.scenarios
	if len(scenarios) == 0 {
		scenarios = a.cfg.Scenarios
	}
	u, err := a.unit(scenarios[0], compareFlags.scope)
	if err != nil {
		return err
	}

	opts := report.DefaultCompareOptions(a.cfg.PreEventMonths, a.cfg.OptimalGrowthRate)
	opts.LatMin, opts.LatMax = compareFlags.latMin, compareFlags.latMax
	comparisons, err := a.pipeline.Compare(ctx, scenarios, u.Scope, opts)
	if err != nil {
		return err
	}
	out := compareOutput{Scope: u.Scope.Name, Comparisons: comparisons}

	if compareFlags.subfactors || compareFlags.yearly {
		for _, sc := range scenarios {
			u.Scenario = sc
			extra := scenarioExtras{Scenario: sc}
			if compareFlags.subfactors {
				if extra.Subfactors, err = a.pipeline.NutrientSubfactors(ctx, u); err != nil {
					return err
				}
			}
			if compareFlags.yearly {
				if extra.Yearly, err = a.pipeline.YearlyMeans(ctx, u, a.cfg.OptimalGrowthRate); err != nil {
					return err
				}
			}
			out.Scenarios = append(out.Scenarios, extra)
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
