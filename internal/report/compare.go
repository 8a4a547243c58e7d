package report

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/wstats"
)

// CompareOptions controls the cross-scenario growth comparison.
type CompareOptions struct {
	// Cells are kept when LatMin < lat < LatMax.
	LatMin, LatMax    float64
	PreEventMonths    int
	OptimalGrowthRate float64
}

// DefaultCompareOptions restricts the comparison to the band between 45°S
// and 45°N, where seaweed farming is plausible.
func DefaultCompareOptions(preEventMonths int, optimalGrowthRate float64) CompareOptions {
	return CompareOptions{LatMin: -45, LatMax: 45, PreEventMonths: preEventMonths, OptimalGrowthRate: optimalGrowthRate}
}

// ScenarioTable is an area-weighted growth-rate table of one scenario.
type ScenarioTable struct {
	Scenario string
	Table    domain.Table
}

// ScenarioComparison is the growth trajectory of one scenario in %/day.
// Monthly starts at the event month; Yearly[y] is the plain median of the
// months of year y+1.
type ScenarioComparison struct {
	Scenario string    `json:"scenario"`
	Months   []int     `json:"months"`
	Monthly  []float64 `json:"monthly"`
	Yearly   []float64 `json:"yearly"`
}

// CompareScenarios computes the area-weighted median growth rate per month
// for each scenario, drops the pre-event months, scales by the optimal growth
// rate and reduces the result to one median per year. A trailing partial
// year is reduced over the months it has.
func CompareScenarios(inputs []ScenarioTable, opts CompareOptions) ([]ScenarioComparison, error) {
	out := make([]ScenarioComparison, 0, len(inputs))
	for _, in := range inputs {
		t := in.Table.Filter(func(k domain.CellKey) bool {
			return !k.IsRegion() && k.Lat > opts.LatMin && k.Lat < opts.LatMax
		})
		medians, err := wstats.MedianByMonth(t)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", in.Scenario, err)
		}
		if opts.PreEventMonths > len(medians) {
			return nil, fmt.Errorf("compare %s: %d months, %d pre-event", in.Scenario, len(medians), opts.PreEventMonths)
		}

		c := ScenarioComparison{
			Scenario: in.Scenario,
			Months:   append([]int(nil), t.Months[opts.PreEventMonths:]...),
			Monthly:  make([]float64, 0, len(medians)-opts.PreEventMonths),
		}
		for _, m := range medians[opts.PreEventMonths:] {
			c.Monthly = append(c.Monthly, m*opts.OptimalGrowthRate)
		}
		for start := 0; start < len(c.Monthly); start += 12 {
			end := min(start+12, len(c.Monthly))
			y, err := stats.Median(c.Monthly[start:end])
			if err != nil {
				return nil, fmt.Errorf("compare %s year %d: %w", in.Scenario, start/12+1, err)
			}
			c.Yearly = append(c.Yearly, y)
		}
		out = append(out, c)
	}
	return out, nil
}

// SubfactorMedian is the area-weighted median per month of one nutrient
// subfactor.
type SubfactorMedian struct {
	Parameter domain.Parameter `json:"parameter"`
	Months    []int            `json:"months"`
	Median    []float64        `json:"median"`
}

// NutrientSubfactors computes the weighted monthly median of each nitrate,
// ammonium and phosphate table, in the order given. Other parameters are
// rejected.
func NutrientSubfactors(tables []domain.Table) ([]SubfactorMedian, error) {
	out := make([]SubfactorMedian, 0, len(tables))
	for _, t := range tables {
		if !isSubfactor(t.Parameter) {
			return nil, fmt.Errorf("%s is not a nutrient subfactor", t.Parameter)
		}
		m, err := wstats.MedianByMonth(t)
		if err != nil {
			return nil, err
		}
		out = append(out, SubfactorMedian{Parameter: t.Parameter, Months: t.Months, Median: m})
	}
	return out, nil
}

func isSubfactor(p domain.Parameter) bool {
	for _, s := range domain.NutrientSubfactors {
		if s == p {
			return true
		}
	}
	return false
}
