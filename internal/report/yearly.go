package report

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// YearlyGrid is the mean growth rate of every cell over one year, in %/day.
type YearlyGrid struct {
	Year   int              `json:"year"`
	Months []int            `json:"months"`
	Keys   []domain.CellKey `json:"keys"`
	Values []float64        `json:"values"`
}

// YearlyMeans averages each cell's trajectory over consecutive twelve-month
// windows starting at the first column, so the first year includes the
// pre-event months. Only complete years are returned. NaN observations make
// the cell's yearly mean NaN.
func YearlyMeans(t domain.Table, optimalGrowthRate float64) ([]YearlyGrid, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("yearly means: %w", err)
	}
	var out []YearlyGrid
	for start, year := 0, 1; start+12 <= len(t.Months); start, year = start+12, year+1 {
		g := YearlyGrid{
			Year:   year,
			Months: append([]int(nil), t.Months[start:start+12]...),
			Keys:   append([]domain.CellKey(nil), t.Keys...),
			Values: make([]float64, t.Len()),
		}
		for i, row := range t.Values {
			g.Values[i] = stat.Mean(row[start:start+12], nil) * optimalGrowthRate
		}
		out = append(out, g)
	}
	return out, nil
}
