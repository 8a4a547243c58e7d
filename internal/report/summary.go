// Package report derives the area-weighted statistics that are published or
// plotted from clustered and area-joined tables.
package report

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/wstats"
)

// BandQuantiles are the lower quantiles of the bands drawn around each
// cluster median. Each q is paired with 1-q.
var BandQuantiles = []float64{0.1, 0.2, 0.3, 0.4}

// ClusterSummaries summarizes every cluster of a clustered table with area
// weights attached. Clusters are returned in label order.
func ClusterSummaries(scenario, scope string, t domain.Table, quantiles []float64) ([]domain.ClusterSummary, error) {
	if t.Labels == nil {
		return nil, fmt.Errorf("summarize %s: table has no cluster labels", t.Parameter)
	}
	if t.Weights == nil {
		return nil, fmt.Errorf("summarize %s: table has no area weights", t.Parameter)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("summarize %s: %w", t.Parameter, err)
	}
	total := floats.Sum(t.Weights)

	var out []domain.ClusterSummary
	for label, rows := range t.Clusters() {
		if len(rows) == 0 {
			continue
		}
		sub := t.Select(rows)
		s := domain.ClusterSummary{
			Scenario:  scenario,
			Scope:     scope,
			Parameter: t.Parameter,
			Cluster:   domain.DisplayLabel(label),
			Cells:     len(rows),
			Area:      floats.Sum(sub.Weights),
			Months:    sub.Months,
		}
		if total > 0 {
			s.AreaShare = s.Area / total
		}

		var err error
		if s.Median, err = wstats.MedianByMonth(sub); err != nil {
			return nil, fmt.Errorf("cluster %d median: %w", s.Cluster, err)
		}
		for _, q := range quantiles {
			b := domain.Band{Q: q}
			if b.Lower, err = wstats.QuantileByMonth(sub, q); err != nil {
				return nil, fmt.Errorf("cluster %d band %g: %w", s.Cluster, q, err)
			}
			if b.Upper, err = wstats.QuantileByMonth(sub, 1-q); err != nil {
				return nil, fmt.Errorf("cluster %d band %g: %w", s.Cluster, 1-q, err)
			}
			s.Bands = append(s.Bands, b)
		}
		out = append(out, s)
	}
	return out, nil
}
