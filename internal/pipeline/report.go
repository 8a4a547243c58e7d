package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/report"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

// Summaries computes the per-cluster summaries of every main factor and the
// growth rate of a clustered unit.
func (p *Pipeline) Summaries(ctx context.Context, u domain.Unit) ([]domain.ClusterSummary, error) {
	start := p.clock.Now()
	quantiles := p.settings.BandQuantiles
	if quantiles == nil {
		quantiles = report.BandQuantiles
	}
	var out []domain.ClusterSummary
	for _, param := range domain.MainFactors {
		t, err := p.cachedTable(ctx, p.Key(u, param, store.StageClustered))
		if err != nil {
			return nil, err
		}
		s, err := report.ClusterSummaries(u.Scenario, u.Scope.Name, t, quantiles)
		if err != nil {
			return nil, fmt.Errorf("unit %s: %w", u, err)
		}
		out = append(out, s...)
	}
	p.metrics.StageDuration.WithLabelValues("summarize").Observe(p.clock.Since(start).Seconds())
	return out, nil
}

// Publish writes the summaries of a clustered unit to every sink. A failing
// sink does not keep the others from being written.
func (p *Pipeline) Publish(ctx context.Context, u domain.Unit) error {
	summaries, err := p.Summaries(ctx, u)
	if err != nil {
		return err
	}
	var errs []error
	for _, sink := range p.sinks {
		if err := sink.LoadSummaries(ctx, summaries); err != nil {
			p.metrics.SummaryPublishErr.WithLabelValues(sink.Name()).Inc()
			errs = append(errs, fmt.Errorf("publish to %s: %w", sink.Name(), err))
			continue
		}
		p.metrics.SummaryPublished.WithLabelValues(sink.Name()).Add(float64(len(summaries)))
	}
	if len(errs) == 0 {
		p.logger.Info("summaries published", "scenario", u.Scenario, "scope", u.Scope.Name,
			"summaries", len(summaries), "sinks", len(p.sinks))
	}
	return errors.Join(errs...)
}

// Compare runs the cross-scenario growth comparison on the stored raw
// growth-rate tables of one scope.
func (p *Pipeline) Compare(ctx context.Context, scenarios []string, scope domain.Scope, opts report.CompareOptions) ([]report.ScenarioComparison, error) {
	inputs := make([]report.ScenarioTable, 0, len(scenarios))
	for _, sc := range scenarios {
		t, err := p.weightedRaw(ctx, domain.Unit{Scenario: sc, Scope: scope}, domain.GrowthRate)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", sc, err)
		}
		inputs = append(inputs, report.ScenarioTable{Scenario: sc, Table: t})
	}
	return report.CompareScenarios(inputs, opts)
}

// NutrientSubfactors compares the nitrate, ammonium and phosphate subfactors
// of a clustered unit.
func (p *Pipeline) NutrientSubfactors(ctx context.Context, u domain.Unit) ([]report.SubfactorMedian, error) {
	tables := make([]domain.Table, 0, len(domain.NutrientSubfactors))
	for _, param := range domain.NutrientSubfactors {
		t, err := p.cachedTable(ctx, p.Key(u, param, store.StageClustered))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return report.NutrientSubfactors(tables)
}

// YearlyMeans averages the clustered growth rate of a unit per ocean cell and
// year.
func (p *Pipeline) YearlyMeans(ctx context.Context, u domain.Unit, optimalGrowthRate float64) ([]report.YearlyGrid, error) {
	t, err := p.cachedTable(ctx, p.Key(u, domain.GrowthRate, store.StageClustered))
	if err != nil {
		return nil, err
	}
	return report.YearlyMeans(t, optimalGrowthRate)
}
