package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/seaweed-cluster/internal/cluster"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/geojoin"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

// ensureRaw persists every parameter table of u that is not yet stored.
// Each parameter is committed on its own.
func (p *Pipeline) ensureRaw(ctx context.Context, u domain.Unit) error {
	start := p.clock.Now()
	written := 0
	for _, param := range domain.Parameters {
		key := p.Key(u, param, store.StageRaw)
		ok, err := p.store.Has(ctx, key)
		if err != nil {
			return fmt.Errorf("check raw %s: %w", param, err)
		}
		p.lookup(store.StageRaw, ok)
		if ok {
			continue
		}

		t, err := p.source.LoadParameter(ctx, u.Scenario, u.Scope, param)
		if err != nil {
			return fmt.Errorf("load raw %s: %w", param, err)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("raw %s: %w", param, err)
		}
		if err := p.store.Save(ctx, []store.Item{{Key: key, Value: t, Rows: t.Len()}}); err != nil {
			return fmt.Errorf("save raw %s: %w", param, err)
		}
		p.metrics.ArtifactsWritten.WithLabelValues(string(store.StageRaw)).Inc()
		written++
	}
	if written > 0 {
		p.metrics.StageDuration.WithLabelValues(string(store.StageRaw)).Observe(p.clock.Since(start).Seconds())
		p.logger.Info("raw tables stored", "scenario", u.Scenario, "scope", u.Scope.Name, "parameters", written)
	}
	return nil
}

// weightedRaw loads a stored raw table and attaches cell areas. Raw tables
// are read once per stage, so they bypass the report cache.
func (p *Pipeline) weightedRaw(ctx context.Context, u domain.Unit, param domain.Parameter) (domain.Table, error) {
	grid, err := p.areaGrid(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	raw, err := p.store.LoadTable(ctx, p.Key(u, param, store.StageRaw))
	if err != nil {
		return domain.Table{}, err
	}
	t, dropped := geojoin.AttachArea(raw, grid)
	p.metrics.JoinDroppedRows.Add(float64(dropped))
	if dropped > 0 {
		p.logger.Debug("cells without area dropped", "scenario", u.Scenario, "scope", u.Scope.Name,
			"parameter", param, "dropped", dropped, "kept", t.Len())
	}
	return t, nil
}

// clusterUnit clusters the growth-rate trajectories of u and labels every
// parameter table with the result. Nothing is written unless every table is
// complete and covers exactly the clustered cells.
func (p *Pipeline) clusterUnit(ctx context.Context, u domain.Unit) error {
	start := p.clock.Now()

	tables := make([]domain.Table, len(domain.Parameters))
	var growth domain.Table
	for i, param := range domain.Parameters {
		t, err := p.weightedRaw(ctx, u, param)
		if err != nil {
			return err
		}
		if err := t.RequireComplete(); err != nil {
			return err
		}
		tables[i] = t
		if param == domain.GrowthRate {
			growth = t
		}
	}

	cfg := p.settings.Cluster
	cfg.K = u.Scope.Clusters
	res, err := cluster.NewEngine(cfg).Fit(ctx, cluster.Normalize(growth.Values))
	if err != nil {
		return fmt.Errorf("cluster %s: %w", domain.GrowthRate, err)
	}
	p.metrics.ClusteringIterations.Observe(float64(res.Iterations))
	p.metrics.ClusteringInertia.WithLabelValues(u.Scenario, u.Scope.Name).Set(res.Inertia)
	p.metrics.DistanceEvaluations.Add(float64(res.DistanceEvaluations))

	labels := make(map[domain.CellKey]int, growth.Len())
	for i, k := range growth.Keys {
		labels[k] = res.Labels[i]
	}
	items := make([]store.Item, len(tables))
	for i, t := range tables {
		labelled, err := Broadcast(t, labels)
		if err != nil {
			return err
		}
		items[i] = store.Item{Key: p.Key(u, t.Parameter, store.StageClustered), Value: labelled, Rows: labelled.Len()}
	}
	if err := p.store.Save(ctx, items); err != nil {
		return fmt.Errorf("save clustered tables: %w", err)
	}
	p.metrics.ArtifactsWritten.WithLabelValues(string(store.StageClustered)).Add(float64(len(items)))
	p.metrics.StageDuration.WithLabelValues(string(store.StageClustered)).Observe(p.clock.Since(start).Seconds())

	p.logger.Info("unit clustered",
		"scenario", u.Scenario,
		"scope", u.Scope.Name,
		"clusters", cfg.K,
		"cells", growth.Len(),
		"inertia", res.Inertia,
		"iterations", res.Iterations,
	)
	return nil
}

// Broadcast returns a copy of t labelled by cell key. t must hold exactly the
// cells present in labels.
func Broadcast(t domain.Table, labels map[domain.CellKey]int) (domain.Table, error) {
	if t.Len() != len(labels) {
		return domain.Table{}, fmt.Errorf("%w: %s has %d cells, clustering has %d",
			domain.ErrLabelMismatch, t.Parameter, t.Len(), len(labels))
	}
	out := t.Select(allRows(t.Len()))
	out.Labels = make([]int, t.Len())
	for i, k := range t.Keys {
		l, ok := labels[k]
		if !ok {
			return domain.Table{}, fmt.Errorf("%w: %s cell %s was not clustered", domain.ErrLabelMismatch, t.Parameter, k)
		}
		out.Labels[i] = l
	}
	return out, nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// Elbow computes the k -> inertia curve of a unit's growth-rate trajectories
// and stores it as an artifact and as a CSV for plotting. It refuses units
// that are already clustered, and returns the stored curve when one exists.
func (p *Pipeline) Elbow(ctx context.Context, u domain.Unit) ([]domain.InertiaRecord, error) {
	if !u.Scope.Clustered() {
		return nil, fmt.Errorf("scope %s is not clustered", u.Scope.Name)
	}
	done, err := p.complete(ctx, u, store.StageClustered)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, fmt.Errorf("elbow %s: %w", u, domain.ErrAlreadyClustered)
	}
	if err := p.ensureRaw(ctx, u); err != nil {
		return nil, err
	}

	key := p.Key(u, store.ElbowParameter, store.StageElbow)
	ok, err := p.store.Has(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check elbow: %w", err)
	}
	p.lookup(store.StageElbow, ok)
	if ok {
		var records []domain.InertiaRecord
		if err := p.store.Load(ctx, key, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	start := p.clock.Now()
	growth, err := p.weightedRaw(ctx, u, domain.GrowthRate)
	if err != nil {
		return nil, err
	}
	if err := growth.RequireComplete(); err != nil {
		return nil, err
	}
	points, err := cluster.Elbow(ctx, p.settings.Cluster, cluster.Normalize(growth.Values), p.settings.ElbowMinK, p.settings.ElbowMaxK)
	if err != nil {
		return nil, fmt.Errorf("elbow %s: %w", u, err)
	}
	var evals int64
	for _, pt := range points {
		evals += pt.Result.DistanceEvaluations
	}
	p.metrics.DistanceEvaluations.Add(float64(evals))
	records := cluster.Records(points)

	if err := p.store.Save(ctx, []store.Item{{Key: key, Value: records, Rows: len(records)}}); err != nil {
		return nil, fmt.Errorf("save elbow: %w", err)
	}
	p.metrics.ArtifactsWritten.WithLabelValues(string(store.StageElbow)).Inc()
	path := store.InertiaCSVPath(p.settings.DataDir, u.Scenario, u.Scope.Name)
	if err := store.WriteInertiaCSV(path, records); err != nil {
		return nil, err
	}
	p.metrics.StageDuration.WithLabelValues(string(store.StageElbow)).Observe(p.clock.Since(start).Seconds())
	p.logger.Info("elbow curve stored", "scenario", u.Scenario, "scope", u.Scope.Name, "path", path, "points", len(records))
	return records, nil
}
