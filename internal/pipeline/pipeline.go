package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/seaweed-cluster/internal/cluster"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/geojoin"
	"github.com/couchcryptid/seaweed-cluster/internal/observability"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

// ParameterSource produces the raw per-cell tables of a unit and the area grid.
type ParameterSource interface {
	LoadParameter(ctx context.Context, scenario string, scope domain.Scope, p domain.Parameter) (domain.Table, error)
	LoadArea(ctx context.Context) (geojoin.AreaGrid, error)
}

// ArtifactStore persists stage artifacts. Save commits all items at once.
type ArtifactStore interface {
	Has(ctx context.Context, key store.Key) (bool, error)
	Load(ctx context.Context, key store.Key, out any) error
	LoadTable(ctx context.Context, key store.Key) (domain.Table, error)
	Save(ctx context.Context, items []store.Item) error
}

// SummaryLoader writes cluster summaries to an external sink.
type SummaryLoader interface {
	Name() string
	LoadSummaries(ctx context.Context, summaries []domain.ClusterSummary) error
}

// Settings are the run parameters that shape artifacts.
type Settings struct {
	Version         int
	DataDir         string
	Cluster         cluster.Config // K is taken from the scope
	ElbowMinK       int
	ElbowMaxK       int
	UnitParallelism int
	BandQuantiles   []float64

	// TableCacheValues bounds the report read cache in table values
	// (rows x months); 0 disables it. Raw tables are never cached.
	TableCacheValues int
}

// Pipeline drives every (scenario, scope) unit through
// RAW_MISSING -> RAW_COMPUTED -> CLUSTERED.
type Pipeline struct {
	source   ParameterSource
	store    ArtifactStore
	tables   *store.CachedTables
	sinks    []SummaryLoader
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	ready    atomic.Bool

	areaMu sync.Mutex
	area   *geojoin.AreaGrid

	progressMu sync.Mutex
	progress   map[string]State
}

// New creates a Pipeline. Summaries are published to every sink after a unit
// reaches CLUSTERED; sinks may be empty.
func New(src ParameterSource, st ArtifactStore, sinks []SummaryLoader, settings Settings, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if settings.UnitParallelism <= 0 {
		settings.UnitParallelism = 1
	}
	return &Pipeline{
		source:   src,
		store:    st,
		tables:   store.NewCachedTables(st, settings.TableCacheValues),
		sinks:    sinks,
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		progress: make(map[string]State),
	}
}

// CheckReadiness returns nil once at least one unit has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any unit yet")
	}
	return nil
}

// Run processes units concurrently, at most UnitParallelism at a time. A
// failing unit does not stop the others; all failures are returned joined.
func (p *Pipeline) Run(ctx context.Context, units []domain.Unit) error {
	p.logger.Info("pipeline started", "units", len(units), "parallelism", p.settings.UnitParallelism)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	errs := make([]error, len(units))
	var g errgroup.Group
	g.SetLimit(p.settings.UnitParallelism)
	for i, u := range units {
		g.Go(func() error {
			errs[i] = p.process(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		p.logger.Error("pipeline finished with failures", "error", err)
	} else {
		p.logger.Info("pipeline finished")
	}
	return err
}

func (p *Pipeline) process(ctx context.Context, u domain.Unit) error {
	log := p.logger.With("scenario", u.Scenario, "scope", u.Scope.Name)
	start := p.clock.Now()

	state, err := p.RunUnit(ctx, u)
	p.setProgress(u, state)
	if err != nil {
		p.metrics.UnitsProcessed.WithLabelValues("failed").Inc()
		log.Error("unit failed", "state", state, "error", err)
		return fmt.Errorf("unit %s: %w", u, err)
	}
	if state == Clustered && len(p.sinks) > 0 {
		if err := p.Publish(ctx, u); err != nil {
			log.Error("publish summaries failed", "error", err)
			return fmt.Errorf("unit %s: %w", u, err)
		}
	}
	p.ready.Store(true)
	log.Info("unit complete", "state", state, "duration", p.clock.Since(start))
	return nil
}

// Progress returns the state each unit of the current process reached, keyed
// by "scenario/scope".
func (p *Pipeline) Progress() map[string]string {
	p.progressMu.Lock()
	defer p.progressMu.Unlock()
	out := make(map[string]string, len(p.progress))
	for unit, s := range p.progress {
		out[unit] = s.String()
	}
	return out
}

func (p *Pipeline) setProgress(u domain.Unit, s State) {
	p.progressMu.Lock()
	p.progress[u.String()] = s
	p.progressMu.Unlock()
}

// RunUnit advances one unit as far as its scope allows and returns the state
// reached. Stages whose artifacts already exist are skipped.
func (p *Pipeline) RunUnit(ctx context.Context, u domain.Unit) (State, error) {
	if err := p.ensureRaw(ctx, u); err != nil {
		return RawMissing, err
	}
	if !u.Scope.Clustered() {
		p.metrics.UnitsProcessed.WithLabelValues("raw_only").Inc()
		return RawComputed, nil
	}

	done, err := p.complete(ctx, u, store.StageClustered)
	if err != nil {
		return RawComputed, err
	}
	if done {
		p.metrics.UnitsProcessed.WithLabelValues("cached").Inc()
		return Clustered, nil
	}
	if err := p.clusterUnit(ctx, u); err != nil {
		return RawComputed, err
	}
	p.metrics.UnitsProcessed.WithLabelValues("clustered").Inc()
	return Clustered, nil
}

// State reports how far a unit has progressed, based on committed artifacts.
func (p *Pipeline) State(ctx context.Context, u domain.Unit) (State, error) {
	if u.Scope.Clustered() {
		done, err := p.complete(ctx, u, store.StageClustered)
		if err != nil {
			return RawMissing, err
		}
		if done {
			return Clustered, nil
		}
	}
	done, err := p.complete(ctx, u, store.StageRaw)
	if err != nil || !done {
		return RawMissing, err
	}
	return RawComputed, nil
}

// complete reports whether every parameter of u has an artifact at stage.
func (p *Pipeline) complete(ctx context.Context, u domain.Unit, stage store.Stage) (bool, error) {
	for _, param := range domain.Parameters {
		ok, err := p.store.Has(ctx, p.Key(u, param, stage))
		if err != nil {
			return false, fmt.Errorf("check %s %s: %w", stage, param, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (p *Pipeline) areaGrid(ctx context.Context) (geojoin.AreaGrid, error) {
	p.areaMu.Lock()
	defer p.areaMu.Unlock()
	if p.area != nil {
		return *p.area, nil
	}
	g, err := p.source.LoadArea(ctx)
	if err != nil {
		return geojoin.AreaGrid{}, fmt.Errorf("load area grid: %w", err)
	}
	p.area = &g
	return g, nil
}

// cachedTable reads a clustered table through the report cache.
func (p *Pipeline) cachedTable(ctx context.Context, key store.Key) (domain.Table, error) {
	t, err := p.tables.LoadTable(ctx, key)
	p.metrics.TableCacheValues.Set(float64(p.tables.Held()))
	return t, err
}

func (p *Pipeline) lookup(stage store.Stage, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.metrics.CacheLookups.WithLabelValues(string(stage), result).Inc()
}
