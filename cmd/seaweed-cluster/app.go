package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/seaweed-cluster/internal/adapter/csvsource"
	"github.com/couchcryptid/seaweed-cluster/internal/adapter/influx"
	kafkaadapter "github.com/couchcryptid/seaweed-cluster/internal/adapter/kafka"
	"github.com/couchcryptid/seaweed-cluster/internal/cluster"
	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/observability"
	"github.com/couchcryptid/seaweed-cluster/internal/pipeline"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
	closers  []func() error
}

// newApp loads configuration and builds the pipeline. Sinks are only attached
// when withSinks is set; their absence in config disables them individually.
func newApp(ctx context.Context, withSinks bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	if err := os.MkdirAll(filepath.Dir(cfg.ManifestPath), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	clock := clockwork.NewRealClock()
	manifest, err := store.OpenManifest(ctx, cfg.ManifestPath, clock, observability.Component(logger, "manifest"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, manifest.Close)

	var sinks []pipeline.SummaryLoader
	if withSinks {
		sinks = a.sinks()
	}

	src := csvsource.New(cfg.RawDir, cfg.AreaFile, csvsource.AreaColumns{
		Lat:  cfg.AreaLatColumn,
		Lon:  cfg.AreaLonColumn,
		Area: cfg.AreaColumn,
	}, observability.Component(logger, "csvsource"))

	a.pipeline = pipeline.New(src, store.New(cfg.DataDir, manifest, observability.Component(logger, "store")), sinks,
		pipeline.Settings{
			Version: cfg.PipelineVersion,
			DataDir: cfg.DataDir,
			Cluster: cluster.Config{
				Seed:              cfg.ClusterSeed,
				MaxIter:           cfg.ClusterMaxIter,
				Tol:               cfg.ClusterTol,
				BarycenterMaxIter: cfg.BarycenterMaxIter,
				Window:            cfg.ClusterWindow,
				Workers:           cfg.ClusterWorkers,
			},
			ElbowMinK:        cfg.ElbowMinK,
			ElbowMaxK:        cfg.ElbowMaxK,
			UnitParallelism:  cfg.UnitParallelism,
			TableCacheValues: cfg.TableCacheValues,
		},
		observability.Component(logger, "pipeline"), a.metrics, clock)
	return a, nil
}

func (a *app) sinks() []pipeline.SummaryLoader {
	var sinks []pipeline.SummaryLoader
	if len(a.cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(a.cfg, observability.Component(a.logger, "kafka"))
		sinks = append(sinks, w)
		a.closers = append(a.closers, w.Close)
		a.logger.Info("kafka sink enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaSummaryTopic)
	}
	if a.cfg.InfluxURL != "" {
		w := influx.NewWriter(a.cfg, observability.Component(a.logger, "influxdb"))
		sinks = append(sinks, w)
		a.closers = append(a.closers, func() error { w.Close(); return nil })
		a.logger.Info("influxdb sink enabled", "url", a.cfg.InfluxURL, "bucket", a.cfg.InfluxBucket)
	}
	if len(sinks) == 0 {
		a.logger.Info("no summary sinks configured")
	}
	return sinks
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
}

func (a *app) unit(scenario, scopeName string) (domain.Unit, error) {
	scope, err := domain.FindScope(a.cfg.Scopes, scopeName)
	if err != nil {
		return domain.Unit{}, err
	}
	return domain.Unit{Scenario: scenario, Scope: scope}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
