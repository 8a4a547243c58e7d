//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/seaweed-cluster/internal/adapter/csvsource"
	"github.com/couchcryptid/seaweed-cluster/internal/adapter/kafka"
	"github.com/couchcryptid/seaweed-cluster/internal/cluster"
	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
	"github.com/couchcryptid/seaweed-cluster/internal/observability"
	"github.com/couchcryptid/seaweed-cluster/internal/pipeline"
	"github.com/couchcryptid/seaweed-cluster/internal/store"
)

const testSummaryTopic = "test-cluster-summaries"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("seaweed-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer func() { _ = cc.Close() }()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// writeRawData writes twelve ocean cells for every parameter: six flat growth
// trajectories and six ramps, plus the matching area file.
func writeRawData(t *testing.T, dir, scenario, scope string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, scenario), 0o755))
	months := []int{-3, -2, -1, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	for _, p := range domain.Parameters {
		tbl := domain.Table{Parameter: p, Months: months}
		for i := range 12 {
			row := make([]float64, len(months))
			for j := range row {
				switch {
				case p != domain.GrowthRate:
					row[j] = 0.4 + 0.02*float64(i)
				case i >= 6:
					row[j] = float64(j) / float64(len(months)-1)
				}
			}
			tbl.Keys = append(tbl.Keys, domain.NewCellKey(float64(i)*2, 100))
			tbl.Values = append(tbl.Values, row)
		}
		f, err := os.Create(csvsource.Path(dir, scenario, scope, p))
		require.NoError(t, err)
		require.NoError(t, csvsource.WriteTable(f, tbl))
		require.NoError(t, f.Close())
	}

	area := "TLAT,TLONG,TAREA\n"
	for i := range 12 {
		area += fmt.Sprintf("%d,100,%d\n", i*2, 1+i/6)
	}
	areaFile := filepath.Join(dir, "area.csv")
	require.NoError(t, os.WriteFile(areaFile, []byte(area), 0o644))
	return areaFile
}

// TestPipelinePublishesSummaries runs one unit from CSV input to the Kafka
// summary topic.
func TestPipelinePublishesSummaries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSummaryTopic)

	rawDir, dataDir := t.TempDir(), t.TempDir()
	areaFile := writeRawData(t, rawDir, "150tg", "global")

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaSummaryTopic: testSummaryTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	clock := clockwork.NewRealClock()
	manifest, err := store.OpenManifest(ctx, filepath.Join(dataDir, "manifest.db"), clock, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = manifest.Close() })

	src := csvsource.New(rawDir, areaFile, csvsource.AreaColumns{Lat: "TLAT", Lon: "TLONG", Area: "TAREA"}, discardLogger())
	p := pipeline.New(src, store.New(dataDir, manifest, discardLogger()), []pipeline.SummaryLoader{writer},
		pipeline.Settings{Version: 1, DataDir: dataDir, Cluster: cluster.Config{Seed: 42}},
		discardLogger(), observability.NewMetricsForTesting(), clock)

	scope := domain.Scope{Name: "global", Clusters: 2}
	require.NoError(t, p.Run(ctx, []domain.Unit{{Scenario: "150tg", Scope: scope}}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSummaryTopic,
		GroupID:     fmt.Sprintf("test-summaries-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	want := len(domain.MainFactors) * scope.Clusters
	got := make(map[string]domain.ClusterSummary, want)
	for len(got) < want {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from summary topic")

		var s domain.ClusterSummary
		require.NoError(t, json.Unmarshal(msg.Value, &s))
		assert.Equal(t, kafka.MessageKey(s), string(msg.Key))
		got[string(msg.Key)] = s
	}

	growth := got["150tg|global|seaweed_growth_rate|2"]
	assert.Equal(t, 6, growth.Cells)
	assert.InDelta(t, 12, growth.Area, 1e-9)
	assert.InDelta(t, 2.0/3, growth.AreaShare, 1e-9)
	assert.InDelta(t, 1, growth.Median[len(growth.Median)-1], 1e-12)
	assert.Len(t, growth.Bands, 4)
}
