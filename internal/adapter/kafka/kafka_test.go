package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

func summary() domain.ClusterSummary {
	return domain.ClusterSummary{
		Scenario:  "150tg",
		Scope:     "global",
		Parameter: domain.GrowthRate,
		Cluster:   2,
		Cells:     120,
		Area:      4.5e12,
		AreaShare: 0.25,
		Months:    []int{-1, 0, 1},
		Median:    []float64{0.4, 0.3, 0.2},
		Bands:     []domain.Band{{Q: 0.1, Lower: []float64{0.1, 0.1, 0}, Upper: []float64{0.6, 0.5, 0.4}}},
	}
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "150tg|global|seaweed_growth_rate|2", MessageKey(summary()))
}

func TestSerializeToMessage(t *testing.T) {
	s := summary()
	msg, err := serializeToMessage(s)
	require.NoError(t, err)

	assert.Equal(t, []byte("150tg|global|seaweed_growth_rate|2"), msg.Key)
	assert.Contains(t, string(msg.Value), `"parameter":"seaweed_growth_rate"`)
	assert.Contains(t, string(msg.Value), `"area_share":0.25`)

	var back domain.ClusterSummary
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, s, back)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "scenario", msg.Headers[0].Key)
	assert.Equal(t, []byte("150tg"), msg.Headers[0].Value)
	assert.Equal(t, "parameter", msg.Headers[1].Key)
	assert.Equal(t, []byte("seaweed_growth_rate"), msg.Headers[1].Value)
	assert.Equal(t, "cluster", msg.Headers[2].Key)
	assert.Equal(t, []byte("2"), msg.Headers[2].Value)
}

func TestSerializeToMessage_NaNFails(t *testing.T) {
	s := summary()
	s.Median[0] = math.NaN()
	_, err := serializeToMessage(s)
	assert.Error(t, err)
}

func TestWriter_EmptyBatchIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaSummaryTopic: "summaries"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "kafka", w.Name())
	assert.NoError(t, w.LoadSummaries(context.Background(), nil))
}
