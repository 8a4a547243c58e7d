package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(newLogger(&buf, "info", "json"), "pipeline")

	logger.Debug("hidden")
	logger.Info("unit done", "scenario", "150tg")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "unit done", rec["msg"])
	assert.Equal(t, "pipeline", rec["component"])
	assert.Equal(t, "150tg", rec["scenario"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("hello", "k", 1)
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"msg"`)
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.UnitsProcessed.WithLabelValues("clustered").Inc()
	a.DistanceEvaluations.Add(3)

	assert.InDelta(t, 1, testutil.ToFloat64(a.UnitsProcessed.WithLabelValues("clustered")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(a.DistanceEvaluations), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.DistanceEvaluations), 0)
}
