package influx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

var eventDate = time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC)

func summary() domain.ClusterSummary {
	return domain.ClusterSummary{
		Scenario:  "150tg",
		Scope:     "US",
		Parameter: domain.GrowthRate,
		Cluster:   3,
		Months:    []int{-1, 0, 1},
		Median:    []float64{0.4, 0.3, 0.2},
		Bands: []domain.Band{
			{Q: 0.3, Lower: []float64{0.35, 0.25, 0.15}, Upper: []float64{0.45, 0.35, 0.25}},
		},
	}
}

type lineRecorder struct {
	mu     sync.Mutex
	lines  []string
	query  string
	status int
}

func (r *lineRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(req.Body)
		assert.NoError(t, err)
		r.mu.Lock()
		defer r.mu.Unlock()
		r.query = req.URL.RawQuery
		if r.status != 0 {
			w.WriteHeader(r.status)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"bad line"}`))
			return
		}
		for _, l := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			r.lines = append(r.lines, l)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestWriter(t *testing.T, rec *lineRecorder) *Writer {
	t.Helper()
	srv := httptest.NewServer(rec.handler(t))
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		InfluxURL:    srv.URL,
		InfluxToken:  "token",
		InfluxOrg:    "seaweed",
		InfluxBucket: "cluster_summaries",
		EventDate:    eventDate,
	}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(w.Close)
	return w
}

func TestPoints(t *testing.T) {
	points := Points(summary(), eventDate)
	require.Len(t, points, 9)

	first := points[0]
	assert.Equal(t, "cluster_quantiles", first.Name())
	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), first.Time())
	tags := map[string]string{}
	for _, tag := range first.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{
		"scenario": "150tg", "scope": "US", "parameter": "seaweed_growth_rate", "cluster": "3", "quantity": "median",
	}, tags)
	require.Len(t, first.FieldList(), 1)
	assert.Equal(t, "value", first.FieldList()[0].Key)
	assert.Equal(t, 0.4, first.FieldList()[0].Value)

	var quantities []string
	for i := 0; i < len(points); i += 3 {
		for _, tag := range points[i].TagList() {
			if tag.Key == "quantity" {
				quantities = append(quantities, tag.Value)
			}
		}
	}
	assert.Equal(t, []string{"median", "q0.3", "q0.7"}, quantities)
}

func TestQuantityTag(t *testing.T) {
	for _, q := range []float64{0.1, 0.2, 0.3, 0.4} {
		assert.Equal(t, "q"+strconv.FormatFloat(q, 'f', -1, 64), quantityTag(q))
	}
	assert.Equal(t, "q0.9", quantityTag(1-0.1))
	assert.Equal(t, "q0.7", quantityTag(1-0.3))
	assert.Equal(t, "q0.6", quantityTag(1-0.4))
}

func TestWriter_LoadSummaries(t *testing.T) {
	rec := &lineRecorder{}
	w := newTestWriter(t, rec)

	require.NoError(t, w.LoadSummaries(context.Background(), []domain.ClusterSummary{summary()}))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Contains(t, rec.query, "org=seaweed")
	assert.Contains(t, rec.query, "bucket=cluster_summaries")
	require.Len(t, rec.lines, 9)
	assert.True(t, strings.HasPrefix(rec.lines[0], "cluster_quantiles,"), rec.lines[0])
	assert.Contains(t, rec.lines[0], "quantity=median")
	assert.Contains(t, rec.lines[0], "value=0.4")
	ts := time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	assert.True(t, strings.HasSuffix(rec.lines[0], " "+strconv.FormatInt(ts, 10)), rec.lines[0])
}

func TestWriter_EmptyIsNoop(t *testing.T) {
	rec := &lineRecorder{}
	w := newTestWriter(t, rec)
	assert.Equal(t, "influxdb", w.Name())
	require.NoError(t, w.LoadSummaries(context.Background(), nil))
	assert.Empty(t, rec.query)
}

func TestWriter_ServerError(t *testing.T) {
	rec := &lineRecorder{status: http.StatusBadRequest}
	w := newTestWriter(t, rec)
	err := w.LoadSummaries(context.Background(), []domain.ClusterSummary{summary()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write 9 points")
}
