// Package influx writes cluster summaries to InfluxDB as monthly time series,
// one point per month and statistic.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

const measurement = "cluster_quantiles"

// Writer implements pipeline.SummaryLoader on top of the blocking write API,
// so a failed write is reported to the caller.
type Writer struct {
	client    influxdb2.Client
	writeAPI  api.WriteAPIBlocking
	eventDate time.Time
	logger    *slog.Logger
}

// NewWriter creates an InfluxDB client for the configured bucket. Month
// offsets are converted to timestamps relative to the configured event date.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	client := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(30))
	return &Writer{
		client:    client,
		writeAPI:  client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		eventDate: cfg.EventDate,
		logger:    logger,
	}
}

// Name identifies the sink in metrics.
func (w *Writer) Name() string { return "influxdb" }

// LoadSummaries writes every summary as points in one request.
func (w *Writer) LoadSummaries(ctx context.Context, summaries []domain.ClusterSummary) error {
	var points []*write.Point
	for _, s := range summaries {
		points = append(points, Points(s, w.eventDate)...)
	}
	if len(points) == 0 {
		return nil
	}
	if err := w.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points: %w", len(points), err)
	}
	w.logger.Debug("summary points written", "points", len(points))
	return nil
}

// Close releases the client's resources.
func (w *Writer) Close() {
	w.client.Close()
}

// Points converts a summary into one point per month for the median and for
// both ends of every band. The statistic is carried in the "quantity" tag,
// e.g. "median", "q0.1" or "q0.9".
func Points(s domain.ClusterSummary, eventDate time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(s.Months)*(1+2*len(s.Bands)))
	add := func(quantity string, values []float64) {
		for j, month := range s.Months {
			tags := map[string]string{
				"scenario":  s.Scenario,
				"scope":     s.Scope,
				"parameter": string(s.Parameter),
				"cluster":   strconv.Itoa(s.Cluster),
				"quantity":  quantity,
			}
			fields := map[string]any{"value": values[j]}
			points = append(points, write.NewPoint(measurement, tags, fields, eventDate.AddDate(0, month, 0)))
		}
	}
	add("median", s.Median)
	for _, b := range s.Bands {
		add(quantityTag(b.Q), b.Lower)
		add(quantityTag(1-b.Q), b.Upper)
	}
	return points
}

// quantityTag rounds to two decimals so 1-0.3 is tagged q0.7.
func quantityTag(q float64) string {
	return "q" + strconv.FormatFloat(math.Round(q*100)/100, 'f', -1, 64)
}
