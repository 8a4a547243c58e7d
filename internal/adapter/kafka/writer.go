package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/seaweed-cluster/internal/config"
	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Writer publishes cluster summaries to a Kafka topic.
// It implements pipeline.SummaryLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
// Messages are partitioned by key, so successive runs of the same unit land
// on the same partition and a compacted topic keeps only the latest summary.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in metrics.
func (w *Writer) Name() string { return "kafka" }

// LoadSummaries serializes and publishes the summaries in a single
// WriteMessages call.
func (w *Writer) LoadSummaries(ctx context.Context, summaries []domain.ClusterSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(summaries))
	for i := range summaries {
		msg, err := serializeToMessage(summaries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write summaries to %s: %w", w.writer.Topic, err)
	}
	w.logger.Debug("summaries written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey identifies a summary: one per scenario, scope, parameter and cluster.
func MessageKey(s domain.ClusterSummary) string {
	return fmt.Sprintf("%s|%s|%s|%d", s.Scenario, s.Scope, s.Parameter, s.Cluster)
}

// serializeToMessage marshals a ClusterSummary into a Kafka message.
func serializeToMessage(s domain.ClusterSummary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cluster summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(s)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "scenario", Value: []byte(s.Scenario)},
			{Key: "parameter", Value: []byte(s.Parameter)},
			{Key: "cluster", Value: []byte(strconv.Itoa(s.Cluster))},
		},
	}, nil
}
