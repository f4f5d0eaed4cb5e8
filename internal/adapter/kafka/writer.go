package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/species-trend-etl/internal/config"
	"github.com/couchcryptid/species-trend-etl/internal/domain"
	"github.com/couchcryptid/species-trend-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per enriched sighting to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// LoadBatch serializes and publishes every record of the batch in a single
// WriteMessages call. Messages are keyed by sighting ID so reprocessing the
// same input lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, batch pipeline.Batch) error {
	records := batch.Linkage.Records
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(batch.RunID, batch.Job, i, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	w.logger.Debug("published enriched sightings", "job", batch.Job, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// Message is the JSON value of a published record.
type Message struct {
	RunID      string `json:"run_id"`
	Job        string `json:"job"`
	Seq        int    `json:"seq"`
	SightingID string `json:"sighting_id"`
	domain.ClassifiedSighting
}

// serializeToMessage marshals a classified sighting into a Kafka message.
func serializeToMessage(runID, job string, seq int, r domain.ClassifiedSighting) (kafkago.Message, error) {
	id := domain.SightingID(r.Sighting)
	data, err := json.Marshal(Message{
		RunID:              runID,
		Job:                job,
		Seq:                seq,
		SightingID:         id,
		ClassifiedSighting: r,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sighting: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(id),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "job", Value: []byte(job)},
			{Key: "season", Value: []byte(r.Season)},
			{Key: "match_kind", Value: []byte(r.Kind.String())},
		},
	}, nil
}
