package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crisis-alert-card/internal/card"
	"github.com/couchcryptid/crisis-alert-card/internal/config"
)

// Writer produces an audit record for every dispatched signal.
// It implements pipeline.SignalSink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
	now    func() time.Time
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured signal topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSignalTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger, now: time.Now}
}

// Name implements pipeline.SignalSink.
func (w *Writer) Name() string { return "kafka" }

// Accepts implements pipeline.SignalSink. Every kind is audited.
func (w *Writer) Accepts(card.ActionKind) bool { return true }

// Send implements pipeline.SignalSink.
func (w *Writer) Send(ctx context.Context, sig card.Signal) error {
	msg, err := serializeToMessage(sig, w.now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write signal: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Signal into a Kafka message keyed by entity,
// so every signal for one card lands on the same partition.
func serializeToMessage(sig card.Signal, at time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(sig)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize signal: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(sig.EntityID),
		Value: data,
		Time:  at,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(sig.Kind)},
			{Key: "gesture", Value: []byte(sig.Gesture)},
			{Key: "dispatched_at", Value: []byte(at.UTC().Format(time.RFC3339))},
		},
	}, nil
}
