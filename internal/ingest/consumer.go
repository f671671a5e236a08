package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/pkg/kafka"
)

// Indexer is the index surface the consumer writes to.
type Indexer interface {
	Upsert(id int, text string, status engine.DocumentStatus, ratings []int) error
	Remove(id int)
}

// UpdateConsumer wraps a Kafka consumer that applies document updates to the
// in-memory index.
type UpdateConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewConsumer creates an UpdateConsumer backed by the given Kafka consumer.
func NewConsumer(kafkaConsumer *kafka.Consumer) *UpdateConsumer {
	return &UpdateConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "update-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (uc *UpdateConsumer) Start(ctx context.Context) error {
	uc.logger.Info("update consumer starting")
	return uc.consumer.Start(ctx)
}

// Close closes the underlying Kafka consumer.
func (uc *UpdateConsumer) Close() error {
	return uc.consumer.Close()
}

// HandleMessage returns a Kafka MessageHandler that applies each update to
// idx. Malformed events and documents the index rejects are logged and
// skipped so one bad message never stalls the stream.
func HandleMessage(idx Indexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "update-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[UpdateEvent](value)
		if err != nil {
			logger.Error("failed to decode update event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		switch event.Op {
		case OpUpsert:
			status, err := engine.ParseStatus(event.Status)
			if err != nil {
				logger.Error("skipping update with bad status",
					"doc_id", event.ID,
					"status", event.Status,
					"error", err,
				)
				return nil
			}
			if err := idx.Upsert(event.ID, event.Text, status, event.Ratings); err != nil {
				logger.Error("skipping document the index rejected",
					"doc_id", event.ID,
					"error", err,
				)
				return nil
			}
			logger.Debug("document indexed", "doc_id", event.ID)
		case OpRemove:
			idx.Remove(event.ID)
			logger.Debug("document removed", "doc_id", event.ID)
		default:
			return fmt.Errorf("unknown update op %q for document %d", event.Op, event.ID)
		}
		return nil
	}
}
