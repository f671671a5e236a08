package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mkravets/text-search-server/internal/docstore"
	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/pkg/kafka"
)

// Publisher persists document changes in PostgreSQL and publishes update
// events to Kafka for the index consumer.
type Publisher struct {
	store    *docstore.Store
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. Either store or producer may be nil, in
// which case that side is skipped.
func NewPublisher(store *docstore.Store, producer *kafka.Producer) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// Upsert stores the document and publishes an upsert event. Persistence
// failures abort the publish; publish failures are logged and the document
// stays durable for the next warm start.
func (p *Publisher) Upsert(ctx context.Context, id int, text string, status engine.DocumentStatus, ratings []int) error {
	if p.store != nil {
		err := p.store.Save(ctx, docstore.Record{ID: id, Text: text, Status: status, Ratings: ratings})
		if err != nil {
			return fmt.Errorf("persisting document %d: %w", id, err)
		}
	}
	p.publish(ctx, UpdateEvent{
		Op:        OpUpsert,
		ID:        id,
		Text:      text,
		Status:    status.String(),
		Ratings:   ratings,
		UpdatedAt: time.Now().UTC(),
	})
	return nil
}

// Remove deletes the document row and publishes a remove event.
func (p *Publisher) Remove(ctx context.Context, id int) error {
	if p.store != nil {
		if err := p.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting document %d: %w", id, err)
		}
	}
	p.publish(ctx, UpdateEvent{Op: OpRemove, ID: id, UpdatedAt: time.Now().UTC()})
	return nil
}

func (p *Publisher) publish(ctx context.Context, event UpdateEvent) {
	if p.producer == nil {
		return
	}
	err := p.producer.Publish(ctx, kafka.Event{Key: strconv.Itoa(event.ID), Value: event})
	if err != nil {
		p.logger.Error("failed to publish update event",
			"op", event.Op,
			"doc_id", event.ID,
			"error", err,
		)
	}
}
