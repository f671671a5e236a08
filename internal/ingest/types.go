// Package ingest defines the document-update event schema carried over Kafka
// and the producer/consumer pair that moves updates between the HTTP surface
// and the in-memory index.
package ingest

import "time"

// Operations carried by an UpdateEvent.
const (
	OpUpsert = "upsert"
	OpRemove = "remove"
)

// UpdateEvent is the Kafka message payload for a document change. For
// OpRemove only ID is meaningful.
type UpdateEvent struct {
	Op        string    `json:"op"`
	ID        int       `json:"id"`
	Text      string    `json:"text,omitempty"`
	Status    string    `json:"status,omitempty"`
	Ratings   []int     `json:"ratings,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
