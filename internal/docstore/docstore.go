// Package docstore persists documents in PostgreSQL so the in-memory index
// can be rebuilt on startup.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/pkg/postgres"
	"github.com/mkravets/text-search-server/pkg/resilience"
)

// Record is a document row as stored in PostgreSQL.
type Record struct {
	ID      int
	Text    string
	Status  engine.DocumentStatus
	Ratings []int
}

// Store persists documents in PostgreSQL.
//
// It requires a `documents` table:
//
//	CREATE TABLE documents (
//	    id         INTEGER PRIMARY KEY,
//	    body       TEXT NOT NULL,
//	    status     TEXT NOT NULL,
//	    ratings    INTEGER[] NOT NULL DEFAULT '{}',
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a document store over the given database client.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "docstore"),
	}
}

// Save upserts a document row.
func (s *Store) Save(ctx context.Context, rec Record) error {
	err := resilience.Retry(ctx, "docstore-save", resilience.RetryConfig{}, func() error {
		_, err := s.db.DB.ExecContext(ctx,
			`INSERT INTO documents (id, body, status, ratings, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET body = EXCLUDED.body, status = EXCLUDED.status,
			    ratings = EXCLUDED.ratings, updated_at = EXCLUDED.updated_at`,
			rec.ID, rec.Text, rec.Status.String(), pq.Array(rec.Ratings), time.Now().UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving document %d: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a document row. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id int) error {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	return nil
}

// Load returns a single document row, or nil if the id is unknown.
func (s *Store) Load(ctx context.Context, id int) (*Record, error) {
	var rec Record
	var status string
	var ratings pq.Int64Array
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, body, status, ratings FROM documents WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Text, &status, &ratings)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	rec.Status, rec.Ratings = decodeRow(status, ratings)
	return &rec, nil
}

// LoadAll returns every stored document in ascending id order.
func (s *Store) LoadAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, body, status, ratings FROM documents ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		var ratings pq.Int64Array
		if err := rows.Scan(&rec.ID, &rec.Text, &status, &ratings); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		rec.Status, rec.Ratings = decodeRow(status, ratings)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// decodeRow converts stored column values back to engine types. An unknown
// status name falls back to removed so a corrupt row never surfaces in
// default searches.
func decodeRow(status string, ratings pq.Int64Array) (engine.DocumentStatus, []int) {
	st, err := engine.ParseStatus(status)
	if err != nil {
		st = engine.StatusRemoved
	}
	out := make([]int, len(ratings))
	for i, r := range ratings {
		out[i] = int(r)
	}
	return st, out
}
