// Package service exposes the in-memory search engine over HTTP: an index
// adapter that makes the engine safe for concurrent callers, a Redis-backed
// query cache, request validation, and the HTTP handlers.
package service

import (
	"io"
	"log/slog"
	"sync"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/internal/engine/batch"
	"github.com/mkravets/text-search-server/internal/engine/dedup"
	"github.com/mkravets/text-search-server/internal/engine/requestqueue"
	"github.com/mkravets/text-search-server/pkg/metrics"
)

// Index wraps an engine.Server with the locking the engine leaves to its
// caller: writes take the exclusive lock, reads share it. It also tracks the
// rolling no-result window and feeds the Prometheus collectors.
type Index struct {
	mu  sync.RWMutex
	srv *engine.Server

	queueMu sync.Mutex
	queue   *requestqueue.Queue

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIndex creates an Index over srv. A nil m disables metric reporting.
func NewIndex(srv *engine.Server, requestWindow int, m *metrics.Metrics) *Index {
	return &Index{
		srv:     srv,
		queue:   requestqueue.New(srv, requestWindow),
		metrics: m,
		logger:  slog.Default().With("component", "index"),
	}
}

// Upsert indexes the document, replacing any existing document with the same
// id. The engine validates text and id; a rejected document leaves the index
// unchanged except that a replaced predecessor stays removed.
func (x *Index) Upsert(id int, text string, status engine.DocumentStatus, ratings []int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.srv.RemoveDocument(id)
	if err := x.srv.AddDocument(id, text, status, ratings); err != nil {
		if x.metrics != nil {
			x.metrics.DocsRejectedTotal.WithLabelValues("invalid").Inc()
			x.metrics.IndexedDocuments.Set(float64(x.srv.DocumentCount()))
		}
		return err
	}
	if x.metrics != nil {
		x.metrics.DocsIndexedTotal.Inc()
		x.metrics.IndexedDocuments.Set(float64(x.srv.DocumentCount()))
	}
	return nil
}

// Remove drops the document from the index. Removing an unknown id is a
// no-op.
func (x *Index) Remove(id int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	before := x.srv.DocumentCount()
	x.srv.RemoveDocument(id)
	if x.metrics != nil && x.srv.DocumentCount() < before {
		x.metrics.DocsRemovedTotal.Inc()
		x.metrics.IndexedDocuments.Set(float64(x.srv.DocumentCount()))
	}
}

// Search runs a filtered search and records the outcome in the rolling
// request window.
func (x *Index) Search(rawQuery string, filter engine.Filter) ([]engine.Document, error) {
	x.mu.RLock()
	results, err := x.srv.FindTopDocumentsFiltered(rawQuery, filter)
	x.mu.RUnlock()
	if err != nil {
		if x.metrics != nil {
			x.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	x.queueMu.Lock()
	x.queue.Record(rawQuery, len(results))
	noResult := x.queue.NoResultRequests()
	x.queueMu.Unlock()

	if x.metrics != nil {
		outcome := "ok"
		if len(results) == 0 {
			outcome = "zero_result"
		}
		x.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
		x.metrics.SearchResultsCount.Observe(float64(len(results)))
		x.metrics.NoResultWindowCount.Set(float64(noResult))
	}
	return results, nil
}

// BatchSearch runs the queries concurrently and returns one result slice per
// query, in input order. Batch outcomes are not recorded in the request
// window.
func (x *Index) BatchSearch(queries []string) ([][]engine.Document, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return batch.ProcessQueries(x.srv, queries)
}

// Match reports which plus terms of rawQuery occur in the document.
func (x *Index) Match(rawQuery string, id int) ([]string, engine.DocumentStatus, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.srv.MatchDocument(rawQuery, id)
}

// WordFrequencies returns the document's term frequency map.
func (x *Index) WordFrequencies(id int) map[string]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.srv.WordFrequencies(id)
}

// DocumentCount returns the number of indexed documents.
func (x *Index) DocumentCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.srv.DocumentCount()
}

// DocumentIDs returns the indexed ids in ascending order.
func (x *Index) DocumentIDs() []int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.srv.DocumentIDs()
}

// NoResultRequests returns how many requests in the rolling window came back
// empty.
func (x *Index) NoResultRequests() int {
	x.queueMu.Lock()
	defer x.queueMu.Unlock()
	return x.queue.NoResultRequests()
}

// RemoveDuplicates drops every document whose term set duplicates a lower-id
// document and returns the removed ids.
func (x *Index) RemoveDuplicates() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	removed := dedup.RemoveDuplicates(x.srv, io.Discard)
	for _, id := range removed {
		x.logger.Info("duplicate document removed", "doc_id", id)
	}
	if x.metrics != nil {
		x.metrics.DuplicatesRemoved.Add(float64(len(removed)))
		x.metrics.IndexedDocuments.Set(float64(x.srv.DocumentCount()))
	}
	return removed
}
