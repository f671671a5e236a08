// Package requestqueue tracks search requests over a fixed rolling window
// and counts the ones that returned no results.
package requestqueue

import (
	"github.com/mkravets/text-search-server/internal/engine"
)

// DefaultWindow is the rolling-window length in requests (one tick per
// AddFindRequest call).
const DefaultWindow = 1440

type record struct {
	query       string
	resultCount int
}

// Queue wraps a Server and records the outcome of every find request it
// forwards. A Queue borrows the server and is not safe for concurrent use.
type Queue struct {
	server     *engine.Server
	window     int
	requests   []record
	emptyCount int
}

// New creates a Queue over server. A non-positive window falls back to
// DefaultWindow.
func New(server *engine.Server, window int) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Queue{server: server, window: window}
}

// AddFindRequest runs a default search and records the outcome.
func (q *Queue) AddFindRequest(rawQuery string) ([]engine.Document, error) {
	return q.AddFindRequestFiltered(rawQuery, engine.Filter{})
}

// AddFindRequestFiltered runs a filtered search and records the outcome.
// Failed requests are not recorded.
func (q *Queue) AddFindRequestFiltered(rawQuery string, filter engine.Filter) ([]engine.Document, error) {
	results, err := q.server.FindTopDocumentsFiltered(rawQuery, filter)
	if err != nil {
		return nil, err
	}
	q.Record(rawQuery, len(results))
	return results, nil
}

// Record pushes one request outcome into the window. It is for callers that
// ran the search themselves.
func (q *Queue) Record(rawQuery string, resultCount int) {
	q.requests = append(q.requests, record{query: rawQuery, resultCount: resultCount})
	if len(q.requests) > q.window {
		if q.requests[0].resultCount == 0 {
			q.emptyCount--
		}
		q.requests = q.requests[1:]
	}
	if resultCount == 0 {
		q.emptyCount++
	}
}

// NoResultRequests returns how many requests in the current window came
// back empty.
func (q *Queue) NoResultRequests() int {
	return q.emptyCount
}
