// Package batch runs groups of search queries concurrently while keeping
// per-query result order.
package batch

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/mkravets/text-search-server/internal/engine"
)

// ProcessQueries runs every query against srv and returns one result slice
// per query, in input order. Queries run concurrently, capped at
// GOMAXPROCS workers. If any query fails, the first error is returned and
// no results are; the remaining queries still run to completion.
func ProcessQueries(srv *engine.Server, queries []string) ([][]engine.Document, error) {
	results := make([][]engine.Document, len(queries))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, query := range queries {
		g.Go(func() error {
			docs, err := srv.FindTopDocuments(query)
			if err != nil {
				return err
			}
			results[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessQueriesJoined flattens ProcessQueries output into a single slice:
// all documents for the first query, then the second, and so on.
func ProcessQueriesJoined(srv *engine.Server, queries []string) ([]engine.Document, error) {
	perQuery, err := ProcessQueries(srv, queries)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, docs := range perQuery {
		total += len(docs)
	}
	joined := make([]engine.Document, 0, total)
	for _, docs := range perQuery {
		joined = append(joined, docs...)
	}
	return joined, nil
}
