package engine

import (
	"fmt"
	"sync"

	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

// MatchDocument reports which plus terms of rawQuery occur in the document,
// together with the document's status. If any minus term occurs in the
// document, the term list is empty. Terms are reported once each, in
// ascending order.
func (s *Server) MatchDocument(rawQuery string, id int) ([]string, DocumentStatus, error) {
	return s.MatchDocumentExec(Sequential, rawQuery, id)
}

// MatchDocumentExec is MatchDocument with an explicit execution policy.
func (s *Server) MatchDocumentExec(policy Policy, rawQuery string, id int) ([]string, DocumentStatus, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, 0, fmt.Errorf("%w: id %d", pkgerrors.ErrDocumentNotFound, id)
	}
	query, err := s.parser.Parse(rawQuery)
	if err != nil {
		return nil, 0, err
	}
	for _, word := range query.Minus {
		if _, hit := s.wordDocFreqs[word][id]; hit {
			return []string{}, doc.status, nil
		}
	}
	wordFreqs := s.docWordFreqs[id]
	if policy != Parallel {
		matched := make([]string, 0, len(query.Plus))
		for _, word := range query.Plus {
			if _, hit := wordFreqs[word]; hit {
				matched = append(matched, word)
			}
		}
		return matched, doc.status, nil
	}

	// Plus terms are already sorted and unique, so chunked workers writing
	// to disjoint slots keep the output order intact.
	hits := make([]bool, len(query.Plus))
	var wg sync.WaitGroup
	const chunkSize = 64
	for start := 0; start < len(query.Plus); start += chunkSize {
		end := min(start+chunkSize, len(query.Plus))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if _, hit := wordFreqs[query.Plus[i]]; hit {
					hits[i] = true
				}
			}
		}(start, end)
	}
	wg.Wait()
	matched := make([]string, 0, len(query.Plus))
	for i, hit := range hits {
		if hit {
			matched = append(matched, query.Plus[i])
		}
	}
	return matched, doc.status, nil
}
