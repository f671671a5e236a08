package engine

import (
	"math"
	"sort"
	"sync"

	"github.com/mkravets/text-search-server/internal/engine/concurrent"
	"github.com/mkravets/text-search-server/internal/engine/parser"
)

// MaxResultCount caps the number of documents a search returns.
const MaxResultCount = 5

// relevanceEpsilon is the tolerance within which two relevance values are
// considered equal for tie-breaking.
const relevanceEpsilon = 1e-6

// FindTopDocuments runs a sequential search keeping StatusActual documents.
func (s *Server) FindTopDocuments(rawQuery string) ([]Document, error) {
	return s.FindTopDocumentsExec(Sequential, rawQuery, Filter{})
}

// FindTopDocumentsFiltered runs a sequential search with the given filter.
func (s *Server) FindTopDocumentsFiltered(rawQuery string, filter Filter) ([]Document, error) {
	return s.FindTopDocumentsExec(Sequential, rawQuery, filter)
}

// FindTopDocumentsExec parses rawQuery and returns at most MaxResultCount
// documents ordered by relevance descending, with near-ties (within
// relevanceEpsilon) broken by rating descending and then id ascending.
func (s *Server) FindTopDocumentsExec(policy Policy, rawQuery string, filter Filter) ([]Document, error) {
	query, err := s.parser.Parse(rawQuery)
	if err != nil {
		return nil, err
	}
	var matched []Document
	if policy == Parallel {
		matched = s.findAllDocumentsPar(query, filter)
	} else {
		matched = s.findAllDocumentsSeq(query, filter)
	}
	sort.Slice(matched, func(i, j int) bool {
		lhs, rhs := matched[i], matched[j]
		if math.Abs(lhs.Relevance-rhs.Relevance) < relevanceEpsilon {
			if lhs.Rating != rhs.Rating {
				return lhs.Rating > rhs.Rating
			}
			return lhs.ID < rhs.ID
		}
		return lhs.Relevance > rhs.Relevance
	})
	if len(matched) > MaxResultCount {
		matched = matched[:MaxResultCount]
	}
	return matched, nil
}

// inverseDocumentFreq is ln(corpus size / document frequency). The corpus
// size is the full document count, not the filtered subset.
func (s *Server) inverseDocumentFreq(word string) float64 {
	return math.Log(float64(len(s.docs)) / float64(len(s.wordDocFreqs[word])))
}

func (s *Server) findAllDocumentsSeq(query parser.Query, filter Filter) []Document {
	relevance := make(map[int]float64)
	for _, word := range query.Plus {
		postings, ok := s.wordDocFreqs[word]
		if !ok {
			continue
		}
		idf := s.inverseDocumentFreq(word)
		for id, termFreq := range postings {
			doc := s.docs[id]
			if filter.matches(id, doc.status, doc.rating) {
				relevance[id] += termFreq * idf
			}
		}
	}
	for _, word := range query.Minus {
		for id := range s.wordDocFreqs[word] {
			delete(relevance, id)
		}
	}
	matched := make([]Document, 0, len(relevance))
	for id, rel := range relevance {
		matched = append(matched, Document{ID: id, Relevance: rel, Rating: s.docs[id].rating})
	}
	return matched
}

// findAllDocumentsPar scores plus terms concurrently. Each worker reads one
// posting list (the index maps are read-only here) and accumulates into the
// sharded map, so cross-term writes to the same document stay bounded by
// per-shard locking.
func (s *Server) findAllDocumentsPar(query parser.Query, filter Filter) []Document {
	accumulator := concurrent.NewMap[int, float64](s.accumulatorShards)
	var wg sync.WaitGroup
	for _, word := range query.Plus {
		wg.Add(1)
		go func(word string) {
			defer wg.Done()
			postings, ok := s.wordDocFreqs[word]
			if !ok {
				return
			}
			idf := s.inverseDocumentFreq(word)
			for id, termFreq := range postings {
				doc := s.docs[id]
				if filter.matches(id, doc.status, doc.rating) {
					accumulator.Update(id, func(rel *float64) {
						*rel += termFreq * idf
					})
				}
			}
		}(word)
	}
	wg.Wait()

	ids, relevance := accumulator.BuildOrdered()

	var mu sync.Mutex
	for _, word := range query.Minus {
		wg.Add(1)
		go func(word string) {
			defer wg.Done()
			postings, ok := s.wordDocFreqs[word]
			if !ok {
				return
			}
			mu.Lock()
			for id := range postings {
				delete(relevance, id)
			}
			mu.Unlock()
		}(word)
	}
	wg.Wait()

	matched := make([]Document, 0, len(relevance))
	for _, id := range ids {
		rel, ok := relevance[id]
		if !ok {
			continue
		}
		matched = append(matched, Document{ID: id, Relevance: rel, Rating: s.docs[id].rating})
	}
	return matched
}
