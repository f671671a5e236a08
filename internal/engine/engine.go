// Package engine implements an in-memory full-text search server: an
// inverted index over space-separated tokens with incremental add/remove,
// TF-IDF ranking, plus/minus query filtering, and per-document word
// frequency queries. A Server is embedded in the host program and exposes
// no network surface.
//
// Concurrency contract: FindTopDocuments and MatchDocument only read the
// server's maps, so any number of them may run concurrently. AddDocument
// and RemoveDocument require exclusive access; the caller must not overlap
// them with any other call on the same Server.
package engine

import (
	"fmt"
	"slices"

	"github.com/mkravets/text-search-server/internal/engine/concurrent"
	"github.com/mkravets/text-search-server/internal/engine/parser"
	"github.com/mkravets/text-search-server/internal/engine/tokenizer"
	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

type documentData struct {
	rating int
	status DocumentStatus
}

// Server owns the stop-word set, both directions of the inverted index, and
// the per-document metadata.
type Server struct {
	parser *parser.Parser

	// wordDocFreqs and docWordFreqs mirror each other: for every pair,
	// wordDocFreqs[word][id] == docWordFreqs[id][word].
	wordDocFreqs map[string]map[int]float64
	docWordFreqs map[int]map[string]float64
	docs         map[int]documentData
	docIDs       []int // ascending

	accumulatorShards int
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithAccumulatorShards sets the shard count of the concurrent accumulator
// used by parallel ranking. Non-positive values keep the default.
func WithAccumulatorShards(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.accumulatorShards = n
		}
	}
}

// New creates a Server with the given stop words. Empty stop words are
// dropped; a stop word with control bytes fails with ErrInvalidStopWord.
func New(stopWords []string, opts ...Option) (*Server, error) {
	stops := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		if word == "" {
			continue
		}
		if !tokenizer.IsValidWord(word) {
			return nil, fmt.Errorf("%w: %q contains control bytes", pkgerrors.ErrInvalidStopWord, word)
		}
		stops[word] = struct{}{}
	}
	s := &Server{
		parser:            parser.New(stops),
		wordDocFreqs:      make(map[string]map[int]float64),
		docWordFreqs:      make(map[int]map[string]float64),
		docs:              make(map[int]documentData),
		accumulatorShards: concurrent.DefaultShardCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromText creates a Server from a space-separated stop-word string.
func NewFromText(stopWordsText string, opts ...Option) (*Server, error) {
	return New(tokenizer.SplitIntoWords(stopWordsText), opts...)
}

// AddDocument indexes text under the given id. The id must be non-negative
// and unused; every token must be free of control bytes. Each retained
// (non-stop) token contributes 1/N to its term frequency, N being the
// retained token count. No state changes on error.
func (s *Server) AddDocument(id int, text string, status DocumentStatus, ratings []int) error {
	if id < 0 {
		return fmt.Errorf("%w: %d is negative", pkgerrors.ErrInvalidDocumentID, id)
	}
	if _, exists := s.docs[id]; exists {
		return fmt.Errorf("%w: %d is already indexed", pkgerrors.ErrInvalidDocumentID, id)
	}
	words, err := s.splitIntoWordsNoStop(text)
	if err != nil {
		return err
	}

	wordFreqs := make(map[string]float64, len(words))
	if len(words) > 0 {
		inverseWordCount := 1.0 / float64(len(words))
		for _, word := range words {
			wordFreqs[word] += inverseWordCount
			postings := s.wordDocFreqs[word]
			if postings == nil {
				postings = make(map[int]float64)
				s.wordDocFreqs[word] = postings
			}
			postings[id] += inverseWordCount
		}
	}
	s.docWordFreqs[id] = wordFreqs
	s.docs[id] = documentData{rating: computeAverageRating(ratings), status: status}
	at, _ := slices.BinarySearch(s.docIDs, id)
	s.docIDs = slices.Insert(s.docIDs, at, id)
	return nil
}

// RemoveDocument erases the document from every index structure. Removing
// an unknown id is a no-op. A term whose posting list becomes empty is
// dropped entirely.
func (s *Server) RemoveDocument(id int) {
	s.RemoveDocumentExec(Sequential, id)
}

// RemoveDocumentExec is RemoveDocument with an explicit execution policy.
// Index maps permit only one writer, so both policies share one code path;
// the tag exists for API symmetry with the other policy-aware operations.
func (s *Server) RemoveDocumentExec(_ Policy, id int) {
	wordFreqs, ok := s.docWordFreqs[id]
	if !ok {
		return
	}
	for word := range wordFreqs {
		postings := s.wordDocFreqs[word]
		delete(postings, id)
		if len(postings) == 0 {
			delete(s.wordDocFreqs, word)
		}
	}
	delete(s.docWordFreqs, id)
	delete(s.docs, id)
	if at, found := slices.BinarySearch(s.docIDs, id); found {
		s.docIDs = slices.Delete(s.docIDs, at, at+1)
	}
}

// WordFrequencies returns a copy of the document's term frequency map, or
// an empty map for an unknown id.
func (s *Server) WordFrequencies(id int) map[string]float64 {
	wordFreqs, ok := s.docWordFreqs[id]
	if !ok {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(wordFreqs))
	for word, freq := range wordFreqs {
		out[word] = freq
	}
	return out
}

// DocumentCount returns the number of indexed documents.
func (s *Server) DocumentCount() int {
	return len(s.docIDs)
}

// DocumentIDs returns the indexed ids in ascending order.
func (s *Server) DocumentIDs() []int {
	return slices.Clone(s.docIDs)
}

// splitIntoWordsNoStop tokenizes text, validates every token, and drops
// stop words.
func (s *Server) splitIntoWordsNoStop(text string) ([]string, error) {
	all := tokenizer.SplitIntoWords(text)
	words := make([]string, 0, len(all))
	for _, word := range all {
		if !tokenizer.IsValidWord(word) {
			return nil, fmt.Errorf("%w: %q contains control bytes", pkgerrors.ErrInvalidDocumentWord, word)
		}
		if !s.parser.IsStopWord(word) {
			words = append(words, word)
		}
	}
	return words, nil
}

// computeAverageRating truncates toward zero, matching integer division.
func computeAverageRating(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}
