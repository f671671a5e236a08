// Package parser turns raw query text into plus, minus, and stop term lists.
// A leading '-' marks a minus term. Stop terms are recognized against the
// set the Parser was built with and contribute nothing to retrieval.
package parser

import (
	"fmt"
	"slices"

	"github.com/mkravets/text-search-server/internal/engine/tokenizer"
	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

// Query is a parsed search query. Plus and Minus are sorted and de-duplicated.
type Query struct {
	Plus  []string
	Minus []string
	Stop  []string
}

// Parser classifies query words against an immutable stop-word set.
type Parser struct {
	stopWords map[string]struct{}
}

// New creates a Parser over the given stop-word set. The set is borrowed,
// not copied; the owner must not mutate it afterwards.
func New(stopWords map[string]struct{}) *Parser {
	return &Parser{stopWords: stopWords}
}

// IsStopWord reports whether word is in the parser's stop-word set.
func (p *Parser) IsStopWord(word string) bool {
	_, ok := p.stopWords[word]
	return ok
}

// Parse splits text into words and classifies each one. It fails with
// ErrInvalidQuery on a bare "-", a word starting with "--", or a word
// carrying control bytes.
func (p *Parser) Parse(text string) (Query, error) {
	var query Query
	for _, word := range tokenizer.SplitIntoWords(text) {
		minus := false
		if word[0] == '-' {
			minus = true
			word = word[1:]
		}
		if word == "" || word[0] == '-' {
			return Query{}, fmt.Errorf("%w: malformed minus term", pkgerrors.ErrInvalidQuery)
		}
		if !tokenizer.IsValidWord(word) {
			return Query{}, fmt.Errorf("%w: word %q contains control bytes", pkgerrors.ErrInvalidQuery, word)
		}
		switch {
		case p.IsStopWord(word):
			query.Stop = append(query.Stop, word)
		case minus:
			query.Minus = append(query.Minus, word)
		default:
			query.Plus = append(query.Plus, word)
		}
	}
	slices.Sort(query.Plus)
	query.Plus = slices.Compact(query.Plus)
	slices.Sort(query.Minus)
	query.Minus = slices.Compact(query.Minus)
	slices.Sort(query.Stop)
	query.Stop = slices.Compact(query.Stop)
	return query, nil
}
