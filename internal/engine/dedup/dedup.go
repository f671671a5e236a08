// Package dedup finds and removes documents whose term sets duplicate an
// earlier document.
package dedup

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mkravets/text-search-server/internal/engine"
)

// RemoveDuplicates scans documents in ascending id order and removes every
// document whose set of distinct terms matches a lower-id document exactly.
// Term frequencies are ignored. For each removal a line
// "Found duplicate document id <id>" is written to out. The removed ids are
// returned in ascending order.
func RemoveDuplicates(srv *engine.Server, out io.Writer) []int {
	seen := make(map[string]struct{})
	var duplicates []int
	for _, id := range srv.DocumentIDs() {
		key := termSetKey(srv.WordFrequencies(id))
		if _, dup := seen[key]; dup {
			duplicates = append(duplicates, id)
			continue
		}
		seen[key] = struct{}{}
	}
	for _, id := range duplicates {
		fmt.Fprintf(out, "Found duplicate document id %d\n", id)
		srv.RemoveDocument(id)
	}
	return duplicates
}

// termSetKey builds a canonical key from a document's distinct terms. Terms
// never contain control bytes, so "\n" cannot occur inside a term and the
// join is collision-free.
func termSetKey(wordFreqs map[string]float64) string {
	terms := make([]string, 0, len(wordFreqs))
	for word := range wordFreqs {
		terms = append(terms, word)
	}
	sort.Strings(terms)
	return strings.Join(terms, "\n")
}
