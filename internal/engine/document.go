package engine

import (
	"fmt"

	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

// DocumentStatus is the moderation state of a stored document.
type DocumentStatus int

const (
	StatusActual DocumentStatus = iota
	StatusIrrelevant
	StatusBanned
	StatusRemoved
)

var statusNames = map[DocumentStatus]string{
	StatusActual:     "ACTUAL",
	StatusIrrelevant: "IRRELEVANT",
	StatusBanned:     "BANNED",
	StatusRemoved:    "REMOVED",
}

func (s DocumentStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DocumentStatus(%d)", int(s))
}

// ParseStatus maps a status name ("ACTUAL", "BANNED", ...) to its value.
func ParseStatus(name string) (DocumentStatus, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown document status %q", pkgerrors.ErrInvalidInput, name)
}

// Document is a single ranked search result.
type Document struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rating    int     `json:"rating"`
}

// DocumentPredicate decides whether a document participates in a search.
type DocumentPredicate func(id int, status DocumentStatus, rating int) bool

// Filter selects documents during FindTopDocuments. The zero value selects
// documents with StatusActual. Use ByStatus or ByPredicate to build one.
type Filter struct {
	status DocumentStatus
	pred   DocumentPredicate
}

// ByStatus returns a Filter keeping documents whose status equals status.
func ByStatus(status DocumentStatus) Filter {
	return Filter{status: status}
}

// ByPredicate returns a Filter keeping documents the predicate accepts.
func ByPredicate(pred DocumentPredicate) Filter {
	return Filter{pred: pred}
}

// matches is the hot-loop dispatch: the common status filter stays free of
// indirect calls.
func (f Filter) matches(id int, status DocumentStatus, rating int) bool {
	if f.pred != nil {
		return f.pred(id, status, rating)
	}
	return status == f.status
}

// Policy selects sequential or internally parallel execution for the read
// operations that support both. Either way the call returns only once
// results are ready, and observable output is identical.
type Policy int

const (
	Sequential Policy = iota
	Parallel
)
