// Package paginate provides a lazy fixed-size windowed view over a slice.
package paginate

import (
	"fmt"
	"iter"

	pkgerrors "github.com/mkravets/text-search-server/pkg/errors"
)

// Pages returns a lazy sequence of sub-slices of items, each pageSize long
// except possibly the last. Pages share the backing array with items; no
// elements are copied. A non-positive pageSize fails with ErrInvalidInput.
func Pages[T any](items []T, pageSize int) (iter.Seq[[]T], error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", pkgerrors.ErrInvalidInput, pageSize)
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += pageSize {
			end := min(start+pageSize, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}, nil
}
