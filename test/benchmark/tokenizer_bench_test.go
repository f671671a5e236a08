package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mkravets/text-search-server/internal/engine/parser"
	"github.com/mkravets/text-search-server/internal/engine/tokenizer"
)

// BenchmarkSplitIntoWords measures tokenization for texts of varying length.
func BenchmarkSplitIntoWords(b *testing.B) {
	for _, numWords := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("words_%d", numWords), func(b *testing.B) {
			text := strings.TrimSpace(strings.Repeat("curly cat fancy collar ", (numWords+3)/4))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				words := tokenizer.SplitIntoWords(text)
				_ = words
			}
		})
	}
}

// BenchmarkIsValidWord measures byte-validity scanning.
func BenchmarkIsValidWord(b *testing.B) {
	word := strings.Repeat("pushistiy", 8)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if !tokenizer.IsValidWord(word) {
			b.Fatal("unexpectedly invalid")
		}
	}
}

// BenchmarkParse measures query parsing for queries of varying shape.
func BenchmarkParse(b *testing.B) {
	stops := map[string]struct{}{"a": {}, "and": {}, "the": {}, "with": {}}
	p := parser.New(stops)

	queries := []struct {
		name  string
		query string
	}{
		{"simple", "curly cat"},
		{"with_minus", "fluffy dog -nasty -fat"},
		{"with_stops", "the curly cat with a collar"},
		{"duplicates", "cat cat cat dog dog"},
		{"long", "curly fluffy grey white brown striped cat dog parrot sparrow starling hamster"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := p.Parse(q.query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
