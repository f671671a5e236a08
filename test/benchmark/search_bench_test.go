package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/mkravets/text-search-server/internal/engine"
	"github.com/mkravets/text-search-server/internal/engine/batch"
)

var vocabulary = []string{
	"curly", "fluffy", "grey", "white", "brown", "striped",
	"cat", "dog", "parrot", "sparrow", "starling", "hamster",
	"tail", "eyes", "collar", "whiskers", "feathers", "paws",
	"funny", "nasty", "big", "small", "fat", "sweet",
}

func buildCorpus(b *testing.B, numDocs int) *engine.Server {
	b.Helper()
	srv, err := engine.NewFromText("a an and in on the with")
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	for id := 0; id < numDocs; id++ {
		words := make([]string, 4+rng.Intn(8))
		for i := range words {
			words[i] = vocabulary[rng.Intn(len(vocabulary))]
		}
		if err := srv.AddDocument(id, strings.Join(words, " "), engine.StatusActual, []int{rng.Intn(10)}); err != nil {
			b.Fatal(err)
		}
	}
	return srv
}

// BenchmarkFindTopDocuments measures sequential search latency at increasing
// corpus sizes.
func BenchmarkFindTopDocuments(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			srv := buildCorpus(b, numDocs)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := srv.FindTopDocuments("curly cat -nasty"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkFindTopDocumentsPolicies compares sequential and parallel ranking
// on the same corpus and query.
func BenchmarkFindTopDocumentsPolicies(b *testing.B) {
	srv := buildCorpus(b, 10000)
	query := "curly fluffy grey white brown striped cat dog -nasty"

	policies := []struct {
		name   string
		policy engine.Policy
	}{
		{"sequential", engine.Sequential},
		{"parallel", engine.Parallel},
	}
	for _, p := range policies {
		b.Run(p.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := srv.FindTopDocumentsExec(p.policy, query, engine.Filter{}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMatchDocument measures term matching against a single document.
func BenchmarkMatchDocument(b *testing.B) {
	srv := buildCorpus(b, 1000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := srv.MatchDocument("curly cat collar -nasty", i%1000); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAddRemoveDocument measures index mutation throughput.
func BenchmarkAddRemoveDocument(b *testing.B) {
	srv := buildCorpus(b, 1000)
	text := "curly cat with fluffy tail and fancy collar"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := 1000 + i
		if err := srv.AddDocument(id, text, engine.StatusActual, []int{5}); err != nil {
			b.Fatal(err)
		}
		srv.RemoveDocument(id)
	}
}

// BenchmarkProcessQueries measures concurrent batch search throughput.
func BenchmarkProcessQueries(b *testing.B) {
	srv := buildCorpus(b, 10000)
	queries := []string{
		"curly cat",
		"fluffy dog -nasty",
		"white parrot funny",
		"striped hamster",
		"big grey cat -collar",
		"sweet sparrow feathers",
		"small dog paws",
		"fat cat whiskers",
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := batch.ProcessQueries(srv, queries); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchParallelClients measures concurrent read throughput with
// many goroutines searching the same server.
func BenchmarkSearchParallelClients(b *testing.B) {
	srv := buildCorpus(b, 10000)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := srv.FindTopDocuments("curly cat -nasty"); err != nil {
				b.Fatal(err)
			}
		}
	})
}
