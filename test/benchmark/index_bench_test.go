package benchmark

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Ranking-Engine/internal/searcher/ranker"
)

func BenchmarkIndexBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 5000} {
		texts := syntheticTexts(n, 80)
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := index.Build(texts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkVSMBuild measures document vector construction, which dominates
// the first query against a new collection.
func BenchmarkVSMBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 5000} {
		ix, err := index.Build(syntheticTexts(n, 80))
		if err != nil {
			b.Fatal(err)
		}
		b.Run(sizeName(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = ranker.NewVSM(ix)
			}
		})
	}
}
