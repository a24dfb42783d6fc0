package benchmark

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
)

var vocabulary = []string{
	"partie", "extension", "règles", "faction", "carte", "plateau", "joueur",
	"victoire", "défaite", "stratégie", "tour", "dés", "pions", "score",
	"campagne", "scénario", "figurines", "peinture", "boîte", "matériel",
}

// corpusDocs builds n documents of docLen tokens drawn from vocabulary with
// a skewed distribution, so some terms are frequent and others rare.
func corpusDocs(n, docLen int) []*tfidf.Document {
	rng := rand.New(rand.NewPCG(42, 0))
	docs := make([]*tfidf.Document, n)
	for i := range docs {
		tokens := make([]string, docLen)
		for j := range tokens {
			k := rng.IntN(len(vocabulary))
			k = k * k / len(vocabulary)
			tokens[j] = vocabulary[k]
		}
		tokens = append(tokens, fmt.Sprintf("rare%d", i))
		docs[i] = tfidf.NewDocument(int64(i), tokens)
	}
	return docs
}

// BenchmarkFit measures model construction for growing collections.
func BenchmarkFit(b *testing.B) {
	engine := tfidf.NewEngine(tokenizer.DefaultStopwords(), tfidf.NormPerDocument)
	for _, n := range []int{10, 100, 1000} {
		docs := corpusDocs(n, 200)
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				model := engine.Fit(docs)
				_ = model
			}
		})
	}
}

// BenchmarkTopTerms measures top-term extraction over a fitted model.
func BenchmarkTopTerms(b *testing.B) {
	engine := tfidf.NewEngine(nil, tfidf.NormPerDocument)
	model := engine.Fit(corpusDocs(500, 200))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		terms := model.TopTerms(i%model.Len(), tfidf.DefaultTopTerms)
		_ = terms
	}
}

func BenchmarkTopTermsParallel(b *testing.B) {
	engine := tfidf.NewEngine(nil, tfidf.NormLegacyCorpus)
	model := engine.Fit(corpusDocs(500, 200))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			terms := model.TopTerms(i%model.Len(), tfidf.DefaultTopTerms)
			_ = terms
			i++
		}
	})
}
