// Package tfidf scores terms per document with a BM25-style weighting
// over a fixed collection of token documents.
package tfidf

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
)

const (
	DefaultK1       = 2.0
	DefaultB        = 0.75
	DefaultTopTerms = 30
)

// Norm selects how a document's length enters the saturation term.
type Norm int

const (
	// NormPerDocument uses docLength / avgLength.
	NormPerDocument Norm = iota
	// NormLegacyCorpus uses totalLength / avgLength for every document,
	// which equals the number of documents. Kept for output compatibility
	// with profiles computed by earlier runs.
	NormLegacyCorpus
)

// Document is an immutable multiset of tokens.
type Document struct {
	ID     int64
	length int
	freq   map[string]int
	unique []string
}

func NewDocument(id int64, tokens []string) *Document {
	d := &Document{ID: id, length: len(tokens), freq: make(map[string]int)}
	for _, tok := range tokens {
		if d.freq[tok] == 0 {
			d.unique = append(d.unique, tok)
		}
		d.freq[tok]++
	}
	return d
}

// Frequency returns how often term occurs in the document.
func (d *Document) Frequency(term string) int { return d.freq[term] }

// UniqueTokens returns the distinct tokens in first-occurrence order.
func (d *Document) UniqueTokens() []string { return d.unique }

func (d *Document) Len() int { return d.length }

// TermWeight is one scored term of a document.
type TermWeight struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

type Engine struct {
	K1        float64
	B         float64
	Stopwords tokenizer.Stopwords
	Norm      Norm
}

func NewEngine(stopwords tokenizer.Stopwords, norm Norm) *Engine {
	return &Engine{K1: DefaultK1, B: DefaultB, Stopwords: stopwords, Norm: norm}
}

// Model holds the idf table and the weight vector of every fitted document.
type Model struct {
	docs    []*Document
	idf     map[string]float64
	vectors [][]TermWeight
	lookup  []map[string]float64
}

// Fit computes collection statistics over docs and weights every document.
// Stop words are left out of the vocabulary and therefore never weighted.
func (e *Engine) Fit(docs []*Document) *Model {
	m := &Model{
		docs:    docs,
		idf:     make(map[string]float64),
		vectors: make([][]TermWeight, len(docs)),
		lookup:  make([]map[string]float64, len(docs)),
	}
	if len(docs) == 0 {
		return m
	}

	df := make(map[string]int)
	position := make(map[string]int)
	for _, d := range docs {
		for _, tok := range d.unique {
			if e.Stopwords.Contains(tok) {
				continue
			}
			if _, ok := position[tok]; !ok {
				position[tok] = len(position)
			}
			df[tok]++
		}
	}
	n := len(docs)
	for term, count := range df {
		m.idf[term] = computeIDF(n, count)
	}

	total := 0
	for _, d := range docs {
		total += d.length
	}
	avg := float64(total) / float64(n)

	for i, d := range docs {
		ndl := e.normalizedLength(d, total, avg)
		vec := make([]TermWeight, 0, len(d.unique))
		for _, tok := range d.unique {
			idf, ok := m.idf[tok]
			if !ok {
				continue
			}
			vec = append(vec, TermWeight{Term: tok, Weight: e.weight(idf, float64(d.freq[tok]), ndl)})
		}
		sort.SliceStable(vec, func(a, b int) bool {
			return position[vec[a].Term] < position[vec[b].Term]
		})
		lookup := make(map[string]float64, len(vec))
		for _, tw := range vec {
			lookup[tw.Term] = tw.Weight
		}
		m.vectors[i] = vec
		m.lookup[i] = lookup
	}
	return m
}

func (e *Engine) normalizedLength(d *Document, total int, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	if e.Norm == NormLegacyCorpus {
		return float64(total) / avg
	}
	return float64(d.length) / avg
}

func (e *Engine) weight(idf, tf, ndl float64) float64 {
	if tf == 0 {
		return 0
	}
	return idf * tf * (e.K1 + 1) / (e.K1*(1-e.B+e.B*ndl) + tf)
}

func computeIDF(totalDocs, docFreq int) float64 {
	return math.Log(float64(totalDocs)+1) - math.Log(float64(docFreq))
}

// IDF returns the inverse document frequency of term, 0 when the term is
// not in the vocabulary.
func (m *Model) IDF(term string) float64 { return m.idf[term] }

// Weight returns the weight of term in document i, 0 when absent.
func (m *Model) Weight(i int, term string) float64 { return m.lookup[i][term] }

// Len is the number of fitted documents.
func (m *Model) Len() int { return len(m.docs) }

func (m *Model) DocumentID(i int) int64 { return m.docs[i].ID }

// Vector returns the weights of document i in vocabulary order.
func (m *Model) Vector(i int) []TermWeight { return m.vectors[i] }

// TopTerms returns up to n terms of document i, heaviest first. Weights are
// rounded to four decimals before filtering, so every returned weight is
// positive as displayed. Equal rounded weights keep vocabulary order.
// n <= 0 means DefaultTopTerms.
func (m *Model) TopTerms(i, n int) []TermWeight {
	if n <= 0 {
		n = DefaultTopTerms
	}
	out := make([]TermWeight, 0, len(m.vectors[i]))
	for _, tw := range m.vectors[i] {
		tw.Weight = math.Round(tw.Weight*10000) / 10000
		if tw.Weight > 0 {
			out = append(out, tw)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Weight > out[b].Weight
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
