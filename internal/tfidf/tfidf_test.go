package tfidf

import (
	"fmt"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpus() []*Document {
	return []*Document{
		NewDocument(1, []string{"common", "rare", "foo"}),
		NewDocument(2, []string{"common", "bar"}),
		NewDocument(3, []string{"common", "bar", "baz"}),
	}
}

func TestDocumentFrequencies(t *testing.T) {
	d := NewDocument(7, []string{"b", "a", "b", "c", "a", "b"})
	assert.Equal(t, 3, d.Frequency("b"))
	assert.Equal(t, 0, d.Frequency("z"))
	assert.Equal(t, []string{"b", "a", "c"}, d.UniqueTokens())
	assert.Equal(t, 6, d.Len())
}

func TestIDFExtremes(t *testing.T) {
	m := NewEngine(nil, NormPerDocument).Fit(corpus())
	terms := []string{"common", "rare", "foo", "bar", "baz"}

	assert.InDelta(t, math.Log(4)-math.Log(3), m.IDF("common"), 1e-12)
	assert.InDelta(t, math.Log(4), m.IDF("rare"), 1e-12)
	for _, term := range terms {
		assert.LessOrEqual(t, m.IDF("common"), m.IDF(term), term)
		assert.GreaterOrEqual(t, m.IDF("rare"), m.IDF(term), term)
	}
}

func TestWeightFormula(t *testing.T) {
	docs := corpus()
	idf := math.Log(4)
	avg := 8.0 / 3.0

	m := NewEngine(nil, NormPerDocument).Fit(docs)
	ndl := 3 / avg
	want := idf * 1 * 3 / (2*(1-0.75+0.75*ndl) + 1)
	assert.InDelta(t, want, m.Weight(0, "rare"), 1e-12)

	legacy := NewEngine(nil, NormLegacyCorpus).Fit(docs)
	want = idf * 1 * 3 / (2*(1-0.75+0.75*3) + 1)
	assert.InDelta(t, want, legacy.Weight(0, "rare"), 1e-12)

	assert.Zero(t, m.Weight(1, "rare"))
}

func TestStopwordsLeftOutOfVocabulary(t *testing.T) {
	e := NewEngine(tokenizer.NewStopwords("common"), NormPerDocument)
	m := e.Fit(corpus())

	assert.Zero(t, m.IDF("common"))
	assert.Zero(t, m.Weight(0, "common"))
	for i := 0; i < m.Len(); i++ {
		for _, tw := range m.Vector(i) {
			assert.NotEqual(t, "common", tw.Term)
		}
	}
}

func TestTopTermsPositiveAndDescending(t *testing.T) {
	docs := []*Document{
		NewDocument(10, []string{"gamma", "alpha", "beta", "alpha", "beta", "alpha"}),
		NewDocument(11, []string{"delta", "alpha"}),
	}
	m := NewEngine(nil, NormPerDocument).Fit(docs)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, int64(10), m.DocumentID(0))

	top := m.TopTerms(0, 0)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"beta", "gamma", "alpha"}, []string{top[0].Term, top[1].Term, top[2].Term})
	for i, tw := range top {
		assert.Greater(t, tw.Weight, 0.0)
		if i > 0 {
			assert.Greater(t, top[i-1].Weight, tw.Weight)
		}
		assert.Equal(t, math.Round(tw.Weight*10000)/10000, tw.Weight)
	}

	assert.Len(t, m.TopTerms(0, 1), 1)
}

func TestTopTermsDropsWeightsThatRoundToZero(t *testing.T) {
	cases := []struct {
		name string
		docs int
		norm Norm
	}{
		{"legacy norm", 200, NormLegacyCorpus},
		{"large collection", 30000, NormPerDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs := make([]*Document, tc.docs)
			for i := range docs {
				docs[i] = NewDocument(int64(i), []string{"commun", fmt.Sprintf("unique%d", i)})
			}
			m := NewEngine(nil, tc.norm).Fit(docs)
			require.Positive(t, m.Weight(0, "commun"))

			for _, i := range []int{0, tc.docs / 2, tc.docs - 1} {
				top := m.TopTerms(i, 0)
				require.Len(t, top, 1)
				assert.Equal(t, fmt.Sprintf("unique%d", i), top[0].Term)
				for k, tw := range top {
					assert.Greater(t, tw.Weight, 0.0)
					if k > 0 {
						assert.GreaterOrEqual(t, top[k-1].Weight, tw.Weight)
					}
				}
			}
		})
	}
}

func TestTopTermsTiesKeepVocabularyOrder(t *testing.T) {
	m := NewEngine(nil, NormPerDocument).Fit([]*Document{
		NewDocument(1, []string{"zulu", "alpha", "mike"}),
		NewDocument(2, []string{"other"}),
	})
	top := m.TopTerms(0, 10)
	require.Len(t, top, 3)
	assert.Equal(t, "zulu", top[0].Term)
	assert.Equal(t, "alpha", top[1].Term)
	assert.Equal(t, "mike", top[2].Term)
}

func TestFitEmpty(t *testing.T) {
	m := NewEngine(nil, NormPerDocument).Fit(nil)
	assert.Equal(t, 0, m.Len())
	assert.Zero(t, m.IDF("anything"))

	m = NewEngine(nil, NormPerDocument).Fit([]*Document{NewDocument(1, nil)})
	assert.Empty(t, m.TopTerms(0, 5))
}
