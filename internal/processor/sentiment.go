package processor

import (
	"context"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/sentiment"
)

// Sentiment counts a user's sampled sentences by polarity.
type Sentiment struct {
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
	Positive int `json:"positive"`
}

// SentimentResult maps user id to their tally. Users with too few
// sampled sentences, or none that yield a word, are absent.
type SentimentResult map[int64]*Sentiment

type sentimentProcessor struct{}

func (sentimentProcessor) Kind() Kind { return KindSentiment }

func (sentimentProcessor) Run(ctx context.Context, idx *corpus.Index, opts Options) (any, error) {
	sentences := map[int64][]string{}
	opts.posts(idx, func(_ *corpus.Topic, p *corpus.Post) {
		sentences[p.AuthorID] = append(sentences[p.AuthorID], sentiment.SplitSentences(p.Message)...)
	})

	users := make([]int64, 0, len(sentences))
	for id := range sentences {
		users = append(users, id)
	}
	slices.Sort(users)

	tallies := make([]*Sentiment, len(users))
	err := forEach(ctx, len(users), opts.Parallelism, func(_ context.Context, i int) error {
		id := users[i]
		picked := sampleSentences(sentences[id], opts.SentenceSample, opts.rng(userSalt, id))
		if len(picked) < opts.MinSentences {
			return nil
		}
		tallies[i] = classify(picked, opts.Tokenizer, opts.Scorer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := SentimentResult{}
	for i, id := range users {
		if tallies[i] != nil {
			res[id] = tallies[i]
		}
	}
	return res, nil
}

// sampleSentences draws up to n sentences uniformly without replacement by
// sorting on a random key per sentence.
func sampleSentences(all []string, n int, rng *rand.Rand) []string {
	if len(all) == 0 {
		return nil
	}
	type keyed struct {
		key   float64
		value string
	}
	items := make([]keyed, len(all))
	for i, s := range all {
		items[i] = keyed{key: rng.Float64(), value: s}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].key < items[b].key })
	if len(items) > n {
		items = items[:n]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.value
	}
	return out
}

// classify scores each sentence. Sentences that tokenize to nothing are not
// counted, and nil is returned when no sentence was.
func classify(sentences []string, tok sentiment.Tokenizer, scorer sentiment.Scorer) *Sentiment {
	s := &Sentiment{}
	scored := 0
	for _, sentence := range sentences {
		tokens := tok.Tokenize(sentence)
		if len(tokens) == 0 {
			continue
		}
		scored++
		switch score := scorer.Score(tokens); {
		case score < 0:
			s.Negative++
		case score > 0:
			s.Positive++
		default:
			s.Neutral++
		}
	}
	if scored == 0 {
		return nil
	}
	return s
}
