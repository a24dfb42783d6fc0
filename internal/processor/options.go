package processor

import (
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/config"
)

// Options tunes a processor run. Zero values take the defaults documented
// on each field.
type Options struct {
	// TopicIDs and UserIDs restrict a run to a subset. Empty means all.
	TopicIDs []int64
	UserIDs  []int64

	MinMessages  int     // tfidf entity threshold, default 200
	SampleTokens bool    // down-sample token streams before weighting
	KeepRatio    float64 // default 0.1
	TopTerms     int     // default 30
	Norm         tfidf.Norm
	Stopwords    tokenizer.Stopwords

	SentenceSample int // default 1000
	MinSentences   int // default 200
	Tokenizer      sentiment.Tokenizer
	Scorer         sentiment.Scorer

	// Seed makes sampling reproducible. Zero means unseeded.
	Seed uint64
	// Location buckets post times for the datetime processor. Nil means
	// the forum's own zone, config.DefaultTimezone.
	Location    *time.Location
	Parallelism int
}

func (o Options) withDefaults() Options {
	if o.MinMessages <= 0 {
		o.MinMessages = 200
	}
	if o.KeepRatio <= 0 {
		o.KeepRatio = 0.1
	}
	if o.TopTerms <= 0 {
		o.TopTerms = tfidf.DefaultTopTerms
	}
	if o.SentenceSample <= 0 {
		o.SentenceSample = 1000
	}
	if o.MinSentences <= 0 {
		o.MinSentences = 200
	}
	if o.Tokenizer == nil {
		o.Tokenizer = sentiment.WordTokenizer{}
	}
	if o.Scorer == nil {
		o.Scorer = sentiment.DefaultLexicon()
	}
	if o.Location == nil {
		o.Location = forumLocation()
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 4
	}
	return o
}

// forumLocation loads config.DefaultTimezone from the embedded zone
// database, so it only falls back to UTC if that database is broken.
func forumLocation() *time.Location {
	loc, err := config.ForumConfig{}.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

// OptionsFromConfig builds run options, loading the stop-word list and the
// sentiment lexicon from disk when their paths are set.
func OptionsFromConfig(cfg config.ProcessorConfig, loc *time.Location) (Options, error) {
	opts := Options{
		MinMessages:    cfg.MinMessages,
		SampleTokens:   cfg.SampleTokens,
		KeepRatio:      cfg.KeepRatio,
		TopTerms:       cfg.TopTerms,
		SentenceSample: cfg.SentenceSample,
		MinSentences:   cfg.MinSentences,
		Seed:           cfg.Seed,
		Location:       loc,
		Parallelism:    cfg.Parallelism,
		Stopwords:      tokenizer.DefaultStopwords(),
	}
	if cfg.LegacyLengthNorm {
		opts.Norm = tfidf.NormLegacyCorpus
	}
	if cfg.StopwordsPath != "" {
		sw, err := tokenizer.LoadStopwords(cfg.StopwordsPath)
		if err != nil {
			return Options{}, fmt.Errorf("loading stopwords: %w", err)
		}
		opts.Stopwords = sw
	}
	if cfg.LexiconPath != "" {
		lex, err := sentiment.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return Options{}, fmt.Errorf("loading lexicon: %w", err)
		}
		opts.Scorer = lex
	}
	return opts, nil
}

// topics returns the topics in scope, ordered by id.
func (o Options) topics(idx *corpus.Index) []*corpus.Topic {
	all := idx.SortedTopics()
	if len(o.TopicIDs) == 0 {
		return all
	}
	out := all[:0:0]
	for _, t := range all {
		if slices.Contains(o.TopicIDs, t.ID) {
			out = append(out, t)
		}
	}
	return out
}

// includesUser reports whether posts by id are in scope.
func (o Options) includesUser(id int64) bool {
	return len(o.UserIDs) == 0 || slices.Contains(o.UserIDs, id)
}

// posts calls fn for every in-scope post, topics by id and posts in order.
func (o Options) posts(idx *corpus.Index, fn func(t *corpus.Topic, p *corpus.Post)) {
	for _, t := range o.topics(idx) {
		for i := range t.Posts {
			if o.includesUser(t.Posts[i].AuthorID) {
				fn(t, &t.Posts[i])
			}
		}
	}
}
