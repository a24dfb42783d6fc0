package processor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paris = mustLocation("Europe/Paris")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func member(id int64, name string) corpus.User {
	return corpus.User{ID: id, Name: name, URL: fmt.Sprintf("members/%d-%s", id, name)}
}

func msg(id int64, text string, at time.Time, smileys []string, quotes ...corpus.Quote) corpus.Post {
	var ts int64
	if !at.IsZero() {
		ts = at.UnixMilli()
	}
	if smileys == nil {
		smileys = []string{}
	}
	return corpus.Post{ID: id, Message: text, Timestamp: ts, Smileys: smileys, Quotes: quotes}
}

func quoteOf(name string) corpus.Quote {
	return corpus.Quote{AuthorName: name, Message: "quoted"}
}

// fixture builds a small finalized forum:
// topic 10 "Jeux": alice (Mon 10:30), bob quoting alice, an anonymous
// author and a ghost (Sun 23:59); topic 20 "Films": bob without date,
// alice quoting bob.
func fixture() *corpus.Index {
	idx := corpus.NewIndex()
	alice, bob := member(1, "alice"), member(2, "bob")
	idx.Merge(&corpus.Page{TopicID: 10, Number: 1, Title: "Jeux", Posts: []corpus.PagePost{
		{Author: alice, Post: msg(100, "Salut tout le monde!", time.Date(2021, 3, 15, 10, 30, 0, 0, paris), []string{":)"})},
		{Author: bob, Post: msg(101, "Bien vu.", time.Date(2021, 3, 21, 23, 59, 0, 0, paris), []string{":)", ";)"},
			quoteOf("alice"), quoteOf(""), quoteOf("ghost"))},
	}})
	idx.Merge(&corpus.Page{TopicID: 20, Number: 1, Title: "Films", Posts: []corpus.PagePost{
		{Author: bob, Post: msg(200, "Encore un film", time.Time{}, nil)},
		{Author: alice, Post: msg(201, "Oui", time.Date(2021, 3, 16, 0, 5, 0, 0, paris), nil, quoteOf("bob"))},
	}})
	idx.Finalize()
	return idx
}

func run(t *testing.T, k Kind, idx *corpus.Index, opts Options) any {
	t.Helper()
	out, err := NewPipeline(nil).Run(context.Background(), string(k), idx, opts)
	require.NoError(t, err)
	return out
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("wordcloud")
	assert.ErrorIs(t, err, apperrors.ErrUnknownProcessor)
}

func TestRunUnknownProcessor(t *testing.T) {
	_, err := NewPipeline(nil).Run(context.Background(), "nope", fixture(), Options{})
	assert.ErrorIs(t, err, apperrors.ErrUnknownProcessor)
}

func TestRunAllValidatesBeforeRunning(t *testing.T) {
	p := NewPipeline(nil)
	out, err := p.RunAll(context.Background(), []string{"stats", "bogus"}, fixture(), Options{})
	assert.ErrorIs(t, err, apperrors.ErrUnknownProcessor)
	assert.Nil(t, out)

	out, err = p.RunAll(context.Background(), []string{"stats", "quote", "stats"}, fixture(), Options{})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = p.RunAll(context.Background(), nil, fixture(), Options{Location: paris})
	require.NoError(t, err)
	assert.Len(t, out, len(Kinds()))
}

func TestStats(t *testing.T) {
	got := run(t, KindStats, fixture(), Options{}).(Stats)
	assert.Equal(t, Stats{Topics: 2, Users: 2, Posts: 4, Quotes: 4, Smiley: 3}, got)
}

func TestSmileyTallies(t *testing.T) {
	got := run(t, KindSmiley, fixture(), Options{}).(SmileyResult)
	assert.Equal(t, Tally{":)": 2, ";)": 1}, got.Topics[10])
	assert.Equal(t, Tally{}, got.Topics[20])
	assert.Equal(t, Tally{":)": 1}, got.Users[1])
	assert.Equal(t, Tally{":)": 1, ";)": 1}, got.Users[2])
}

func TestQuoteNetwork(t *testing.T) {
	got := run(t, KindQuote, fixture(), Options{}).(QuoteResult)
	assert.Equal(t, Tally{"alice": 1, "ghost": 1}, got.From[2])
	assert.Equal(t, Tally{"bob": 1}, got.From[1])
	assert.Equal(t, Tally{"bob": 1}, got.By[1])
	assert.Equal(t, Tally{"alice": 1}, got.By[2])
	assert.Len(t, got.By, 2)
}

func TestQuoteNetworkWithoutFinalize(t *testing.T) {
	idx := corpus.NewIndex()
	idx.Merge(&corpus.Page{TopicID: 1, Number: 1, Posts: []corpus.PagePost{
		{Author: member(1, "alice"), Post: msg(1, "x", time.Time{}, nil)},
		{Author: member(2, "bob"), Post: msg(2, "y", time.Time{}, nil, quoteOf("alice"))},
	}})
	got := run(t, KindQuote, idx, Options{}).(QuoteResult)
	assert.Equal(t, Tally{"bob": 1}, got.By[1])
}

func TestUserTopicAffinity(t *testing.T) {
	got := run(t, KindUserTopic, fixture(), Options{}).(UserTopicResult)
	assert.Equal(t, &TopicCount{ID: 10, Name: "Jeux", Count: 1}, got[1][10])
	assert.Equal(t, &TopicCount{ID: 20, Name: "Films", Count: 1}, got[1][20])
	assert.Len(t, got[2], 2)
}

func TestDatetimeBuckets(t *testing.T) {
	got := run(t, KindDatetime, fixture(), Options{Location: paris}).(TemporalResult)
	require.Contains(t, got, int64(1))
	assert.Equal(t, 1, got[1].At(1, 10))
	assert.Equal(t, 1, got[1].At(2, 0))
	assert.Equal(t, 2, got[1].Total())

	require.Contains(t, got, int64(2))
	assert.Equal(t, 1, got[2].At(7, 22))
	assert.Equal(t, 1, got[2].Total(), "posts without a date are skipped")
}

func TestDatetimeUsesLocation(t *testing.T) {
	got := run(t, KindDatetime, fixture(), Options{Location: time.UTC}).(TemporalResult)
	// 10:30 in Paris (UTC+1 in March before DST) is 09:30 UTC.
	assert.Equal(t, 1, got[1].At(1, 8))
	// 00:05 on Tuesday in Paris is still Monday in UTC.
	assert.Equal(t, 1, got[1].At(1, 22))
}

func TestUserSubset(t *testing.T) {
	opts := Options{UserIDs: []int64{2}}
	stats := run(t, KindStats, fixture(), opts).(Stats)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 2, stats.Posts)

	topics := run(t, KindUserTopic, fixture(), Options{TopicIDs: []int64{20}}).(UserTopicResult)
	assert.NotContains(t, topics[1], int64(10))
}

// polarityScorer scores by the sentence's first token.
type polarityScorer struct{}

func (polarityScorer) Score(tokens []string) float64 {
	switch tokens[0] {
	case "good":
		return 1
	case "bad":
		return -1
	}
	return 0
}

func chatty(id int64, name string, sentences int) *corpus.Page {
	var b strings.Builder
	words := []string{"good", "bad", "meh"}
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "%s day %d. ", words[i%3], i)
	}
	return &corpus.Page{TopicID: id, Number: 1, Title: name, Posts: []corpus.PagePost{
		{Author: member(id, name), Post: msg(id*10, b.String(), time.Time{}, nil)},
	}}
}

func TestSentimentThreshold(t *testing.T) {
	idx := corpus.NewIndex()
	idx.Merge(chatty(1, "quiet", 199))
	idx.Merge(chatty(2, "loud", 300))
	idx.Finalize()

	got := run(t, KindSentiment, idx, Options{Scorer: polarityScorer{}}).(SentimentResult)
	assert.NotContains(t, got, int64(1))
	require.Contains(t, got, int64(2))
	assert.Equal(t, Sentiment{Negative: 100, Neutral: 100, Positive: 100}, *got[2])
}

func TestSentimentSampleIsCappedAndSeeded(t *testing.T) {
	idx := corpus.NewIndex()
	idx.Merge(chatty(3, "verbose", 1500))
	idx.Finalize()

	opts := Options{Scorer: polarityScorer{}, Seed: 42}
	first := run(t, KindSentiment, idx, opts).(SentimentResult)
	second := run(t, KindSentiment, idx, opts).(SentimentResult)
	s := first[3]
	require.NotNil(t, s)
	assert.Equal(t, 1000, s.Negative+s.Neutral+s.Positive)
	assert.Equal(t, first, second)
}

func TestSentimentSkipsEmptyTokenSentences(t *testing.T) {
	tally := classify([]string{":) !", "good one."}, lowercaseWords{}, polarityScorer{})
	assert.Equal(t, Sentiment{Positive: 1}, *tally)
}

func TestSentimentSkipsUsersWithoutWords(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "%d %d. ", i, i+1)
	}
	idx := corpus.NewIndex()
	idx.Merge(&corpus.Page{TopicID: 4, Number: 1, Title: "scores", Posts: []corpus.PagePost{
		{Author: member(4, "digits"), Post: msg(40, b.String(), time.Time{}, nil)},
	}})
	idx.Merge(chatty(5, "loud", 300))
	idx.Finalize()

	got := run(t, KindSentiment, idx, Options{Tokenizer: lowercaseWords{}, Scorer: polarityScorer{}}).(SentimentResult)
	assert.NotContains(t, got, int64(4))
	assert.Contains(t, got, int64(5))
	assert.Nil(t, classify([]string{"1 2.", "!!"}, lowercaseWords{}, polarityScorer{}))
}

func TestDefaultLocationIsForumZone(t *testing.T) {
	assert.Equal(t, "Europe/Paris", Options{}.withDefaults().Location.String())

	implicit := run(t, KindDatetime, fixture(), Options{}).(TemporalResult)
	explicit := run(t, KindDatetime, fixture(), Options{Location: paris}).(TemporalResult)
	assert.Equal(t, explicit, implicit)
}

type lowercaseWords struct{}

func (lowercaseWords) Tokenize(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if f[0] >= 'a' && f[0] <= 'z' {
			out = append(out, f)
		}
	}
	return out
}

func wordy(idx *corpus.Index, topicID int64, title string, authors []corpus.User, texts ...string) {
	page := &corpus.Page{TopicID: topicID, Number: 1, Title: title}
	for i, text := range texts {
		page.Posts = append(page.Posts, corpus.PagePost{
			Author: authors[i%len(authors)],
			Post:   msg(topicID*100+int64(i), text, time.Time{}, nil),
		})
	}
	idx.Merge(page)
}

func TestTermWeightsRespectThreshold(t *testing.T) {
	idx := corpus.NewIndex()
	alice, bob := member(1, "alice"), member(2, "bob")
	wordy(idx, 10, "Jeux", []corpus.User{alice, bob}, "zelda console manette", "zelda cartouche")
	wordy(idx, 20, "Films", []corpus.User{alice}, "cinéma projecteur", "cinéma écran")
	wordy(idx, 30, "Solo", []corpus.User{bob}, "unique message ici")
	idx.Finalize()

	got := run(t, KindTfidf, idx, Options{MinMessages: 2}).(TermWeightResult)
	assert.Contains(t, got.Topics, int64(10))
	assert.Contains(t, got.Topics, int64(20))
	assert.NotContains(t, got.Topics, int64(30), "below threshold")
	assert.Contains(t, got.Users, int64(1))
	assert.Contains(t, got.Users, int64(2))

	top := got.Topics[10]
	require.NotEmpty(t, top)
	assert.Equal(t, "zelda", top[0].Term)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Weight, top[i].Weight)
	}
}

func TestTermWeightsSampling(t *testing.T) {
	idx := corpus.NewIndex()
	var texts []string
	for i := 0; i < 20; i++ {
		texts = append(texts, fmt.Sprintf("mot%c autre%c", 'a'+i, 'a'+i))
	}
	wordy(idx, 10, "A", []corpus.User{member(1, "alice")}, texts...)
	wordy(idx, 20, "B", []corpus.User{member(2, "bob")}, texts...)
	idx.Finalize()

	opts := Options{MinMessages: 1, SampleTokens: true, KeepRatio: 0.25, Seed: 7, TopTerms: 100}
	first := run(t, KindTfidf, idx, opts).(TermWeightResult)
	second := run(t, KindTfidf, idx, opts).(TermWeightResult)
	assert.Equal(t, first, second)
	assert.LessOrEqual(t, len(first.Topics[10]), 10)
}
