package profile

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopTokens(t *testing.T) {
	got := TopTokens([]tfidf.TermWeight{
		{Term: "b", Weight: 1},
		{Term: "a", Weight: 3},
		{Term: "c", Weight: 1},
	})
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Empty(t, TopTokens(nil))
}

func TestTopSmileysAndQuotes(t *testing.T) {
	assert.Equal(t, []SmileyCount{{":)", 3}, {":(", 1}, {";)", 1}},
		TopSmileys(processor.Tally{";)": 1, ":)": 3, ":(": 1}))
	assert.Equal(t, []QuoteCount{{"bob", 2}, {"alice", 1}},
		TopQuotes(processor.Tally{"alice": 1, "bob": 2}))
	assert.NotNil(t, TopSmileys(nil))
}

func testIndex() *corpus.Index {
	idx := corpus.NewIndex()
	idx.Merge(&corpus.Page{TopicID: 10, Number: 1, Title: "Jeux", URL: "https://forum.test/threads/10-jeux", Posts: []corpus.PagePost{
		{Author: corpus.User{ID: 1, Name: "Alice", URL: "members/1-alice"}, Post: corpus.Post{ID: 100, Message: "salut", Timestamp: 1615800600000}},
		{Author: corpus.User{ID: 2, Name: "Bob", URL: "members/2-bob"}, Post: corpus.Post{ID: 101, Message: "yo", Timestamp: 1615804200000,
			Quotes: []corpus.Quote{{AuthorName: "Alice"}}}},
	}})
	idx.Finalize()
	return idx
}

func saveArtifacts(t *testing.T, store *processor.ArtifactStore, skip processor.Kind) {
	t.Helper()
	results, err := processor.NewPipeline(nil).RunAll(context.Background(), nil, testIndex(), processor.Options{MinMessages: 1})
	require.NoError(t, err)
	for k, v := range results {
		if k != skip {
			require.NoError(t, store.Save(k, v))
		}
	}
}

func TestImportAll(t *testing.T) {
	store := processor.NewArtifactStore(t.TempDir())
	saveArtifacts(t, store, "")
	repo := NewMemoryStore()
	require.NoError(t, repo.CreateUserProfile(context.Background(), UserProfile{ID: 99, Name: "stale"}))

	report, err := NewImporter(repo, nil).ImportAll(context.Background(), testIndex(), store)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Topics: 1, Users: 2}, report)

	_, err = repo.UserByName(context.Background(), "stale")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	bob, err := repo.UserByName(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, []QuoteCount{{"Alice", 1}}, bob.QuotesFrom)
	assert.Equal(t, []processor.TopicCount{{ID: 10, Name: "Jeux", Count: 1}}, bob.Topics)
	require.NotNil(t, bob.Activity)

	alice, err := repo.UserByName(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, []QuoteCount{{"Bob", 1}}, alice.QuotedBy)
	assert.Nil(t, alice.Sentiment)

	topics, err := repo.ListTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TopicSummary{{ID: 10, Title: "Jeux"}}, topics)
}

func TestImportAllHaltsOnMissingArtifact(t *testing.T) {
	store := processor.NewArtifactStore(t.TempDir())
	saveArtifacts(t, store, processor.KindSentiment)
	repo := NewMemoryStore()
	require.NoError(t, repo.CreateUserProfile(context.Background(), UserProfile{ID: 99, Name: "kept"}))

	_, err := NewImporter(repo, nil).ImportAll(context.Background(), testIndex(), store)
	assert.ErrorIs(t, err, apperrors.ErrMissingArtifact)

	kept, err := repo.UserByName(context.Background(), "kept")
	require.NoError(t, err, "nothing is truncated when an artifact is missing")
	assert.Equal(t, int64(99), kept.ID)
}

func TestMemoryStoreSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore()
	for i, name := range []string{"Alice", "alfred", "Bob", "ALBERT"} {
		require.NoError(t, repo.CreateUserProfile(ctx, UserProfile{ID: int64(i + 1), Name: name}))
	}
	names, err := repo.SearchUsersByNamePrefix(ctx, "al", 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALBERT", "Alice", "alfred"}, names)

	names, err = repo.SearchUsersByNamePrefix(ctx, "al", 2)
	require.NoError(t, err)
	assert.Len(t, names, 2)

	require.NoError(t, repo.CreateTopicProfile(ctx, TopicProfile{ID: 1, Title: "A", Tokens: []tfidf.TermWeight{{Term: "zelda", Weight: 1}}}))
	require.NoError(t, repo.CreateTopicProfile(ctx, TopicProfile{ID: 2, Title: "B", Tokens: []tfidf.TermWeight{{Term: "mario", Weight: 1}}}))
	topics, err := repo.SearchTopicsByTerm(ctx, "zelda")
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, int64(1), topics[0].ID)

	assert.ErrorIs(t, repo.CreateTopicProfile(ctx, TopicProfile{ID: 1}), apperrors.ErrInvalidInput)

	require.NoError(t, repo.TruncateAll(ctx))
	list, err := repo.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = repo.UserByName(ctx, "Bob")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestUserRowEncodesEmptySections(t *testing.T) {
	row, err := userRow(UserProfile{ID: 1, Name: "a"})
	require.NoError(t, err)
	require.Len(t, row, len(userColumns))
	assert.Equal(t, "[]", row[5])
	assert.Equal(t, "[]", row[9])
	assert.Nil(t, row[10])
	assert.Nil(t, row[11])

	w := &processor.Week{}
	row, err = userRow(UserProfile{ID: 1, Activity: w, Sentiment: &processor.Sentiment{Positive: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"negative":0,"neutral":0,"positive":1}`, row[10].(string))
}
