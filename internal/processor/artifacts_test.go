package processor

import (
	"context"
	"os"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactStoreRoundTrip(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	results, err := NewPipeline(nil).RunAll(context.Background(), nil, fixture(), Options{Location: paris})
	require.NoError(t, err)
	for k, v := range results {
		require.NoError(t, store.Save(k, v))
	}

	quotes, err := LoadQuote(store)
	require.NoError(t, err)
	assert.Equal(t, results[KindQuote], quotes)

	weeks, err := LoadDatetime(store)
	require.NoError(t, err)
	assert.Equal(t, results[KindDatetime], weeks)

	topics, err := LoadUserTopic(store)
	require.NoError(t, err)
	assert.Equal(t, results[KindUserTopic], topics)

	stats, err := LoadStats(store)
	require.NoError(t, err)
	assert.Equal(t, results[KindStats], stats)

	_, err = os.Stat(store.Path(KindTfidf) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestArtifactStoreMissing(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	_, err := LoadSentiment(store)
	assert.ErrorIs(t, err, apperrors.ErrMissingArtifact)
}

func TestArtifactStoreCorrupt(t *testing.T) {
	store := NewArtifactStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(KindSmiley), []byte("{"), 0o644))
	_, err := LoadSmiley(store)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrMissingArtifact)
}
