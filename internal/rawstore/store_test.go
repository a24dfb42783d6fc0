package rawstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetOverwrite(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Page{TopicID: 1234, Number: 1, HTML: []byte("v1")}))
	require.NoError(t, s.Put(ctx, Page{TopicID: 1234, Number: 1, HTML: []byte("v2")}))

	p, err := s.Get(1234, 1)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(p.HTML))
	assert.FileExists(t, filepath.Join(s.Dir(), "1234", "1.html"))
	assert.NoFileExists(t, filepath.Join(s.Dir(), "1234", "1.html.tmp"))
}

func TestListingIsNumericAndSorted(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	for _, p := range []Page{{TopicID: 20, Number: 10}, {TopicID: 20, Number: 2}, {TopicID: 3, Number: 1}} {
		require.NoError(t, s.Put(ctx, p))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir(), "notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "20", "readme.txt"), nil, 0o644))

	topics, err := s.Topics()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 20}, topics)

	pages, err := s.Pages(20)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10}, pages)
}

func TestMissingEntries(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent"))
	topics, err := s.Topics()
	require.NoError(t, err)
	assert.Empty(t, topics)

	_, err = s.Get(1, 1)
	assert.ErrorIs(t, err, apperrors.ErrTopicNotFound)

	assert.ErrorIs(t, s.Put(context.Background(), Page{TopicID: 0, Number: 1}), apperrors.ErrInvalidInput)
}
