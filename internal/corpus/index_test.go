package corpus

import (
	"encoding/json"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(id int64, name string) User {
	return User{ID: id, Name: name, URL: "members/" + name}
}

func post(id int64, msg string, quotes ...Quote) Post {
	return Post{ID: id, Message: msg, Timestamp: id * 1000, Quotes: quotes, Smileys: []string{}}
}

func page(topicID int64, number int, posts ...PagePost) *Page {
	return &Page{TopicID: topicID, Number: number, Title: "Topic", URL: "https://forum.test/threads/x", Posts: posts}
}

func TestMergeRegistersEntitiesOnce(t *testing.T) {
	idx := NewIndex()
	alice := user(1, "alice")

	idx.Merge(page(10, 1, PagePost{Post: post(100, "hello"), Author: alice}))
	idx.Merge(page(20, 1, PagePost{Post: post(200, "again"), Author: alice}))

	require.Len(t, idx.Users, 1)
	require.Len(t, idx.Topics, 2)
	assert.Equal(t, int64(1), idx.Topics[10].Posts[0].AuthorID)
	assert.Equal(t, int64(20), idx.Topics[20].Posts[0].TopicID)
	require.NotNil(t, idx.Topics[10].OriginalPosterID)
	assert.Equal(t, int64(1), *idx.Topics[10].OriginalPosterID)
}

func TestMergeOriginalPosterOnlyFromFirstPage(t *testing.T) {
	idx := NewIndex()
	idx.Merge(page(10, 2, PagePost{Post: post(300, "late"), Author: user(2, "bob")}))
	assert.Nil(t, idx.Topics[10].OriginalPosterID)

	idx.Merge(page(10, 1,
		PagePost{Post: post(100, "first"), Author: user(1, "alice")},
		PagePost{Post: post(101, "second"), Author: user(2, "bob")},
	))
	require.NotNil(t, idx.Topics[10].OriginalPosterID)
	assert.Equal(t, int64(1), *idx.Topics[10].OriginalPosterID)
}

func TestMergeSkipsKnownPosts(t *testing.T) {
	idx := NewIndex()
	p := page(10, 1, PagePost{Post: post(100, "hello"), Author: user(1, "alice")})

	first := idx.Merge(p)
	second := idx.Merge(p)

	assert.Equal(t, 1, first.Added)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Skipped)
	assert.Len(t, idx.Topics[10].Posts, 1)
}

func TestSortPostsIndependentOfMergeOrder(t *testing.T) {
	pages := []*Page{
		page(10, 1, PagePost{Post: post(1, "a"), Author: user(1, "a")}, PagePost{Post: post(2, "b"), Author: user(2, "b")}),
		page(10, 2, PagePost{Post: post(5, "c"), Author: user(1, "a")}, PagePost{Post: post(3, "d"), Author: user(2, "b")}),
		page(10, 3, PagePost{Post: post(9, "e"), Author: user(3, "c")}),
	}

	var want []int64
	for i := 0; i < 20; i++ {
		idx := NewIndex()
		var wg sync.WaitGroup
		for _, j := range rand.Perm(len(pages)) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				idx.Merge(pages[j])
			}()
		}
		wg.Wait()
		idx.SortPosts()

		var got []int64
		for _, p := range idx.Topics[10].Posts {
			got = append(got, p.ID)
		}
		if want == nil {
			want = got
		}
		assert.Equal(t, want, got)
	}
	assert.Equal(t, []int64{1, 2, 3, 5, 9}, want)
}

func TestResolveQuotes(t *testing.T) {
	idx := NewIndex()
	idx.Merge(page(10, 1,
		PagePost{Post: post(1, "hi"), Author: user(1, "alice")},
		PagePost{Post: post(2, "re", Quote{AuthorName: "alice", Message: "hi"}, Quote{AuthorName: "ghost", Message: "boo"}), Author: user(2, "bob")},
	))

	resolved, unresolved := idx.ResolveQuotes()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, unresolved)

	quotes := idx.Topics[10].Posts[1].Quotes
	require.NotNil(t, quotes[0].AuthorID)
	assert.Equal(t, int64(1), *quotes[0].AuthorID)
	assert.Nil(t, quotes[1].AuthorID)
	assert.Equal(t, "ghost", quotes[1].AuthorName)

	before := idx.Serialize()
	idx.ResolveQuotes()
	assert.Equal(t, before, idx.Serialize())
}

func TestUserNameIndexLastWins(t *testing.T) {
	idx := NewIndex()
	idx.Merge(page(10, 1,
		PagePost{Post: post(1, "x"), Author: user(7, "dup")},
		PagePost{Post: post(2, "y"), Author: user(3, "dup")},
	))
	assert.Equal(t, int64(7), idx.UserNameIndex()["dup"])
}

func TestAggregateUserMessages(t *testing.T) {
	idx := NewIndex()
	idx.Merge(page(20, 1, PagePost{Post: post(5, "third"), Author: user(1, "alice")}))
	idx.Merge(page(10, 1,
		PagePost{Post: post(2, "second"), Author: user(1, "alice")},
		PagePost{Post: post(1, "first"), Author: user(1, "alice")},
	))
	idx.Merge(page(10, 1, PagePost{Post: post(3, "other"), Author: user(2, "bob")}))

	idx.Finalize()
	assert.Equal(t, []string{"first", "second", "third"}, idx.Users[1].Messages)
	assert.Equal(t, []string{"other"}, idx.Users[2].Messages)
}

func populated() *Index {
	idx := NewIndex()
	alice := user(1, "alice")
	alice.Title = "Membre"
	alice.AvatarURL = "avatars/1.png"
	idx.Merge(page(10, 1,
		PagePost{Post: post(1, "hello :)"), Author: alice},
		PagePost{Post: Post{ID: 2, Message: "re", Quotes: []Quote{{AuthorName: "alice", Message: "hello"}, {AuthorName: "nobody", Message: "x"}}, Smileys: []string{":)"}}, Author: user(2, "bob")},
	))
	idx.Merge(page(10, 2, PagePost{Post: post(3, "page two"), Author: user(3, "carol")}))
	idx.Merge(page(11, 2, PagePost{Post: post(9, "orphan page"), Author: alice}))
	idx.Finalize()
	return idx
}

func TestSnapshotRoundTrip(t *testing.T) {
	idx := populated()
	snap := idx.Serialize()
	assert.Contains(t, snap.Topics, "10")
	assert.Contains(t, snap.Users, "1")

	restored := NewIndex()
	require.NoError(t, restored.Deserialize(snap))
	assert.Equal(t, idx.Topics, restored.Topics)
	assert.Equal(t, idx.Users, restored.Users)

	snap.Topics["10"].Posts[1].Quotes[0].AuthorName = "mutated"
	assert.Equal(t, "alice", restored.Topics[10].Posts[1].Quotes[0].AuthorName)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	idx := populated()
	path := filepath.Join(t.TempDir(), "nested", "parsed.json")
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Topics, loaded.Topics)
	assert.Equal(t, idx.Users, loaded.Users)
	assert.Nil(t, loaded.Topics[10].Posts[1].Quotes[1].AuthorID)
	assert.Nil(t, loaded.Topics[11].OriginalPosterID)

	loaded.Merge(page(10, 1, PagePost{Post: post(1, "hello :)"), Author: user(1, "alice")}))
	assert.Len(t, loaded.Topics[10].Posts, 3)
}

func TestDeserializeRejectsMismatchedKey(t *testing.T) {
	snap := &Snapshot{
		Users:  map[string]*User{"2": {ID: 1}},
		Topics: map[string]*Topic{},
	}
	assert.Error(t, NewIndex().Deserialize(snap))
}

func TestDeserializeRejectsNullEntries(t *testing.T) {
	cases := map[string]string{
		"null user":  `{"users":{"7":null},"topics":{}}`,
		"null topic": `{"users":{},"topics":{"3":null}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var snap Snapshot
			require.NoError(t, json.Unmarshal([]byte(raw), &snap))

			idx := NewIndex()
			kept := user(1, "kept")
			idx.Users[1] = &kept
			err := idx.Deserialize(&snap)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Len(t, idx.Serialize().Users, 1)
		})
	}

	err := NewIndex().Deserialize(nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
