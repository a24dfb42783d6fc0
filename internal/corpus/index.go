package corpus

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// Index owns every Topic and User. Merge may be called from several
// goroutines; the read accessors and finalize passes assume ingestion has
// completed.
type Index struct {
	mu      sync.RWMutex
	Topics  map[int64]*Topic
	Users   map[int64]*User
	postIDs map[int64]map[int64]struct{}
}

func NewIndex() *Index {
	return &Index{
		Topics:  make(map[int64]*Topic),
		Users:   make(map[int64]*User),
		postIDs: make(map[int64]map[int64]struct{}),
	}
}

// MergeResult reports what a Merge call changed.
type MergeResult struct {
	NewTopic bool
	NewUsers int
	Added    int
	Skipped  int
}

// Merge registers the page's topic and authors on first sighting and appends
// its posts. Posts whose id is already known for the topic are skipped, so
// merging the same page twice is harmless.
func (idx *Index) Merge(p *Page) MergeResult {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var res MergeResult
	topic, ok := idx.Topics[p.TopicID]
	if !ok {
		topic = &Topic{ID: p.TopicID, Title: p.Title, URL: p.URL, Posts: []Post{}}
		idx.Topics[p.TopicID] = topic
		res.NewTopic = true
	}
	seen := idx.seenPosts(topic)

	for i, pp := range p.Posts {
		if p.Number == 1 && i == 0 && topic.OriginalPosterID == nil {
			op := pp.Author.ID
			topic.OriginalPosterID = &op
		}
		if _, known := idx.Users[pp.Author.ID]; !known {
			author := pp.Author
			author.Messages = nil
			idx.Users[author.ID] = &author
			res.NewUsers++
		}
		if _, dup := seen[pp.Post.ID]; dup {
			res.Skipped++
			continue
		}
		seen[pp.Post.ID] = struct{}{}
		post := pp.Post
		post.TopicID = topic.ID
		post.AuthorID = pp.Author.ID
		post.Page = p.Number
		topic.Posts = append(topic.Posts, post)
		res.Added++
	}
	return res
}

func (idx *Index) seenPosts(t *Topic) map[int64]struct{} {
	if idx.postIDs == nil {
		idx.postIDs = make(map[int64]map[int64]struct{})
	}
	seen, ok := idx.postIDs[t.ID]
	if !ok {
		seen = make(map[int64]struct{}, len(t.Posts))
		for _, p := range t.Posts {
			seen[p.ID] = struct{}{}
		}
		idx.postIDs[t.ID] = seen
	}
	return seen
}

// SortPosts orders every topic's posts by page, then post id. The sort is
// stable, so the result does not depend on the order pages were merged in.
func (idx *Index) SortPosts() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, t := range idx.Topics {
		slices.SortStableFunc(t.Posts, comparePosts)
	}
}

func comparePosts(a, b Post) int {
	if c := cmp.Compare(a.Page, b.Page); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// UserNameIndex maps display names to user ids. Users are visited in
// ascending id order and a later user overwrites an earlier one with the
// same name.
func (idx *Index) UserNameIndex() map[string]int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.userNameIndex()
}

func (idx *Index) userNameIndex() map[string]int64 {
	names := make(map[string]int64, len(idx.Users))
	for _, id := range slices.Sorted(maps.Keys(idx.Users)) {
		names[idx.Users[id].Name] = id
	}
	return names
}

// ResolveQuotes binds every quote's author name to a user id. Unknown names
// leave AuthorID nil. Running it again yields the same assignments.
func (idx *Index) ResolveQuotes() (resolved, unresolved int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	names := idx.userNameIndex()
	for _, t := range idx.Topics {
		for i := range t.Posts {
			quotes := t.Posts[i].Quotes
			for j := range quotes {
				id, ok := names[quotes[j].AuthorName]
				if !ok || quotes[j].AuthorName == "" {
					quotes[j].AuthorID = nil
					unresolved++
					continue
				}
				quotes[j].AuthorID = &id
				resolved++
			}
		}
	}
	return resolved, unresolved
}

// AggregateUserMessages rebuilds each user's message list from the posts,
// walking topics by id and posts in their current order.
func (idx *Index) AggregateUserMessages() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, u := range idx.Users {
		u.Messages = []string{}
	}
	for _, id := range slices.Sorted(maps.Keys(idx.Topics)) {
		for _, p := range idx.Topics[id].Posts {
			if u, ok := idx.Users[p.AuthorID]; ok {
				u.Messages = append(u.Messages, p.Message)
			}
		}
	}
}

// Finalize runs the corpus-wide passes that need every page merged.
func (idx *Index) Finalize() {
	idx.SortPosts()
	idx.ResolveQuotes()
	idx.AggregateUserMessages()
}

// SortedTopics returns the topics ordered by id.
func (idx *Index) SortedTopics() []*Topic {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*Topic, 0, len(idx.Topics))
	for _, id := range slices.Sorted(maps.Keys(idx.Topics)) {
		out = append(out, idx.Topics[id])
	}
	return out
}

// SortedUsers returns the users ordered by id.
func (idx *Index) SortedUsers() []*User {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*User, 0, len(idx.Users))
	for _, id := range slices.Sorted(maps.Keys(idx.Users)) {
		out = append(out, idx.Users[id])
	}
	return out
}

func (idx *Index) Topic(id int64) (*Topic, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	t, ok := idx.Topics[id]
	return t, ok
}

func (idx *Index) User(id int64) (*User, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	u, ok := idx.Users[id]
	return u, ok
}

// Counts returns the number of topics, users and posts.
func (idx *Index) Counts() (topics, users, posts int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, t := range idx.Topics {
		posts += len(t.Posts)
	}
	return len(idx.Topics), len(idx.Users), posts
}
