package processor

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
)

// Stats is the single global record of the stats processor.
type Stats struct {
	Topics int `json:"topics"`
	Users  int `json:"users"`
	Posts  int `json:"posts"`
	Quotes int `json:"quotes"`
	Smiley int `json:"smiley"`
}

type statsProcessor struct{}

func (statsProcessor) Kind() Kind { return KindStats }

func (statsProcessor) Run(_ context.Context, idx *corpus.Index, opts Options) (any, error) {
	var s Stats
	s.Topics = len(opts.topics(idx))
	for _, u := range idx.SortedUsers() {
		if opts.includesUser(u.ID) {
			s.Users++
		}
	}
	opts.posts(idx, func(_ *corpus.Topic, p *corpus.Post) {
		s.Posts++
		s.Quotes += len(p.Quotes)
		s.Smiley += len(p.Smileys)
	})
	return s, nil
}

// Tally counts occurrences by string key.
type Tally map[string]int

// SmileyResult tallies smiley codes per topic and per user.
type SmileyResult struct {
	Topics map[int64]Tally `json:"topics"`
	Users  map[int64]Tally `json:"users"`
}

type smileyProcessor struct{}

func (smileyProcessor) Kind() Kind { return KindSmiley }

// Run creates an entry for every topic in scope and every author with at
// least one post, even when they used no smiley.
func (smileyProcessor) Run(_ context.Context, idx *corpus.Index, opts Options) (any, error) {
	res := SmileyResult{Topics: map[int64]Tally{}, Users: map[int64]Tally{}}
	for _, t := range opts.topics(idx) {
		res.Topics[t.ID] = Tally{}
	}
	opts.posts(idx, func(t *corpus.Topic, p *corpus.Post) {
		user, ok := res.Users[p.AuthorID]
		if !ok {
			user = Tally{}
			res.Users[p.AuthorID] = user
		}
		for _, s := range p.Smileys {
			res.Topics[t.ID][s]++
			user[s]++
		}
	})
	return res, nil
}

// QuoteResult is the quote network. From maps a quoting user to the names
// they quoted; By maps a quoted user to the names of who quoted them.
type QuoteResult struct {
	From map[int64]Tally `json:"from"`
	By   map[int64]Tally `json:"by"`
}

type quoteProcessor struct{}

func (quoteProcessor) Kind() Kind { return KindQuote }

// Run counts attributed quotes. Quotes without a name are ignored; quotes
// whose name matches no user only count in From.
func (quoteProcessor) Run(_ context.Context, idx *corpus.Index, opts Options) (any, error) {
	res := QuoteResult{From: map[int64]Tally{}, By: map[int64]Tally{}}
	names := idx.UserNameIndex()
	opts.posts(idx, func(_ *corpus.Topic, p *corpus.Post) {
		for _, q := range p.Quotes {
			from, ok := res.From[p.AuthorID]
			if !ok {
				from = Tally{}
				res.From[p.AuthorID] = from
			}
			if q.AuthorName == "" {
				continue
			}
			from[q.AuthorName]++

			quotedID, resolved := quotedUser(q, names)
			if !resolved {
				continue
			}
			author, ok := idx.User(p.AuthorID)
			if !ok || author.Name == "" {
				continue
			}
			by, ok := res.By[quotedID]
			if !ok {
				by = Tally{}
				res.By[quotedID] = by
			}
			by[author.Name]++
		}
	})
	return res, nil
}

// quotedUser prefers the id bound by quote resolution and falls back to the
// name index for an index that was not finalized.
func quotedUser(q corpus.Quote, names map[string]int64) (int64, bool) {
	if q.AuthorID != nil {
		return *q.AuthorID, true
	}
	id, ok := names[q.AuthorName]
	return id, ok
}

// TopicCount is one entry of a user's topic affinity.
type TopicCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UserTopicResult maps user id to topic id to post count in that topic.
type UserTopicResult map[int64]map[int64]*TopicCount

type userTopicProcessor struct{}

func (userTopicProcessor) Kind() Kind { return KindUserTopic }

func (userTopicProcessor) Run(_ context.Context, idx *corpus.Index, opts Options) (any, error) {
	res := UserTopicResult{}
	opts.posts(idx, func(t *corpus.Topic, p *corpus.Post) {
		topics, ok := res[p.AuthorID]
		if !ok {
			topics = map[int64]*TopicCount{}
			res[p.AuthorID] = topics
		}
		tc, ok := topics[t.ID]
		if !ok {
			tc = &TopicCount{ID: t.ID, Name: t.Title}
			topics[t.ID] = tc
		}
		tc.Count++
	})
	return res, nil
}
