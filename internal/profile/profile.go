// Package profile assembles per-topic and per-user profiles from processor
// artifacts and persists them for the read API.
package profile

import (
	"cmp"
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
)

type TopicProfile struct {
	ID     int64              `json:"id"`
	Title  string             `json:"title"`
	URL    string             `json:"url"`
	Tokens []tfidf.TermWeight `json:"tokens"`
}

// TopicSummary is the listing form of a topic.
type TopicSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type UserProfile struct {
	ID         int64                  `json:"id"`
	Name       string                 `json:"name"`
	Title      string                 `json:"title"`
	URL        string                 `json:"url"`
	AvatarURL  string                 `json:"avatar"`
	Tokens     []tfidf.TermWeight     `json:"tokens"`
	Smileys    []SmileyCount          `json:"smileys"`
	QuotesFrom []QuoteCount           `json:"quotesFrom"`
	QuotedBy   []QuoteCount           `json:"quotedBy"`
	Topics     []processor.TopicCount `json:"topics"`
	Sentiment  *processor.Sentiment   `json:"sentiment"`
	Activity   *processor.Week        `json:"activity"`
}

type SmileyCount struct {
	Smiley string `json:"smiley"`
	Count  int    `json:"count"`
}

type QuoteCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// Repository is the persistence contract of the profile store.
type Repository interface {
	CreateTopicProfile(ctx context.Context, p TopicProfile) error
	CreateUserProfile(ctx context.Context, p UserProfile) error
	TruncateAll(ctx context.Context) error
	// ReplaceAll swaps every stored profile for the given ones atomically.
	ReplaceAll(ctx context.Context, topics []TopicProfile, users []UserProfile) error
	SearchTopicsByTerm(ctx context.Context, term string) ([]TopicProfile, error)
	SearchUsersByNamePrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	UserByName(ctx context.Context, name string) (*UserProfile, error)
	ListTopics(ctx context.Context) ([]TopicSummary, error)
}

// TopTokens returns the terms ordered by descending weight. Equal weights
// keep their input order.
func TopTokens(terms []tfidf.TermWeight) []string {
	sorted := slices.Clone(terms)
	slices.SortStableFunc(sorted, func(a, b tfidf.TermWeight) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	out := make([]string, len(sorted))
	for i, tw := range sorted {
		out[i] = tw.Term
	}
	return out
}

// TopSmileys flattens a tally, most used first and by code on ties.
func TopSmileys(tally processor.Tally) []SmileyCount {
	out := make([]SmileyCount, 0, len(tally))
	for code, n := range tally {
		out = append(out, SmileyCount{Smiley: code, Count: n})
	}
	slices.SortFunc(out, func(a, b SmileyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Smiley, b.Smiley)
	})
	return out
}

// TopQuotes flattens a quote tally, most frequent first and by name on ties.
func TopQuotes(tally processor.Tally) []QuoteCount {
	out := make([]QuoteCount, 0, len(tally))
	for name, n := range tally {
		out = append(out, QuoteCount{Username: name, Count: n})
	}
	slices.SortFunc(out, func(a, b QuoteCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Username, b.Username)
	})
	return out
}

// topTopics lists a user's topics, busiest first and by id on ties.
func topTopics(topics map[int64]*processor.TopicCount) []processor.TopicCount {
	out := make([]processor.TopicCount, 0, len(topics))
	for _, tc := range topics {
		out = append(out, *tc)
	}
	slices.SortFunc(out, func(a, b processor.TopicCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
