package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
)

// Artifacts is everything a profile import needs from the processors.
type Artifacts struct {
	Terms     processor.TermWeightResult
	Smileys   processor.SmileyResult
	Quotes    processor.QuoteResult
	Topics    processor.UserTopicResult
	Sentiment processor.SentimentResult
	Activity  processor.TemporalResult
}

// LoadArtifacts reads every required artifact. The first missing one
// aborts with ErrMissingArtifact.
func LoadArtifacts(store *processor.ArtifactStore) (*Artifacts, error) {
	var (
		a   Artifacts
		err error
	)
	if a.Terms, err = processor.LoadTermWeights(store); err != nil {
		return nil, err
	}
	if a.Smileys, err = processor.LoadSmiley(store); err != nil {
		return nil, err
	}
	if a.Quotes, err = processor.LoadQuote(store); err != nil {
		return nil, err
	}
	if a.Topics, err = processor.LoadUserTopic(store); err != nil {
		return nil, err
	}
	if a.Sentiment, err = processor.LoadSentiment(store); err != nil {
		return nil, err
	}
	if a.Activity, err = processor.LoadDatetime(store); err != nil {
		return nil, err
	}
	return &a, nil
}

// ImportReport counts what an import wrote.
type ImportReport struct {
	Topics int
	Users  int
}

type Importer struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewImporter(repo Repository, m *metrics.Metrics) *Importer {
	return &Importer{
		repo:    repo,
		metrics: m,
		logger:  slog.Default().With("component", "profile-importer"),
	}
}

// ImportAll loads the artifacts before touching the repository, so a
// missing artifact halts the run with the previous profiles intact.
func (im *Importer) ImportAll(ctx context.Context, idx *corpus.Index, store *processor.ArtifactStore) (ImportReport, error) {
	artifacts, err := LoadArtifacts(store)
	if err != nil {
		return ImportReport{}, fmt.Errorf("loading artifacts: %w", err)
	}
	topics, users := Build(idx, artifacts)
	if err := im.repo.ReplaceAll(ctx, topics, users); err != nil {
		return ImportReport{}, fmt.Errorf("replacing profiles: %w", err)
	}
	for range topics {
		im.metrics.ProfileSaved("topic")
	}
	for range users {
		im.metrics.ProfileSaved("user")
	}
	im.logger.Info("profiles imported", "topics", len(topics), "users", len(users))
	return ImportReport{Topics: len(topics), Users: len(users)}, nil
}

// Build assembles one profile per topic and user of the index, in id
// order. Entities missing from an artifact get empty sections.
func Build(idx *corpus.Index, a *Artifacts) ([]TopicProfile, []UserProfile) {
	var topics []TopicProfile
	for _, t := range idx.SortedTopics() {
		topics = append(topics, TopicProfile{
			ID:     t.ID,
			Title:  t.Title,
			URL:    t.URL,
			Tokens: orEmpty(a.Terms.Topics[t.ID]),
		})
	}

	var users []UserProfile
	for _, u := range idx.SortedUsers() {
		users = append(users, UserProfile{
			ID:         u.ID,
			Name:       u.Name,
			Title:      u.Title,
			URL:        u.URL,
			AvatarURL:  u.AvatarURL,
			Tokens:     orEmpty(a.Terms.Users[u.ID]),
			Smileys:    TopSmileys(a.Smileys.Users[u.ID]),
			QuotesFrom: TopQuotes(a.Quotes.From[u.ID]),
			QuotedBy:   TopQuotes(a.Quotes.By[u.ID]),
			Topics:     topTopics(a.Topics[u.ID]),
			Sentiment:  a.Sentiment[u.ID],
			Activity:   a.Activity[u.ID],
		})
	}
	return topics, users
}

func orEmpty(terms []tfidf.TermWeight) []tfidf.TermWeight {
	if terms == nil {
		return []tfidf.TermWeight{}
	}
	return terms
}
