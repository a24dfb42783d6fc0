package processor

import (
	"cmp"
	"context"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/tokenizer"
)

// TermWeightResult holds the top weighted terms of every topic and user
// with enough messages. Topics and users are weighted as two separate
// collections.
type TermWeightResult struct {
	Topics map[int64][]tfidf.TermWeight `json:"topics"`
	Users  map[int64][]tfidf.TermWeight `json:"users"`
}

type tfidfProcessor struct{}

func (tfidfProcessor) Kind() Kind { return KindTfidf }

type entityMessages struct {
	id       int64
	messages []string
}

func (tfidfProcessor) Run(ctx context.Context, idx *corpus.Index, opts Options) (any, error) {
	var topics []entityMessages
	userPos := map[int64]int{}
	var users []entityMessages
	for _, t := range opts.topics(idx) {
		topic := entityMessages{id: t.ID}
		for _, p := range t.Posts {
			if !opts.includesUser(p.AuthorID) {
				continue
			}
			topic.messages = append(topic.messages, p.Message)
			pos, ok := userPos[p.AuthorID]
			if !ok {
				pos = len(users)
				userPos[p.AuthorID] = pos
				users = append(users, entityMessages{id: p.AuthorID})
			}
			users[pos].messages = append(users[pos].messages, p.Message)
		}
		topics = append(topics, topic)
	}
	sortEntities(users)

	engine := tfidf.NewEngine(opts.Stopwords, opts.Norm)
	topicTerms, err := weigh(ctx, engine, topics, topicSalt, opts)
	if err != nil {
		return nil, err
	}
	userTerms, err := weigh(ctx, engine, users, userSalt, opts)
	if err != nil {
		return nil, err
	}
	return TermWeightResult{Topics: topicTerms, Users: userTerms}, nil
}

// weigh builds one document per entity above the message threshold, fits
// the collection and keeps each document's top terms.
func weigh(ctx context.Context, engine *tfidf.Engine, entities []entityMessages, salt uint64, opts Options) (map[int64][]tfidf.TermWeight, error) {
	eligible := entities[:0:0]
	for _, e := range entities {
		if len(e.messages) >= opts.MinMessages {
			eligible = append(eligible, e)
		}
	}

	docs := make([]*tfidf.Document, len(eligible))
	err := forEach(ctx, len(eligible), opts.Parallelism, func(_ context.Context, i int) error {
		e := eligible[i]
		tokens := tokenizer.TokenizeAll(e.messages)
		if opts.SampleTokens {
			tokens = tokenizer.Sample(tokens, opts.KeepRatio, opts.rng(salt, e.id))
		}
		docs[i] = tfidf.NewDocument(e.id, tokens)
		return nil
	})
	if err != nil {
		return nil, err
	}

	model := engine.Fit(docs)
	out := make(map[int64][]tfidf.TermWeight, model.Len())
	for i := 0; i < model.Len(); i++ {
		out[model.DocumentID(i)] = model.TopTerms(i, opts.TopTerms)
	}
	return out, nil
}

func sortEntities(es []entityMessages) {
	slices.SortFunc(es, func(a, b entityMessages) int { return cmp.Compare(a.id, b.id) })
}
