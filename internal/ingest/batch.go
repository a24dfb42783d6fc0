// Package ingest feeds raw pages into a corpus index, either as a one-shot
// batch over the page store or continuously from crawl notifications.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	"golang.org/x/sync/errgroup"
)

// PageSource lists and reads stored raw pages.
type PageSource interface {
	Topics() ([]int64, error)
	Pages(topicID int64) ([]int, error)
	Get(topicID int64, page int) (rawstore.Page, error)
}

// Parser extracts one raw page without touching any index.
type Parser interface {
	ParsePage(raw rawstore.Page) (*corpus.Page, error)
}

// TopicFailure records why a topic was left out of the index.
type TopicFailure struct {
	TopicID int64
	Err     error
}

// Report summarizes a batch run.
type Report struct {
	Topics int
	Pages  int
	Posts  int
	Failed []TopicFailure
}

// Batch parses every stored topic into an index.
type Batch struct {
	source      PageSource
	parser      Parser
	parallelism int
	logger      *slog.Logger
}

func NewBatch(source PageSource, parser Parser, parallelism int) *Batch {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Batch{
		source:      source,
		parser:      parser,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "ingest-batch"),
	}
}

// Run parses topics concurrently, each topic's pages in page order by a
// single goroutine. A topic is merged only when all of its pages parse, so
// a broken page never leaves a partial topic behind. Failed topics are
// reported, not returned as an error; only listing the store or
// cancellation fails the run.
func (b *Batch) Run(ctx context.Context, idx *corpus.Index) (Report, error) {
	topics, err := b.source.Topics()
	if err != nil {
		return Report{}, fmt.Errorf("listing stored topics: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for _, topicID := range topics {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages, err := b.parseTopic(topicID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.logger.Error("topic parse failed", "topic_id", topicID, "error", err)
				report.Failed = append(report.Failed, TopicFailure{TopicID: topicID, Err: err})
				return nil
			}
			for _, p := range pages {
				res := idx.Merge(p)
				report.Posts += res.Added
			}
			report.Topics++
			report.Pages += len(pages)
			b.logger.Info("topic parsed", "topic_id", topicID, "pages", len(pages))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (b *Batch) parseTopic(topicID int64) ([]*corpus.Page, error) {
	numbers, err := b.source.Pages(topicID)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	pages := make([]*corpus.Page, 0, len(numbers))
	for _, n := range numbers {
		raw, err := b.source.Get(topicID, n)
		if err != nil {
			return nil, err
		}
		p, err := b.parser.ParsePage(raw)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}
