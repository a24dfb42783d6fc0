// Package processor runs analytics over a finalized corpus index. Each
// processor is a read-only pass that produces one artifact keyed by topic
// or user id; processors share no state and may run in any order.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

// Kind names a processor. The set is closed: only the constants below are
// valid.
type Kind string

const (
	KindStats     Kind = "stats"
	KindSmiley    Kind = "smiley"
	KindQuote     Kind = "quote"
	KindUserTopic Kind = "user-topic"
	KindDatetime  Kind = "datetime"
	KindSentiment Kind = "sentiment"
	KindTfidf     Kind = "tfidf"
)

var kinds = []Kind{KindStats, KindSmiley, KindQuote, KindUserTopic, KindDatetime, KindSentiment, KindTfidf}

// Kinds lists every processor in a stable order.
func Kinds() []Kind { return slices.Clone(kinds) }

// ParseKind maps a CLI-style name to its Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownProcessor, name)
	}
	return k, nil
}

// Processor computes one aggregate from the index without mutating it.
type Processor interface {
	Kind() Kind
	Run(ctx context.Context, idx *corpus.Index, opts Options) (any, error)
}

func newProcessor(k Kind) Processor {
	switch k {
	case KindStats:
		return statsProcessor{}
	case KindSmiley:
		return smileyProcessor{}
	case KindQuote:
		return quoteProcessor{}
	case KindUserTopic:
		return userTopicProcessor{}
	case KindDatetime:
		return datetimeProcessor{}
	case KindSentiment:
		return sentimentProcessor{}
	case KindTfidf:
		return tfidfProcessor{}
	}
	return nil
}

// Pipeline dispatches processors by name, timing and tracing each run.
type Pipeline struct {
	processors map[Kind]Processor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewPipeline(m *metrics.Metrics) *Pipeline {
	p := &Pipeline{
		processors: make(map[Kind]Processor, len(kinds)),
		metrics:    m,
		logger:     slog.Default().With("component", "processor"),
	}
	for _, k := range kinds {
		p.processors[k] = newProcessor(k)
	}
	return p
}

// Run executes the processor called name.
func (p *Pipeline) Run(ctx context.Context, name string, idx *corpus.Index, opts Options) (any, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, k, idx, opts.withDefaults())
}

// RunAll validates every name before running any, then runs the processors
// concurrently. An empty list runs them all.
func (p *Pipeline) RunAll(ctx context.Context, names []string, idx *corpus.Index, opts Options) (map[Kind]any, error) {
	selected := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(selected, k) {
			selected = append(selected, k)
		}
	}
	if len(selected) == 0 {
		selected = Kinds()
	}
	opts = opts.withDefaults()

	var mu sync.Mutex
	results := make(map[Kind]any, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range selected {
		g.Go(func() error {
			out, err := p.run(gctx, k, idx, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results[k] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) run(ctx context.Context, k Kind, idx *corpus.Index, opts Options) (any, error) {
	ctx, span := tracing.StartChildSpan(ctx, "processor."+string(k))
	start := time.Now()
	out, err := p.processors[k].Run(ctx, idx, opts)
	elapsed := time.Since(start)
	span.End(err)
	p.metrics.ProcessorRan(string(k), elapsed)
	if err != nil {
		return nil, fmt.Errorf("running %s processor: %w", k, err)
	}
	p.logger.Info("processor finished", "processor", k, "duration_ms", elapsed.Milliseconds())
	return out, nil
}

// entitySalt keeps topic and user random streams apart when ids collide.
const (
	topicSalt uint64 = 0x9e3779b97f4a7c15
	userSalt  uint64 = 0xbf58476d1ce4e5b9
)

// rng returns the random source for one entity. A zero seed gives a fresh
// unseeded source; any other seed gives a stream fixed by (seed, entity).
func (o Options) rng(salt uint64, id int64) *rand.Rand {
	if o.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(o.Seed, salt^uint64(id)))
}

// forEach runs fn for every index in [0, n) with bounded parallelism.
func forEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
