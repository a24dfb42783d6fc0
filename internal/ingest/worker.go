package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/kafka"
)

// PageReader reads one stored page.
type PageReader interface {
	Get(topicID int64, page int) (rawstore.Page, error)
}

// Worker merges pages into a long-lived index as crawl notifications
// arrive, and snapshots the index to disk.
type Worker struct {
	pages        PageReader
	parser       Parser
	idx          *corpus.Index
	snapshotPath string
	dirty        atomic.Bool
	saveMu       sync.Mutex
	logger       *slog.Logger
}

func NewWorker(pages PageReader, parser Parser, idx *corpus.Index, snapshotPath string) *Worker {
	return &Worker{
		pages:        pages,
		parser:       parser,
		idx:          idx,
		snapshotPath: snapshotPath,
		logger:       slog.Default().With("component", "ingest-worker"),
	}
}

// HandleMessage returns the Kafka handler. Undecodable events and pages
// that fail to parse are logged and committed since redelivery cannot fix
// them; a page that cannot be read is returned as an error and retried.
func (w *Worker) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[crawler.PageEvent](value)
		if err != nil {
			w.logger.Error("failed to decode page event", "error", err, "key", string(key))
			return nil
		}
		raw, err := w.pages.Get(ev.TopicID, ev.Page)
		if err != nil {
			return fmt.Errorf("loading page %d of topic %d: %w", ev.Page, ev.TopicID, err)
		}
		page, err := w.parser.ParsePage(raw)
		if errors.Is(err, apperrors.ErrMalformedPage) {
			w.logger.Error("dropping malformed page", "topic_id", ev.TopicID, "page", ev.Page, "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("parsing page %d of topic %d: %w", ev.Page, ev.TopicID, err)
		}
		res := w.idx.Merge(page)
		if res.Added > 0 || res.NewTopic {
			w.dirty.Store(true)
		}
		w.logger.Info("page merged",
			"topic_id", ev.TopicID,
			"page", ev.Page,
			"added", res.Added,
			"skipped", res.Skipped,
		)
		return nil
	}
}

// Snapshot finalizes the index and saves it when anything changed since
// the last save.
func (w *Worker) Snapshot() error {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()
	if !w.dirty.Swap(false) {
		return nil
	}
	w.idx.Finalize()
	if err := w.idx.Save(w.snapshotPath); err != nil {
		w.dirty.Store(true)
		return err
	}
	topics, users, posts := w.idx.Counts()
	w.logger.Info("snapshot saved", "path", w.snapshotPath, "topics", topics, "users", users, "posts", posts)
	return nil
}

// StartSnapshotLoop saves a snapshot every interval and once more when ctx
// is cancelled. The returned channel closes after the final save.
func (w *Worker) StartSnapshotLoop(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := w.Snapshot(); err != nil {
					w.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				if err := w.Snapshot(); err != nil {
					w.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	w.logger.Info("snapshot loop started", "interval", interval)
	return done
}
