package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/kafka"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher announces stored pages on Kafka, keyed by topic id so that one
// partition carries a topic's pages in crawl order.
type Publisher struct {
	producer EventPublisher
}

func NewPublisher(producer EventPublisher) *Publisher {
	return &Publisher{producer: producer}
}

func pageEvent(ev crawler.PageEvent) kafka.Event {
	return kafka.Event{Key: strconv.FormatInt(ev.TopicID, 10), Value: ev}
}

// PageStored implements crawler.Notifier.
func (p *Publisher) PageStored(ctx context.Context, ev crawler.PageEvent) error {
	if err := p.producer.Publish(ctx, pageEvent(ev)); err != nil {
		return fmt.Errorf("announcing page %d of topic %d: %w", ev.Page, ev.TopicID, err)
	}
	return nil
}

// PagesStored announces several pages in one write, as a replay does.
func (p *Publisher) PagesStored(ctx context.Context, evs []crawler.PageEvent) error {
	events := make([]kafka.Event, len(evs))
	for i, ev := range evs {
		events[i] = pageEvent(ev)
	}
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("announcing %d pages: %w", len(evs), err)
	}
	return nil
}
