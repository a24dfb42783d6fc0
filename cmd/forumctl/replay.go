package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/kafka"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay [topic-id...]",
	Short: "Re-announce stored pages to the ingest worker",
	Long:  "Publishes a page-stored event for every stored page (or the pages of the given topics) so a fresh ingest worker can rebuild its index without crawling again.",
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store := rawstore.New(cfg.Storage.RawDir)

	var topics []int64
	if len(args) == 0 {
		all, err := store.Topics()
		if err != nil {
			return err
		}
		topics = all
	}
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: topic id %q", apperrors.ErrInvalidInput, a)
		}
		topics = append(topics, id)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PagesCrawled)
	defer producer.Close()
	pub := ingest.NewPublisher(producer)

	sent := 0
	for _, topicID := range topics {
		pages, err := store.Pages(topicID)
		if err != nil {
			return err
		}
		evs := make([]crawler.PageEvent, len(pages))
		for i, n := range pages {
			evs[i] = crawler.PageEvent{TopicID: topicID, Page: n, FetchedAt: time.Now().UTC()}
		}
		if err := pub.PagesStored(ctx, evs); err != nil {
			return fmt.Errorf("replaying topic %d: %w", topicID, err)
		}
		sent += len(evs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "replayed %d pages from %d topics\n", sent, len(topics))
	return nil
}
