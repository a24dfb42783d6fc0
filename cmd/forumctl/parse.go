package main

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse stored pages into a corpus snapshot",
	Long:  "Parses every stored topic, resolves quotes and writes the corpus snapshot. Topics with an unparseable page are reported and left out.",
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, _ []string) error {
	loc, err := cfg.Forum.Location()
	if err != nil {
		return err
	}
	idx := corpus.NewIndex()
	batch := ingest.NewBatch(rawstore.New(cfg.Storage.RawDir), extractor.New(cfg.Forum.BaseURL, loc, nil), cfg.Ingest.Parallelism)
	report, err := batch.Run(cmd.Context(), idx)
	if err != nil {
		return fmt.Errorf("parsing pages: %w", err)
	}
	idx.Finalize()
	if err := idx.Save(cfg.Storage.SnapshotPath); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	topics, users, posts := idx.Counts()
	fmt.Fprintf(out, "parsed %d topics (%d pages, %d new posts) into %s\n", report.Topics, report.Pages, report.Posts, cfg.Storage.SnapshotPath)
	fmt.Fprintf(out, "index: %d topics, %d users, %d posts\n", topics, users, posts)
	for _, f := range report.Failed {
		fmt.Fprintf(out, "skipped topic %d: %v\n", f.TopicID, f.Err)
	}
	return nil
}
