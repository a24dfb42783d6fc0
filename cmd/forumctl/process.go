package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/tracing"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process [processor...]",
	Short: "Run analytics processors over the corpus snapshot",
	Long:  "Runs the named processors (all of them when none is given) and writes one artifact per processor. Valid names: stats, smiley, quote, user-topic, datetime, sentiment, tfidf.",
	RunE:  runProcess,
}

var (
	processTopics []int64
	processUsers  []int64
	processSeed   uint64
)

func init() {
	processCmd.Flags().Int64SliceVar(&processTopics, "topic", nil, "restrict to these topic ids")
	processCmd.Flags().Int64SliceVar(&processUsers, "user", nil, "restrict to these user ids")
	processCmd.Flags().Uint64Var(&processSeed, "seed", 0, "sampling seed (overrides processor.seed)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	loc, err := cfg.Forum.Location()
	if err != nil {
		return err
	}
	opts, err := processor.OptionsFromConfig(cfg.Processor, loc)
	if err != nil {
		return err
	}
	opts.TopicIDs = processTopics
	opts.UserIDs = processUsers
	if cmd.Flags().Changed("seed") {
		opts.Seed = processSeed
	}

	idx, err := corpus.Load(cfg.Storage.SnapshotPath)
	if err != nil {
		return err
	}

	ctx, span := tracing.StartSpan(cmd.Context(), "process", "")
	results, err := processor.NewPipeline(nil).RunAll(ctx, args, idx, opts)
	span.End(err)
	if cfg.Tracing.Enabled {
		span.Log(slog.Default())
	}
	if err != nil {
		return err
	}

	store := processor.NewArtifactStore(cfg.Storage.ArtifactDir)
	kinds := make([]processor.Kind, 0, len(results))
	for k := range results {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	out := cmd.OutOrStdout()
	for _, k := range kinds {
		if err := store.Save(k, results[k]); err != nil {
			return err
		}
		fmt.Fprintf(out, "%-10s -> %s\n", k, store.Path(k))
	}
	if stats, ok := results[processor.KindStats]; ok {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding stats: %w", err)
		}
		fmt.Fprintln(out, string(data))
	}
	return nil
}
