package main

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/api"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/profile"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/redis"
	"github.com/spf13/cobra"
)

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Replace stored profiles with the current artifacts",
	Long:  "Builds one profile per topic and user from the corpus snapshot and the processor artifacts, then replaces the contents of the profile tables in a single transaction. A missing artifact aborts before anything is deleted.",
	RunE:  runPersist,
}

var persistKeepCache bool

func init() {
	persistCmd.Flags().BoolVar(&persistKeepCache, "keep-cache", false, "do not flush the read API cache after the import")
	rootCmd.AddCommand(persistCmd)
}

func runPersist(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	idx, err := corpus.Load(cfg.Storage.SnapshotPath)
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	store := profile.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	report, err := profile.NewImporter(store, nil).ImportAll(ctx, idx, processor.NewArtifactStore(cfg.Storage.ArtifactDir))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %d topic profiles and %d user profiles\n", report.Topics, report.Users)

	if persistKeepCache || !cfg.API.CacheEnabled {
		return nil
	}
	rc, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, cached profiles expire on their own", "error", err)
		return nil
	}
	defer rc.Close()
	return api.NewCache(rc, cfg.Redis.CacheTTL, nil).Invalidate(ctx)
}
