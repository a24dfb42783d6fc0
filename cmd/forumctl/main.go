// Command forumctl runs the offline stages of the forum profiler: crawling
// topics, parsing stored pages into a corpus snapshot, running the
// analytics processors, persisting profiles and exporting the quote graph.
//
// Usage:
//
//	forumctl [-c configs/development.yaml] <crawl|parse|process|persist|export-graph|replay>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "forumctl",
	Short:         "Forum profiler batch tooling",
	Long:          "forumctl crawls forum topics, builds the corpus index, runs the analytics processors and publishes user and topic profiles.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		// stdout carries command output.
		logger.SetupWriter(os.Stderr, loaded.Logging.Level, loaded.Logging.Format)
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults and FP_* env when empty)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
