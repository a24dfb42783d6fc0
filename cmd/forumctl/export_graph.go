package main

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/graph"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
	"github.com/spf13/cobra"
)

var exportGraphCmd = &cobra.Command{
	Use:   "export-graph",
	Short: "Write the quote network as GEXF",
	Long:  "Builds the directed user graph (quoting user to quoted user, weighted by count) from the quote artifact and writes it where the read API serves it.",
	RunE:  runExportGraph,
}

var exportGraphOut string

func init() {
	exportGraphCmd.Flags().StringVarP(&exportGraphOut, "out", "o", "", "output file (default: storage.graphPath)")
	rootCmd.AddCommand(exportGraphCmd)
}

func runExportGraph(cmd *cobra.Command, _ []string) error {
	idx, err := corpus.Load(cfg.Storage.SnapshotPath)
	if err != nil {
		return err
	}
	quotes, err := processor.LoadQuote(processor.NewArtifactStore(cfg.Storage.ArtifactDir))
	if err != nil {
		return err
	}
	path := exportGraphOut
	if path == "" {
		path = cfg.Storage.GraphPath
	}
	g := graph.Build(idx.SortedUsers(), quotes)
	if err := g.WriteFile(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d nodes and %d edges to %s\n", len(g.Nodes), len(g.Edges), path)
	return nil
}
