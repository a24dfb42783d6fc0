// Package graph renders the quote network as a weighted directed graph in
// GEXF, the format Gephi opens.
package graph

import (
	"cmp"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/processor"
)

type Node struct {
	ID    int64
	Label string
}

// Edge points from the quoting user to the quoted user.
type Edge struct {
	Source int64
	Target int64
	Weight int
}

type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build derives the graph from the "from" side of the quote network.
// Quoted names that match no user are left out, as are self quotes.
// Only users with at least one edge become nodes.
func Build(users []*corpus.User, quotes processor.QuoteResult) *Graph {
	names := make(map[string]int64, len(users))
	labels := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.Name] = u.ID
		labels[u.ID] = u.Name
	}

	g := &Graph{}
	linked := map[int64]bool{}
	for source, tally := range quotes.From {
		if _, ok := labels[source]; !ok {
			continue
		}
		for name, n := range tally {
			target, ok := names[name]
			if !ok || target == source {
				continue
			}
			g.Edges = append(g.Edges, Edge{Source: source, Target: target, Weight: n})
			linked[source], linked[target] = true, true
		}
	}
	for id := range linked {
		g.Nodes = append(g.Nodes, Node{ID: id, Label: labels[id]})
	}
	slices.SortFunc(g.Nodes, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(g.Edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Target, b.Target)
	})
	return g
}

type gexfDoc struct {
	XMLName xml.Name  `xml:"gexf"`
	XMLNS   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Meta    gexfMeta  `xml:"meta"`
	Graph   gexfGraph `xml:"graph"`
}

type gexfMeta struct {
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
}

type gexfGraph struct {
	Mode        string     `xml:"mode,attr"`
	DefaultType string     `xml:"defaultedgetype,attr"`
	Nodes       []gexfNode `xml:"nodes>node"`
	Edges       []gexfEdge `xml:"edges>edge"`
}

type gexfNode struct {
	ID    string `xml:"id,attr"`
	Label string `xml:"label,attr"`
}

type gexfEdge struct {
	ID     string `xml:"id,attr"`
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
	Weight int    `xml:"weight,attr"`
}

// WriteGEXF encodes g as a GEXF 1.2 document.
func (g *Graph) WriteGEXF(w io.Writer) error {
	doc := gexfDoc{
		XMLNS:   "http://gexf.net/1.2",
		Version: "1.2",
		Meta:    gexfMeta{Creator: "forum-profiler", Description: "forum quote network"},
		Graph:   gexfGraph{Mode: "static", DefaultType: "directed"},
	}
	for _, n := range g.Nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gexfNode{ID: strconv.FormatInt(n.ID, 10), Label: n.Label})
	}
	for i, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, gexfEdge{
			ID:     strconv.Itoa(i),
			Source: strconv.FormatInt(e.Source, 10),
			Target: strconv.FormatInt(e.Target, 10),
			Weight: e.Weight,
		})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing gexf header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding gexf: %w", err)
	}
	return nil
}

// WriteFile writes the graph to path through a temp file and a rename.
func (g *Graph) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating graph directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp graph file: %w", err)
	}
	if err := g.WriteGEXF(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp graph file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming graph file: %w", err)
	}
	return nil
}
