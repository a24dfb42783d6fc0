package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// pipelineCollectors is what the index page advertises, in pipeline order.
var pipelineCollectors = []struct {
	name string
	what string
}{
	{"forum_pages_fetched_total", "pages fetched by the crawler, by status"},
	{"forum_fetch_duration_seconds", "latency of one page fetch"},
	{"forum_pages_parsed_total", "raw pages parsed into the corpus, by status"},
	{"forum_processor_duration_seconds", "wall time of one processor run, by processor"},
	{"forum_profiles_persisted_total", "profiles written by the importer, by kind"},
	{"profile_cache_hits_total", "read API profile cache hits"},
	{"profile_cache_misses_total", "read API profile cache misses"},
}

// StartServer serves /metrics and an index page on port in the background.
func StartServer(port int) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newServeMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}

func newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		writeIndex(w)
	})
	return mux
}

func writeIndex(w io.Writer) {
	fmt.Fprint(w, `<html><body><h1>Forum Profiler Metrics</h1><p><a href="/metrics">/metrics</a></p><ul>`)
	for _, c := range pipelineCollectors {
		fmt.Fprintf(w, "<li><code>%s</code>: %s</li>", c.name, c.what)
	}
	fmt.Fprint(w, `</ul></body></html>`)
}
