// Command loadtest drives a mix of read API requests against a running
// profile api and reports throughput, latency percentiles and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 30s -rps 500
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type target struct {
	name string
	path func(i int) string
}

type Stats struct {
	total     atomic.Int64
	failures  atomic.Int64
	mu        sync.Mutex
	latencies map[string][]time.Duration
	codes     map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make(map[string][]time.Duration),
		codes:     make(map[int]int64),
	}
}

func (s *Stats) Record(endpoint string, d time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.failures.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], d)
	s.codes[code]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the profile api")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "overall request rate cap (0 = unlimited)")
	flag.Parse()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	names, err := discoverUsers(client, *baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovering users: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "no users found, is the profile table populated?")
		os.Exit(1)
	}
	targets := buildTargets(names)

	fmt.Println("=== Profile API Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Users:       %d sampled\n", len(names))
	fmt.Println()

	limit := rate.Inf
	if *rps > 0 {
		limit = rate.Limit(*rps)
	}
	stats := run(client, *baseURL, targets, *concurrency, *duration, rate.NewLimiter(limit, *concurrency))
	if !report(stats, *duration) {
		os.Exit(1)
	}
}

// discoverUsers collects user names through prefix searches on each letter.
func discoverUsers(client *http.Client, baseURL string) ([]string, error) {
	seen := make(map[string]struct{})
	for c := 'a'; c <= 'z'; c++ {
		resp, err := client.Get(fmt.Sprintf("%s/api/v1/users/search?q=%c", baseURL, c))
		if err != nil {
			return nil, err
		}
		var batch []string
		err = json.NewDecoder(resp.Body).Decode(&batch)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}
		for _, n := range batch {
			seen[n] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func buildTargets(names []string) []target {
	user := func(i int) string { return url.PathEscape(names[i%len(names)]) }
	return []target{
		{"profile", func(i int) string { return "/api/v1/users/" + user(i) }},
		{"tokens", func(i int) string { return "/api/v1/users/" + user(i) + "/tokens" }},
		{"smileys", func(i int) string { return "/api/v1/users/" + user(i) + "/smileys" }},
		{"user-search", func(i int) string {
			n := []rune(names[i%len(names)])
			return "/api/v1/users/search?q=" + url.QueryEscape(string(n[:min(2, len(n))]))
		}},
		{"topics", func(int) string { return "/api/v1/topics" }},
	}
}

func run(client *http.Client, baseURL string, targets []target, concurrency int, d time.Duration, limiter *rate.Limiter) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	fmt.Print("Running")
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				t := targets[i%len(targets)]
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+t.path(i/len(targets)), nil)
				if err != nil {
					return fmt.Errorf("building request: %w", err)
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if ctx.Err() != nil {
					return nil
				}
				if err != nil {
					stats.Record(t.name, elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.Record(t.name, elapsed, resp.StatusCode, nil)
			}
		})
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "\nworker error: %v\n", err)
	}
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// report prints the results and reports whether any request completed.
func report(stats *Stats, d time.Duration) bool {
	total := stats.total.Load()
	failures := stats.failures.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Failed:          %d\n", failures)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failures)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/d.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	endpoints := make([]string, 0, len(stats.latencies))
	for e := range stats.latencies {
		endpoints = append(endpoints, e)
	}
	slices.Sort(endpoints)
	fmt.Println()
	fmt.Println("=== Latency ===")
	fmt.Printf("%-12s %8s %10s %10s %10s %10s %10s\n", "endpoint", "count", "avg", "p50", "p95", "p99", "max")
	for _, e := range endpoints {
		l := slices.Clone(stats.latencies[e])
		slices.Sort(l)
		var sum time.Duration
		for _, v := range l {
			sum += v
		}
		fmt.Printf("%-12s %8d %10s %10s %10s %10s %10s\n", e, len(l),
			sum/time.Duration(len(l)), percentile(l, 50), percentile(l, 95), percentile(l, 99), l[len(l)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(stats.codes))
	for c := range stats.codes {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	for _, c := range codes {
		fmt.Printf("  %d: %d\n", c, stats.codes[c])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
