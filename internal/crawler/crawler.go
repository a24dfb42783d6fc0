// Package crawler downloads every page of a forum topic, one request at a
// time, following the in-page link to the next page until it disappears.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/resilience"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

var leadingDigits = regexp.MustCompile(`^(\d+)`)

// PageStore persists fetched pages.
type PageStore interface {
	Put(ctx context.Context, p rawstore.Page) error
}

// PageEvent announces a stored page to downstream consumers.
type PageEvent struct {
	TopicID   int64     `json:"topicId"`
	Page      int       `json:"page"`
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Notifier is told about every page once it is stored.
type Notifier interface {
	PageStored(ctx context.Context, ev PageEvent) error
}

// Options configures a Crawler. Zero values fall back to the defaults of
// New.
type Options struct {
	BaseURL     string
	UserAgent   string
	Delay       time.Duration
	Timeout     time.Duration
	MaxBodySize int64
	Client      *http.Client
	Notifier    Notifier
	Metrics     *metrics.Metrics
}

// Crawler fetches topic pages. All crawls of one Crawler share a single
// pacing limiter and never overlap requests.
type Crawler struct {
	store     PageStore
	notifier  Notifier
	client    *http.Client
	limiter   *rate.Limiter
	mu        sync.Mutex
	baseURL   string
	userAgent string
	timeout   time.Duration
	maxBody   int64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(store PageStore, opts Options) *Crawler {
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "forum-profiler/1.0"
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 10 << 20
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Crawler{
		store:     store,
		notifier:  opts.Notifier,
		client:    opts.Client,
		limiter:   rate.NewLimiter(limit, 1),
		baseURL:   strings.TrimRight(opts.BaseURL, "/") + "/",
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		maxBody:   opts.MaxBodySize,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "crawler"),
	}
}

// CrawlTopic stores every page of the topic at seedURL and returns its id
// and the number of pages written. A fetch failure aborts this topic only;
// pages stored before it stay on disk.
func (c *Crawler) CrawlTopic(ctx context.Context, seedURL string) (int64, int, error) {
	seed := strings.TrimRight(strings.TrimSpace(seedURL), "/")
	topicID, err := c.topicID(seed)
	if err != nil {
		return 0, 0, err
	}
	logger := c.logger.With("topic_id", topicID)
	logger.Info("crawling topic", "url", seed)

	stored := 0
	for page := 1; ; page++ {
		pageURL := pageURL(seed, page)
		body, err := c.fetch(ctx, pageURL)
		if err != nil {
			return topicID, stored, fmt.Errorf("crawling topic %d page %d: %w", topicID, page, err)
		}
		if err := c.store.Put(ctx, rawstore.Page{TopicID: topicID, Number: page, HTML: body}); err != nil {
			return topicID, stored, fmt.Errorf("storing topic %d page %d: %w", topicID, page, err)
		}
		stored++
		logger.Info("page stored", "page", page, "bytes", len(body))
		c.notify(ctx, PageEvent{TopicID: topicID, Page: page, URL: pageURL, FetchedAt: time.Now().UTC()})

		next := c.link(seed, page+1)
		if !hasForwardLink(body, c.baseURL, next) {
			logger.Info("topic crawled", "pages", stored)
			return topicID, stored, nil
		}
	}
}

// topicID reads the numeric id from the link that leads to page 2.
func (c *Crawler) topicID(seed string) (int64, error) {
	link := strings.TrimPrefix(c.link(seed, 2), "threads/")
	slug, _, _ := strings.Cut(link, "/")
	m := leadingDigits.FindStringSubmatch(slug)
	if m == nil {
		return 0, fmt.Errorf("%w: no topic id in %q", apperrors.ErrInvalidInput, seed)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: topic id %q", apperrors.ErrInvalidInput, m[1])
	}
	return id, nil
}

func pageURL(seed string, page int) string {
	return seed + "/page" + strconv.Itoa(page)
}

// link is the decoded page URL relative to the forum root, the form the
// forum uses in its own pagination anchors.
func (c *Crawler) link(seed string, page int) string {
	return normalizeHref(pageURL(seed, page), c.baseURL)
}

func normalizeHref(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	href, _, _ = strings.Cut(href, "#")
	href, _, _ = strings.Cut(href, "?")
	href = strings.TrimPrefix(href, baseURL)
	return strings.TrimLeft(href, "/")
}

// hasForwardLink reports whether the markup links to next.
func hasForwardLink(body []byte, baseURL, next string) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = normalizeHref(href, baseURL) == next
		return !found
	})
	return found
}

// fetch performs one paced GET. The mutex keeps a single request in flight
// across every topic this Crawler serves.
func (c *Crawler) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for crawl slot: %w", err)
	}

	start := time.Now()
	var body []byte
	err := resilience.WithTimeout(ctx, c.timeout, "fetch "+pageURL, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return fmt.Errorf("%w: building request: %v", apperrors.ErrInvalidInput, err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: %s returned status %d", apperrors.ErrTransport, pageURL, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", apperrors.ErrTransport, pageURL, err)
		}
		body = data
		return nil
	})
	c.metrics.PageFetched(err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Crawler) notify(ctx context.Context, ev PageEvent) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.PageStored(ctx, ev); err != nil {
		c.logger.Warn("page notification failed", "topic_id", ev.TopicID, "page", ev.Page, "error", err)
	}
}

// TopicResult records the outcome of one topic crawl.
type TopicResult struct {
	Seed    string
	TopicID int64
	Pages   int
	Err     error
}

// CrawlAll crawls seeds one after another. A failing topic is logged and
// the next one is attempted; only cancellation stops the run early.
func (c *Crawler) CrawlAll(ctx context.Context, seeds []string) ([]TopicResult, error) {
	results := make([]TopicResult, 0, len(seeds))
	for i, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		id, pages, err := c.CrawlTopic(ctx, seed)
		results = append(results, TopicResult{Seed: seed, TopicID: id, Pages: pages, Err: err})
		if err != nil {
			c.logger.Error("topic crawl failed", "seed", seed, "topic_id", id, "pages", pages, "error", err)
			continue
		}
		c.logger.Info("crawl progress", "done", i+1, "total", len(seeds))
	}
	return results, ctx.Err()
}

// LoadSeeds reads a JSON array of topic URLs.
func LoadSeeds(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seeds %s: %w", path, err)
	}
	var seeds []string
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parsing seeds %s: %w", path, err)
	}
	return seeds, nil
}
