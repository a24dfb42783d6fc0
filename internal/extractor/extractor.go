// Package extractor turns the raw markup of one forum page into topic
// metadata and posts, ready to be merged into a corpus.Index.
package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/internal/rawstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/metrics"
	"github.com/PuerkitoBio/goquery"
)

const (
	selTitle     = "head title"
	selTopicID   = `input[type="hidden"][name="t"]`
	selCanonical = `link[rel="canonical"]`
	selPost      = ".postcontainer"
	selUsername  = ".username"
	selUserTitle = ".usertitle"
	selAvatar    = ".postuseravatar img"
	selDate      = ".postdate .date"
	selContent   = ".postcontent"
	selQuote     = ".bbcode_quote"
	selQuoteBy   = ".bbcode_postedby strong"
	selQuoteText = ".message"
	selSmiley    = "img.inlineimg"
)

var (
	titlePageSuffix = regexp.MustCompile(`\s+-\s+Page\s+\d+\s*$`)
	authorIDPattern = regexp.MustCompile(`/(\d+)`)
	pageSegment     = regexp.MustCompile(`^page(\d+)$`)
	leadingDigits   = regexp.MustCompile(`^(\d+)`)
	datePattern     = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4}),?[\s\x{00a0}]*(\d{1,2})h(\d{2})`)
)

// Extractor parses vBulletin topic pages. It holds no per-page state and is
// safe for concurrent use.
type Extractor struct {
	baseURL  string
	location *time.Location
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates an Extractor. baseURL is the forum root that canonical links
// are relative to; dates are interpreted in loc.
func New(baseURL string, loc *time.Location, m *metrics.Metrics) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		baseURL:  strings.TrimRight(baseURL, "/"),
		location: loc,
		metrics:  m,
		logger:   slog.Default().With("component", "extractor"),
	}
}

// ParseInto parses raw and merges the result into idx.
func (e *Extractor) ParseInto(idx *corpus.Index, raw rawstore.Page) (corpus.MergeResult, error) {
	page, err := e.ParsePage(raw)
	if err != nil {
		return corpus.MergeResult{}, err
	}
	return idx.Merge(page), nil
}

// ParsePage extracts one page. Any structural problem fails the whole page
// with ErrMalformedPage; no post is ever skipped silently.
func (e *Extractor) ParsePage(raw rawstore.Page) (*corpus.Page, error) {
	page, err := e.parse(raw)
	e.metrics.PageParsed(err)
	if err != nil {
		return nil, fmt.Errorf("topic %d page %d: %w", raw.TopicID, raw.Number, err)
	}
	return page, nil
}

func (e *Extractor) parse(raw rawstore.Page) (*corpus.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing markup: %v", apperrors.ErrMalformedPage, err)
	}

	titleSel := doc.Find(selTitle).First()
	if titleSel.Length() == 0 {
		return nil, malformed("missing title")
	}
	title := titlePageSuffix.ReplaceAllString(strings.TrimSpace(titleSel.Text()), "")

	href, ok := doc.Find(selCanonical).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, malformed("missing canonical link")
	}
	segments, err := e.canonicalSegments(href)
	if err != nil {
		return nil, err
	}

	topicID, err := topicIDFrom(doc, segments[1])
	if err != nil {
		return nil, err
	}
	if raw.TopicID != 0 && raw.TopicID != topicID {
		e.logger.Warn("stored topic id differs from page markup", "stored", raw.TopicID, "parsed", topicID)
	}

	number := 1
	if m := pageSegment.FindStringSubmatch(segments[len(segments)-1]); m != nil && len(segments) > 2 {
		number, _ = strconv.Atoi(m[1])
	}

	page := &corpus.Page{
		TopicID: topicID,
		Number:  number,
		Title:   title,
		URL:     e.baseURL + "/" + segments[0] + "/" + segments[1],
	}

	containers := doc.Find(selPost)
	for i := range containers.Length() {
		pp, err := e.parsePost(containers.Eq(i))
		if err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		pp.Post.TopicID = topicID
		pp.Post.Page = number
		page.Posts = append(page.Posts, pp)
	}
	return page, nil
}

// canonicalSegments returns the non-empty path segments of a canonical link,
// relative to the forum root, without query or fragment.
func (e *Extractor) canonicalSegments(href string) ([]string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, malformed("canonical link %q: %v", href, err)
	}
	path := u.Path
	if u.IsAbs() {
		if base, err := url.Parse(e.baseURL); err == nil {
			path = strings.TrimPrefix(path, strings.TrimRight(base.Path, "/"))
		}
	}
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return nil, malformed("canonical link %q has no topic segment", href)
	}
	return segments, nil
}

func topicIDFrom(doc *goquery.Document, slug string) (int64, error) {
	if v, ok := doc.Find(selTopicID).First().Attr("value"); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}
	m := leadingDigits.FindStringSubmatch(slug)
	if m == nil {
		return 0, malformed("no topic id in %q", slug)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, malformed("topic id %q: %v", m[1], err)
	}
	return id, nil
}

func (e *Extractor) parsePost(c *goquery.Selection) (corpus.PagePost, error) {
	var pp corpus.PagePost

	containerID, _ := c.Attr("id")
	idx := strings.LastIndex(containerID, "_")
	postID, err := strconv.ParseInt(containerID[idx+1:], 10, 64)
	if err != nil || postID <= 0 {
		return pp, malformed("post container id %q", containerID)
	}

	author, err := parseAuthor(c)
	if err != nil {
		return pp, err
	}

	dateText := strings.TrimSpace(c.Find(selDate).First().Text())
	ts, err := parseDate(dateText, e.location)
	if err != nil {
		return pp, err
	}

	content := c.Find(selContent).First()
	if content.Length() == 0 {
		return pp, malformed("post %d has no content", postID)
	}
	content.Find("br").ReplaceWithHtml("\n")

	quotes := []corpus.Quote{}
	// One quote per block in document order. Nested blocks are read from a
	// copy of their parent with the inner quotes cut out, so no text or
	// author is attributed twice.
	content.Find(selQuote).Each(func(_ int, q *goquery.Selection) {
		own := q.Clone()
		own.Find(selQuote).Remove()
		text := own.Find(selQuoteText).First()
		if text.Length() == 0 {
			text = own
		}
		quotes = append(quotes, corpus.Quote{
			AuthorName: strings.TrimSpace(own.Find(selQuoteBy).First().Text()),
			Message:    strings.TrimSpace(text.Text()),
		})
	})
	content.Find(selQuote).Remove()

	smileys := []string{}
	content.Find(selSmiley).Each(func(_ int, img *goquery.Selection) {
		code, ok := img.Attr("title")
		if !ok || code == "" {
			code, ok = img.Attr("alt")
		}
		if ok && code != "" {
			smileys = append(smileys, code)
		}
	})

	pp.Author = author
	pp.Post = corpus.Post{
		ID:        postID,
		AuthorID:  author.ID,
		Message:   strings.TrimSpace(content.Text()),
		Timestamp: ts,
		Quotes:    quotes,
		Smileys:   smileys,
	}
	return pp, nil
}

func parseAuthor(c *goquery.Selection) (corpus.User, error) {
	link := c.Find(selUsername).First()
	if link.Length() == 0 {
		return corpus.User{}, malformed("post has no author link")
	}
	href, _ := link.Attr("href")
	m := authorIDPattern.FindStringSubmatch(href)
	if m == nil {
		return corpus.User{}, malformed("author link %q has no id", href)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return corpus.User{}, malformed("author id %q: %v", m[1], err)
	}
	avatar, _ := c.Find(selAvatar).First().Attr("src")
	return corpus.User{
		ID:        id,
		Name:      strings.TrimSpace(link.Text()),
		Title:     strings.TrimSpace(c.Find(selUserTitle).First().Text()),
		URL:       href,
		AvatarURL: avatar,
	}, nil
}

// parseDate reads "DD/MM/YYYY, HHhMM" in loc and returns Unix milliseconds.
func parseDate(text string, loc *time.Location) (int64, error) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, malformed("date %q", text)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || hour > 23 || minute > 59 {
		return 0, malformed("date %q out of range", text)
	}
	return t.UnixMilli(), nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrMalformedPage, fmt.Sprintf(format, args...))
}
