// Package rawstore keeps crawled page markup on disk, one file per
// (topic id, page number). Writes are atomic and overwrite earlier copies,
// so re-crawling a topic is idempotent.
package rawstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
)

// Page is the raw markup of one page of a topic.
type Page struct {
	TopicID int64
	Number  int
	HTML    []byte
}

// Store lays pages out as <dir>/<topicId>/<page>.html.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(topicID int64, page int) string {
	return filepath.Join(s.dir, strconv.FormatInt(topicID, 10), strconv.Itoa(page)+".html")
}

// Put writes the page through a temp file and a rename.
func (s *Store) Put(ctx context.Context, p Page) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.TopicID <= 0 || p.Number <= 0 {
		return fmt.Errorf("%w: page key (%d, %d)", apperrors.ErrInvalidInput, p.TopicID, p.Number)
	}
	finalPath := s.path(p.TopicID, p.Number)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("creating topic directory: %w", err)
	}
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, p.HTML, 0o644); err != nil {
		return fmt.Errorf("writing temp page file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming page file: %w", err)
	}
	return nil
}

// Get reads one page back.
func (s *Store) Get(topicID int64, page int) (Page, error) {
	data, err := os.ReadFile(s.path(topicID, page))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, fmt.Errorf("%w: page %d of topic %d", apperrors.ErrTopicNotFound, page, topicID)
		}
		return Page{}, fmt.Errorf("reading page %d of topic %d: %w", page, topicID, err)
	}
	return Page{TopicID: topicID, Number: page, HTML: data}, nil
}

// Topics lists the ids of every stored topic in ascending order. Entries
// that are not numeric directories are ignored.
func (s *Store) Topics() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing raw directory: %w", err)
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Pages lists the stored page numbers of a topic in ascending order.
func (s *Store) Pages(topicID int64) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, strconv.FormatInt(topicID, 10)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %d", apperrors.ErrTopicNotFound, topicID)
		}
		return nil, fmt.Errorf("listing pages of topic %d: %w", topicID, err)
	}
	pages := make([]int, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".html")
		if e.IsDir() || !ok {
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		pages = append(pages, n)
	}
	slices.Sort(pages)
	return pages, nil
}
