package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
)

// ArtifactStore keeps one JSON file per processor under a directory.
type ArtifactStore struct {
	dir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

func (s *ArtifactStore) Path(k Kind) string {
	return filepath.Join(s.dir, string(k)+".json")
}

// Save writes v as the artifact of k, replacing any previous one
// atomically.
func (s *ArtifactStore) Save(k Kind, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s artifact: %w", k, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	path := s.Path(k)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp %s artifact: %w", k, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s artifact: %w", k, err)
	}
	return nil
}

// Load decodes the artifact of k into v. A missing file is reported as
// ErrMissingArtifact.
func (s *ArtifactStore) Load(k Kind, v any) error {
	data, err := os.ReadFile(s.Path(k))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingArtifact, s.Path(k))
	}
	if err != nil {
		return fmt.Errorf("reading %s artifact: %w", k, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s artifact: %w", k, err)
	}
	return nil
}

func LoadSmiley(s *ArtifactStore) (SmileyResult, error) {
	var r SmileyResult
	err := s.Load(KindSmiley, &r)
	return r, err
}

func LoadQuote(s *ArtifactStore) (QuoteResult, error) {
	var r QuoteResult
	err := s.Load(KindQuote, &r)
	return r, err
}

func LoadUserTopic(s *ArtifactStore) (UserTopicResult, error) {
	var r UserTopicResult
	err := s.Load(KindUserTopic, &r)
	return r, err
}

func LoadDatetime(s *ArtifactStore) (TemporalResult, error) {
	var r TemporalResult
	err := s.Load(KindDatetime, &r)
	return r, err
}

func LoadSentiment(s *ArtifactStore) (SentimentResult, error) {
	var r SentimentResult
	err := s.Load(KindSentiment, &r)
	return r, err
}

func LoadTermWeights(s *ArtifactStore) (TermWeightResult, error) {
	var r TermWeightResult
	err := s.Load(KindTfidf, &r)
	return r, err
}

func LoadStats(s *ArtifactStore) (Stats, error) {
	var r Stats
	err := s.Load(KindStats, &r)
	return r, err
}
