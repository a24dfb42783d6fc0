package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
)

// Snapshot is the serialisable form of an Index. Map keys are the decimal
// ids of the entries.
type Snapshot struct {
	Users  map[string]*User  `json:"users"`
	Topics map[string]*Topic `json:"topics"`
}

// Serialize copies the index into a Snapshot that shares no memory with it.
func (idx *Index) Serialize() *Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	snap := &Snapshot{
		Users:  make(map[string]*User, len(idx.Users)),
		Topics: make(map[string]*Topic, len(idx.Topics)),
	}
	for id, u := range idx.Users {
		snap.Users[strconv.FormatInt(id, 10)] = cloneUser(u)
	}
	for id, t := range idx.Topics {
		snap.Topics[strconv.FormatInt(id, 10)] = cloneTopic(t)
	}
	return snap
}

// Deserialize replaces the index contents with the snapshot's. A null
// snapshot or entry is rejected and leaves the index untouched.
func (idx *Index) Deserialize(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", apperrors.ErrInvalidInput)
	}
	users := make(map[int64]*User, len(snap.Users))
	for key, u := range snap.Users {
		if u == nil {
			return fmt.Errorf("%w: user %q is null", apperrors.ErrInvalidInput, key)
		}
		id, err := parseKey(key, u.ID)
		if err != nil {
			return fmt.Errorf("user %q: %w", key, err)
		}
		users[id] = cloneUser(u)
	}
	topics := make(map[int64]*Topic, len(snap.Topics))
	for key, t := range snap.Topics {
		if t == nil {
			return fmt.Errorf("%w: topic %q is null", apperrors.ErrInvalidInput, key)
		}
		id, err := parseKey(key, t.ID)
		if err != nil {
			return fmt.Errorf("topic %q: %w", key, err)
		}
		topics[id] = cloneTopic(t)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.Users = users
	idx.Topics = topics
	idx.postIDs = make(map[int64]map[int64]struct{})
	return nil
}

func parseKey(key string, id int64) (int64, error) {
	parsed, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing id: %w", err)
	}
	if parsed != id {
		return 0, fmt.Errorf("key does not match id %d", id)
	}
	return parsed, nil
}

// Save writes the index as JSON to path atomically.
func (idx *Index) Save(path string) error {
	data, err := json.Marshal(idx.Serialize())
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save into a new Index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	idx := NewIndex()
	if err := idx.Deserialize(&snap); err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	return idx, nil
}

func cloneUser(u *User) *User {
	c := *u
	if u.Messages != nil {
		c.Messages = append(make([]string, 0, len(u.Messages)), u.Messages...)
	}
	return &c
}

func cloneTopic(t *Topic) *Topic {
	c := *t
	if t.OriginalPosterID != nil {
		op := *t.OriginalPosterID
		c.OriginalPosterID = &op
	}
	if t.Posts != nil {
		c.Posts = make([]Post, len(t.Posts))
		for i, p := range t.Posts {
			c.Posts[i] = clonePost(p)
		}
	}
	return &c
}

func clonePost(p Post) Post {
	if p.Quotes != nil {
		quotes := make([]Quote, len(p.Quotes))
		for i, q := range p.Quotes {
			if q.AuthorID != nil {
				id := *q.AuthorID
				q.AuthorID = &id
			}
			quotes[i] = q
		}
		p.Quotes = quotes
	}
	if p.Smileys != nil {
		p.Smileys = append(make([]string, 0, len(p.Smileys)), p.Smileys...)
	}
	return p
}
