package profile

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/forum-profiler/pkg/errors"
	"golang.org/x/text/cases"
)

// MemoryStore is a Repository held in process memory. It backs tests and
// single-process runs that have no database.
type MemoryStore struct {
	mu     sync.RWMutex
	topics map[int64]TopicProfile
	users  map[int64]UserProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		topics: make(map[int64]TopicProfile),
		users:  make(map[int64]UserProfile),
	}
}

func (m *MemoryStore) CreateTopicProfile(_ context.Context, p TopicProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topics[p.ID]; ok {
		return fmt.Errorf("%w: duplicate topic profile %d", apperrors.ErrInvalidInput, p.ID)
	}
	m.topics[p.ID] = p
	return nil
}

func (m *MemoryStore) CreateUserProfile(_ context.Context, p UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.ID]; ok {
		return fmt.Errorf("%w: duplicate user profile %d", apperrors.ErrInvalidInput, p.ID)
	}
	m.users[p.ID] = p
	return nil
}

func (m *MemoryStore) TruncateAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.topics)
	clear(m.users)
	return nil
}

func (m *MemoryStore) ReplaceAll(_ context.Context, topics []TopicProfile, users []UserProfile) error {
	nextTopics := make(map[int64]TopicProfile, len(topics))
	for _, p := range topics {
		nextTopics[p.ID] = p
	}
	nextUsers := make(map[int64]UserProfile, len(users))
	for _, p := range users {
		nextUsers[p.ID] = p
	}
	m.mu.Lock()
	m.topics, m.users = nextTopics, nextUsers
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SearchTopicsByTerm(_ context.Context, term string) ([]TopicProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []TopicProfile{}
	for _, p := range m.topics {
		for _, tw := range p.Tokens {
			if tw.Term == term {
				out = append(out, p)
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b TopicProfile) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) SearchUsersByNamePrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	fold := cases.Fold()
	want := fold.String(prefix)
	m.mu.RLock()
	names := []string{}
	for _, p := range m.users {
		if strings.HasPrefix(fold.String(p.Name), want) {
			names = append(names, p.Name)
		}
	}
	m.mu.RUnlock()
	slices.Sort(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

// UserByName returns the highest id among users sharing the name.
func (m *MemoryStore) UserByName(_ context.Context, name string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *UserProfile
	for _, p := range m.users {
		if p.Name == name && (found == nil || p.ID > found.ID) {
			found = &p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUserNotFound, name)
	}
	return found, nil
}

func (m *MemoryStore) ListTopics(context.Context) ([]TopicSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TopicSummary, 0, len(m.topics))
	for _, p := range m.topics {
		out = append(out, TopicSummary{ID: p.ID, Title: p.Title})
	}
	slices.SortFunc(out, func(a, b TopicSummary) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

var _ Repository = (*MemoryStore)(nil)
var _ Repository = (*PostgresStore)(nil)

