package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bloodbridge.org/internal/ids"
)

// MemoryStore is the in-process Store used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]User
	requests map[string]BloodRequest
}

var _ Store = (*MemoryStore)(nil)

// NewMemory constructs an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]User),
		requests: make(map[string]BloodRequest),
	}
}

func (m *MemoryStore) Users() UserStore                 { return (*memUserStore)(m) }
func (m *MemoryStore) BloodRequests() BloodRequestStore { return (*memRequestStore)(m) }

type memUserStore MemoryStore

func (s *memUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == email {
			return ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = email
	s.users[u.ID] = *u
	return nil
}

func (s *memUserStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u
	return &out, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		copied := u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memRequestStore MemoryStore

func (s *memRequestStore) Create(_ context.Context, r *BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = RequestStatusOpen
	}
	s.requests[r.ID] = *r
	return nil
}

func (s *memRequestStore) Find(_ context.Context, id string) (*BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *memRequestStore) List(_ context.Context) ([]*BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BloodRequest, 0, len(s.requests))
	for _, r := range s.requests {
		copied := r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memRequestStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

func (s *memRequestStore) CountByStatus(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range s.requests {
		counts[r.Status]++
	}
	return counts, nil
}
