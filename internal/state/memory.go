package state

import (
	"context"
	"sync"

	"github.com/walkingday-ai/walkbot/internal/model"
)

// userEntry bundles one user's state behind a per-user mutex. The entry
// mutex, not the map mutex, is what serializes read-modify-write sequences
// such as the quota check-and-increment.
type userEntry struct {
	mu      sync.Mutex
	state   model.ConversationState
	profile model.UserProfile
	quota   model.RequestQuota
}

// MemoryStore is an in-process Store. Entries live for the process lifetime;
// there is no eviction.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[model.UserID]*userEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[model.UserID]*userEntry),
	}
}

func (s *MemoryStore) entry(userID model.UserID) *userEntry {
	s.mu.RLock()
	e, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.users[userID]; ok {
		return e
	}
	e = &userEntry{state: model.StateIdle}
	s.users[userID] = e
	return e
}

// State returns the user's conversation state, StateIdle if absent.
func (s *MemoryStore) State(ctx context.Context, userID model.UserID) (model.ConversationState, error) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == "" {
		return model.StateIdle, nil
	}
	return e.state, nil
}

// SetState records the user's conversation state.
func (s *MemoryStore) SetState(ctx context.Context, userID model.UserID, st model.ConversationState) error {
	e := s.entry(userID)
	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
	return nil
}

// Profile returns the user's profile, empty if absent.
func (s *MemoryStore) Profile(ctx context.Context, userID model.UserID) (model.UserProfile, error) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile, nil
}

// UpdateProfile applies fn to the user's profile under the user's lock.
func (s *MemoryStore) UpdateProfile(ctx context.Context, userID model.UserID, fn func(*model.UserProfile)) error {
	e := s.entry(userID)
	e.mu.Lock()
	fn(&e.profile)
	e.mu.Unlock()
	return nil
}

// Quota returns the user's request quota, fresh if absent.
func (s *MemoryStore) Quota(ctx context.Context, userID model.UserID) (model.RequestQuota, error) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quota, nil
}

// UpdateQuota applies fn to the user's quota under the user's lock.
func (s *MemoryStore) UpdateQuota(ctx context.Context, userID model.UserID, fn func(*model.RequestQuota)) error {
	e := s.entry(userID)
	e.mu.Lock()
	fn(&e.quota)
	e.mu.Unlock()
	return nil
}
