package state

import "sync"

// Store maps a chat id to its current conversation value.
type Store[T any] struct {
	mu    sync.RWMutex
	slots map[int64]T
}

// NewStore constructs an empty in-memory Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{slots: make(map[int64]T)}
}

// Get returns the chat's value and whether a slot exists.
func (s *Store[T]) Get(chatID int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[chatID]
	return v, ok
}

// Set replaces the chat's value, creating the slot if needed.
func (s *Store[T]) Set(chatID int64, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[chatID] = v
}

// Update applies fn to the current value under the write lock.
// When fn returns keep=false the slot is removed.
func (s *Store[T]) Update(chatID int64, fn func(cur T, ok bool) (next T, keep bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.slots[chatID]
	next, keep := fn(cur, ok)
	if keep {
		s.slots[chatID] = next
		return
	}
	delete(s.slots, chatID)
}

// Delete drops the chat's slot.
func (s *Store[T]) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, chatID)
}

// Active reports whether the chat has a slot.
func (s *Store[T]) Active(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slots[chatID]
	return ok
}

// Len returns the number of chats with a slot.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
