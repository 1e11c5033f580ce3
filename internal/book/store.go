package book

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is the in-memory Repository. Books are kept in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	books []Book
	now   func() time.Time
}

// NewMemoryStore returns an empty store. A nil clock defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

// Add assigns the next id and today's date to draft and appends it.
func (s *MemoryStore) Add(_ context.Context, draft Draft) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := NewBook(NextID(s.books), draft, Today(s.now()))
	s.books = append(s.books, b)
	return b.Clone(), nil
}

// Update applies patch to the matching book. It returns ErrNotFound when no
// book has patch.ID.
func (s *MemoryStore) Update(_ context.Context, patch Patch) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(patch.ID)
	if i < 0 {
		return Book{}, ErrNotFound
	}
	s.books[i] = ApplyPatch(s.books[i], patch, Today(s.now()))
	return s.books[i].Clone(), nil
}

func (s *MemoryStore) Remove(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.books = slices.Delete(s.books, i, i+1)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id int) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Book{}, ErrNotFound
	}
	return s.books[i].Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, len(s.books))
	for i, b := range s.books {
		out[i] = b.Clone()
	}
	return out, nil
}

// Load replaces the collection with books, keeping their ids and dates.
func (s *MemoryStore) Load(books []Book) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = make([]Book, len(books))
	for i, b := range books {
		s.books[i] = b.Clone()
	}
}

func (s *MemoryStore) indexOf(id int) int {
	return slices.IndexFunc(s.books, func(b Book) bool { return b.ID == id })
}
