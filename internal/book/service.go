package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultMirrorTimeout = 10 * time.Second

// Service provides book-related business logic.
type Service struct {
	repo          Repository
	mirror        Mirror
	mirrorTimeout time.Duration
	logger        *slog.Logger
	inflight      sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithMirror sends every created book to m in the background. The result
// never changes local state.
func WithMirror(m Mirror, timeout time.Duration) Option {
	return func(s *Service) {
		s.mirror = m
		if timeout > 0 {
			s.mirrorTimeout = timeout
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new book service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		mirrorTimeout: defaultMirrorTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates draft and adds it to the collection.
func (s *Service) Create(ctx context.Context, draft Draft) (Book, error) {
	draft = normalizeDraft(draft)
	if err := ValidateStruct(draft); err != nil {
		return Book{}, err
	}

	b, err := s.repo.Add(ctx, draft)
	if err != nil {
		return Book{}, fmt.Errorf("add book: %w", err)
	}
	s.logger.Debug("book created", "book_id", b.ID, "status", b.Status)

	if s.mirror != nil {
		s.mirrorCreate(b)
	}
	return b, nil
}

// Update validates patch and applies it to the stored book. Validation runs
// on the patch as sent, so a blank tag is rejected rather than dropped.
func (s *Service) Update(ctx context.Context, patch Patch) (Book, error) {
	if err := ValidateStruct(patch); err != nil {
		return Book{}, err
	}
	patch = normalizePatch(patch)
	b, err := s.repo.Update(ctx, patch)
	if err != nil {
		return Book{}, fmt.Errorf("update book %d: %w", patch.ID, err)
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove book %d: %w", id, err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int) (Book, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// Search returns the visible subset of the collection for q.
func (s *Service) Search(ctx context.Context, q Query) ([]Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return Filter(books, q.Q, q.Statuses), nil
}

// AddTag adds tag to a stored book. Blank tags are rejected; tags already
// present leave the book unchanged.
func (s *Service) AddTag(ctx context.Context, id int, tag string) (Book, error) {
	if strings.TrimSpace(tag) == "" {
		return Book{}, invalid("tag", "tag cannot be empty")
	}
	return s.Update(ctx, Patch{ID: id, AddTags: []string{tag}})
}

// RemoveTag removes tag from a stored book. Removing a tag the book does not
// carry is a no-op.
func (s *Service) RemoveTag(ctx context.Context, id int, tag string) (Book, error) {
	return s.Update(ctx, Patch{ID: id, RemoveTags: []string{tag}})
}

// Ping checks the backing store when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.repo.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Wait blocks until background mirror calls have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) mirrorCreate(b Book) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
		defer cancel()

		remoteID, err := s.mirror.CreateBook(ctx, b.Title, b.Author)
		if err != nil {
			s.logger.Warn("mirror create failed", "book_id", b.ID, "error", err)
			return
		}
		s.logger.Info("book mirrored", "book_id", b.ID, "remote_id", remoteID)
	}()
}
