package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book storage.
type Repository interface {
	Add(ctx context.Context, draft Draft) (Book, error)
	Update(ctx context.Context, patch Patch) (Book, error)
	Remove(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (Book, error)
	List(ctx context.Context) ([]Book, error)
}

// Pinger is implemented by repositories backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Mirror receives a copy of every locally created book.
type Mirror interface {
	CreateBook(ctx context.Context, title, author string) (int, error)
}
