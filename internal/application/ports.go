package application

import (
	"context"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
)

// EventPublisher ships domain events to the outside world once a write has been persisted.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.Event) error
}

// SearchHit is one match returned by the search index.
type SearchHit struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	IsActive bool    `json:"isActive"`
	Score    float64 `json:"score"`
}

// UserIndexer keeps a secondary search index of alive users.
type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, size int) ([]SearchHit, error)
}
