package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no alive row matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a write hits the alive-email unique index.
	ErrDuplicate = errors.New("duplicate user email")
)

// UserFilter is a conjunction of equality checks. Soft-deleted rows are
// excluded unless IncludeDeleted is set.
type UserFilter struct {
	ID             string
	Email          string
	Active         *bool
	IncludeDeleted bool
}

// UserFields is a partial write; nil pointers leave the column untouched.
type UserFields struct {
	Email     *string
	Name      *string
	IsActive  *bool
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// UserRepository defines the storage operations the user directory relies on.
type UserRepository interface {
	FindOne(ctx context.Context, f UserFilter) (*entity.User, error)
	FindPage(ctx context.Context, f UserFilter, limit, offset int) ([]*entity.User, error)
	Count(ctx context.Context, f UserFilter) (int, error)
	Insert(ctx context.Context, u *entity.User) (*entity.User, error)
	// UpdateFields only touches alive rows and returns the row as stored.
	UpdateFields(ctx context.Context, id string, fields UserFields) (*entity.User, error)
	Ping(ctx context.Context) error
}

func BoolPtr(b bool) *bool { return &b }
