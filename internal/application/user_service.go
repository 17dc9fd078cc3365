package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	repo "github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
)

const (
	DefaultLimit      = 10
	MaxLimit          = 100
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// UserService is the user directory: the only write path for users.
// It enforces the cross-record rules (email uniqueness, existence) around the aggregate.
type UserService struct {
	repo      repo.UserRepository
	logger    *logrus.Logger
	publisher EventPublisher
	indexer   UserIndexer
	now       func() time.Time
}

type Option func(*UserService)

func WithLogger(l *logrus.Logger) Option {
	return func(s *UserService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *UserService) { s.publisher = p }
}

func WithIndexer(i UserIndexer) Option {
	return func(s *UserService) { s.indexer = i }
}

func WithClock(now func() time.Time) Option {
	return func(s *UserService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewUserService(r repo.UserRepository, opts ...Option) *UserService {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &UserService{
		repo:   r,
		logger: discard,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateUserInput struct {
	Email string
	Name  string
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Email *string
	Name  *string
}

type ListResult struct {
	Users  []*entity.User
	Total  int
	Limit  int
	Offset int
}

// GetByID returns an alive user.
func (s *UserService) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return s.find(ctx, "user.get", id)
}

// List returns a page of alive, active users in insertion order. Total is
// counted with the same filter, independently of the page.
func (s *UserService) List(ctx context.Context, limit, offset int) (ListResult, error) {
	const op = "user.list"
	limit, offset = normalizePage(limit, offset)
	filter := repo.UserFilter{Active: repo.BoolPtr(true)}

	users, err := s.repo.FindPage(ctx, filter, limit, offset)
	if err != nil {
		return ListResult{}, domain.Internal(op, err)
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return ListResult{}, domain.Internal(op, err)
	}
	return ListResult{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

// Create registers a new user. A taken email is reported before the name is
// validated. The lookup is a fast path; the unique index is what actually
// guarantees uniqueness under concurrency.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	const op = "user.create"

	email, err := entity.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, op, email, ""); err != nil {
		return nil, err
	}
	u, err := entity.NewUser(email, in.Name)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.Insert(ctx, u)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, domain.AlreadyExists(op, "user with this email already exists", err)
		}
		return nil, domain.Internal(op, err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": stored.ID}).Info("user created")
	s.afterWrite(ctx, stored, u.Events())
	return stored, nil
}

// Update applies the provided fields only. Validation failures leave the row untouched.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	const op = "user.update"

	current, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}

	var fields repo.UserFields
	if in.Name != nil {
		if err := current.UpdateName(*in.Name); err != nil {
			return nil, err
		}
		fields.Name = &current.Name
	}
	if in.Email != nil {
		prev := current.Email
		if err := current.UpdateEmail(*in.Email); err != nil {
			return nil, err
		}
		if current.Email != prev {
			if err := s.ensureEmailFree(ctx, op, current.Email, current.ID); err != nil {
				return nil, err
			}
			fields.Email = &current.Email
		}
	}
	if fields.Name == nil && fields.Email == nil {
		return current, nil
	}

	current.Touch(s.now())
	fields.UpdatedAt = current.UpdatedAt
	stored, err := s.write(ctx, op, id, fields)
	if err != nil {
		return nil, err
	}

	stored.Record(entity.EventUserUpdated)
	s.logger.WithFields(logrus.Fields{"user_id": id}).Info("user updated")
	s.afterWrite(ctx, stored, stored.Events())
	return stored, nil
}

// Delete soft-deletes the user. Deleting twice reports NotFound the second time.
func (s *UserService) Delete(ctx context.Context, id string) error {
	const op = "user.delete"

	current, err := s.find(ctx, op, id)
	if err != nil {
		return err
	}
	current.MarkDeleted(s.now())

	stored, err := s.write(ctx, op, id, repo.UserFields{
		IsActive:  repo.BoolPtr(false),
		DeletedAt: current.DeletedAt,
		UpdatedAt: current.UpdatedAt,
	})
	if err != nil {
		return err
	}

	stored.Record(entity.EventUserDeleted)
	s.logger.WithFields(logrus.Fields{"user_id": id}).Info("user deleted")
	s.afterWrite(ctx, stored, stored.Events())
	return nil
}

// SetActive activates or deactivates an alive user. Setting the current state is a no-op.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*entity.User, error) {
	const op = "user.set_active"

	current, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if current.IsActive == active {
		return current, nil
	}

	event := entity.EventUserDeactivated
	if active {
		current.Activate()
		event = entity.EventUserActivated
	} else {
		current.Deactivate()
	}

	current.Touch(s.now())
	stored, err := s.write(ctx, op, id, repo.UserFields{IsActive: &current.IsActive, UpdatedAt: current.UpdatedAt})
	if err != nil {
		return nil, err
	}

	stored.Record(event)
	s.afterWrite(ctx, stored, stored.Events())
	return stored, nil
}

// Search queries the search index. Without an index configured it returns no hits.
func (s *UserService) Search(ctx context.Context, query string, size int) ([]SearchHit, error) {
	const op = "user.search"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Validation(op, "query is required")
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}
	if s.indexer == nil {
		return []SearchHit{}, nil
	}
	hits, err := s.indexer.Search(ctx, query, size)
	if err != nil {
		return nil, domain.Internal(op, err)
	}
	return hits, nil
}

// Ping reports whether the backing store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *UserService) find(ctx context.Context, op, id string) (*entity.User, error) {
	u, err := s.repo.FindOne(ctx, repo.UserFilter{ID: id})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, domain.NotFound(op, "user with ID "+id+" not found")
		}
		return nil, domain.Internal(op, err)
	}
	return u, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, op, email, ownerID string) error {
	existing, err := s.repo.FindOne(ctx, repo.UserFilter{Email: email})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil
	case err != nil:
		return domain.Internal(op, err)
	case existing.ID == ownerID:
		return nil
	}
	return domain.AlreadyExists(op, "user with this email already exists", nil)
}

// write persists fields on an alive row. A row that vanished since it was read is NotFound.
func (s *UserService) write(ctx context.Context, op, id string, fields repo.UserFields) (*entity.User, error) {
	stored, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, domain.NotFound(op, "user with ID "+id+" not found")
		case errors.Is(err, repo.ErrDuplicate):
			return nil, domain.AlreadyExists(op, "user with this email already exists", err)
		}
		return nil, domain.Internal(op, err)
	}
	return stored, nil
}

// afterWrite runs the best-effort side effects of a persisted change.
// Failures are logged and never change the outcome of the operation.
func (s *UserService) afterWrite(ctx context.Context, u *entity.User, events []entity.Event) {
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.WithError(err).WithField("user_id", u.ID).Warn("publish user events failed")
		}
	}
	if s.indexer != nil {
		var err error
		if u.IsDeleted() {
			err = s.indexer.Remove(ctx, u.ID)
		} else {
			err = s.indexer.Index(ctx, u)
		}
		if err != nil {
			s.logger.WithError(err).WithField("user_id", u.ID).Warn("search index update failed")
		}
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
