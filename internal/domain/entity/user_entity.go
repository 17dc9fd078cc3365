package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain"
)

const NameMinLength = 2

// User is the aggregate root for the user directory.
// It validates its own fields and records domain events; it never touches storage.
type User struct {
	ID        string
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time

	events []Event
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// NewUser is the factory for a fresh account: it assigns the id, the creation
// timestamp and the defaults, and records a UserCreated event.
func NewUser(email, name string) (*User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" {
		return nil, domain.Validation("user.create", "email and name are required")
	}
	normEmail, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	trimmed, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:        uuid.NewString(),
		Email:     normEmail,
		Name:      trimmed,
		IsActive:  true,
		CreatedAt: now(),
	}
	u.record(EventUserCreated)
	return u, nil
}

// UpdateName replaces the name in place.
func (u *User) UpdateName(name string) error {
	trimmed, err := normalizeName(name)
	if err != nil {
		return err
	}
	u.Name = trimmed
	return nil
}

// UpdateEmail replaces the email in place, lower-cased.
func (u *User) UpdateEmail(email string) error {
	norm, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	u.Email = norm
	return nil
}

func (u *User) Activate() {
	u.IsActive = true
}

func (u *User) Deactivate() {
	u.IsActive = false
}

// MarkDeleted soft-deletes the user. There is no way back.
func (u *User) MarkDeleted(at time.Time) {
	u.IsActive = false
	u.DeletedAt = &at
	u.UpdatedAt = &at
}

func (u *User) IsDeleted() bool { return u.DeletedAt != nil }

// Touch stamps UpdatedAt after a mutation.
func (u *User) Touch(at time.Time) {
	u.UpdatedAt = &at
}

// Record appends a domain event to be published once the change is persisted.
func (u *User) Record(eventType EventType) {
	u.record(eventType)
}

func (u *User) record(eventType EventType) {
	u.events = append(u.events, newEvent(eventType, u))
}

// Events returns the events recorded since the last ClearEvents.
func (u *User) Events() []Event {
	out := make([]Event, len(u.events))
	copy(out, u.events)
	return out
}

func (u *User) ClearEvents() { u.events = nil }

// NormalizeEmail validates the address shape and returns it trimmed and lower-cased.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return "", domain.Validation("user.email", "invalid email format")
	}
	if _, err := emailaddress.Parse(trimmed); err != nil {
		return "", domain.Validation("user.email", "invalid email format")
	}
	return strings.ToLower(trimmed), nil
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < NameMinLength {
		return "", domain.Validation("user.name", "name must be at least 2 characters")
	}
	return trimmed, nil
}
