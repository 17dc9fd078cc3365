package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventUserCreated     EventType = "user.created"
	EventUserUpdated     EventType = "user.updated"
	EventUserDeleted     EventType = "user.deleted"
	EventUserActivated   EventType = "user.activated"
	EventUserDeactivated EventType = "user.deactivated"
)

// Event is a fact about a user, captured at the time it happened.
// It carries a snapshot so consumers don't have to read back from storage.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(t EventType, u *User) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     u.ID,
		Email:      u.Email,
		Name:       u.Name,
		IsActive:   u.IsActive,
		OccurredAt: now(),
	}
}
