package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
)

// JSONPublisher is the slice of helpers.RabbitPublisher used here.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey, messageID string, body any) error
}

// EventPublisher routes each user event by its type, e.g. "user.created".
type EventPublisher struct {
	pub     JSONPublisher
	timeout time.Duration
}

func NewEventPublisher(pub JSONPublisher) *EventPublisher {
	return &EventPublisher{pub: pub, timeout: 3 * time.Second}
}

// Publish sends every event and joins the failures; one bad event doesn't stop the rest.
func (p *EventPublisher) Publish(ctx context.Context, events ...entity.Event) error {
	c, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var errs []error
	for _, ev := range events {
		if err := p.pub.PublishJSON(c, string(ev.Type), ev.ID, ev); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", ev.Type, err))
		}
	}
	return errors.Join(errs...)
}

var _ application.EventPublisher = (*EventPublisher)(nil)
