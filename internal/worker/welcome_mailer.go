// Package worker holds background consumers of user events.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer"
	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer/templates"
)

// ErrMalformed marks a message that can never be processed; it is dropped instead of requeued.
var ErrMalformed = errors.New("malformed message")

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// WelcomeMailer sends a welcome email for every user.created event.
type WelcomeMailer struct {
	sender  Sender
	brand   templates.Brand
	logger  *logrus.Logger
	timeout time.Duration
}

func NewWelcomeMailer(sender Sender, brand templates.Brand, logger *logrus.Logger) *WelcomeMailer {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &WelcomeMailer{sender: sender, brand: brand, logger: logger, timeout: 15 * time.Second}
}

// Handle processes one message body. Events other than user.created are ignored.
func (w *WelcomeMailer) Handle(ctx context.Context, body []byte) error {
	var ev entity.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.Type != entity.EventUserCreated {
		return nil
	}
	if ev.Email == "" {
		return fmt.Errorf("%w: event %s has no email", ErrMalformed, ev.ID)
	}

	job := mailer.EmailJob{
		To:       ev.Email,
		Template: templates.Welcome,
		Data:     templates.NewWelcomeData(w.brand, ev.Name, ev.Email, templates.WithTime(ev.OccurredAt)),
	}
	subject, text, html, err := job.Content()
	if err != nil {
		return fmt.Errorf("%w: render: %v", ErrMalformed, err)
	}

	c, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

// Run consumes deliveries until ctx is done or the channel closes.
// Malformed messages are dropped; send failures are requeued.
func (w *WelcomeMailer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.settle(d, w.Handle(ctx, d.Body))
		}
	}
}

func (w *WelcomeMailer) settle(d amqp.Delivery, err error) {
	log := w.logger.WithFields(logrus.Fields{"message_id": d.MessageId, "routing_key": d.RoutingKey})
	switch {
	case err == nil:
		if aerr := d.Ack(false); aerr != nil {
			log.WithError(aerr).Warn("ack failed")
		}
	case errors.Is(err, ErrMalformed):
		log.WithError(err).Error("dropping message")
		_ = d.Nack(false, false)
	default:
		log.WithError(err).Warn("requeueing message")
		_ = d.Nack(false, true)
	}
}
