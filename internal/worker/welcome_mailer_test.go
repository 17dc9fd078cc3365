package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer/templates"
)

type sentMail struct {
	to, subject, text, html string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

type settled struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcker struct {
	mu  sync.Mutex
	got []settled
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settled{tag: tag, ack: true})
	return nil
}

func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.got = append(a.got, settled{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcker) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

var brand = templates.Brand{CompanyName: "Acme", AppName: "users", SupportURL: "https://acme.test/help"}

func eventBody(t *testing.T, typ entity.EventType, email string) []byte {
	t.Helper()
	b, err := json.Marshal(entity.Event{
		ID:         "evt-1",
		Type:       typ,
		UserID:     "u-1",
		Email:      email,
		Name:       "Ann",
		IsActive:   true,
		OccurredAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestHandle_SendsWelcomeOnCreated(t *testing.T) {
	s := &fakeSender{}
	w := NewWelcomeMailer(s, brand, nil)

	require.NoError(t, w.Handle(context.Background(), eventBody(t, entity.EventUserCreated, "ann@x.com")))
	require.Len(t, s.sent, 1)
	m := s.sent[0]
	assert.Equal(t, "ann@x.com", m.to)
	assert.Equal(t, "Welcome to Acme, Ann", m.subject)
	assert.Contains(t, m.text, "01 March 2024, 09:30")
	assert.Contains(t, m.html, "https://acme.test/help")
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	s := &fakeSender{}
	w := NewWelcomeMailer(s, brand, nil)

	require.NoError(t, w.Handle(context.Background(), eventBody(t, entity.EventUserUpdated, "ann@x.com")))
	assert.Empty(t, s.sent)
}

func TestHandle_Malformed(t *testing.T) {
	w := NewWelcomeMailer(&fakeSender{}, brand, nil)

	assert.ErrorIs(t, w.Handle(context.Background(), []byte("{nope")), ErrMalformed)
	assert.ErrorIs(t, w.Handle(context.Background(), eventBody(t, entity.EventUserCreated, "")), ErrMalformed)
}

func TestHandle_SendFailureIsRetryable(t *testing.T) {
	w := NewWelcomeMailer(&fakeSender{err: errors.New("mailgun down")}, brand, nil)

	err := w.Handle(context.Background(), eventBody(t, entity.EventUserCreated, "ann@x.com"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestRun_AcksDropsAndRequeues(t *testing.T) {
	acker := &fakeAcker{}
	failing := &fakeSender{err: errors.New("mailgun down")}

	deliver := func(tag uint64, body []byte) amqp.Delivery {
		return amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: body}
	}

	ch := make(chan amqp.Delivery, 3)
	ch <- deliver(1, eventBody(t, entity.EventUserCreated, "ann@x.com"))
	ch <- deliver(2, []byte("garbage"))
	close(ch)
	NewWelcomeMailer(&fakeSender{}, brand, nil).Run(context.Background(), ch)

	ch = make(chan amqp.Delivery, 1)
	ch <- deliver(3, eventBody(t, entity.EventUserCreated, "ann@x.com"))
	close(ch)
	NewWelcomeMailer(failing, brand, nil).Run(context.Background(), ch)

	assert.Equal(t, []settled{
		{tag: 1, ack: true},
		{tag: 2, requeue: false},
		{tag: 3, requeue: true},
	}, acker.got)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		NewWelcomeMailer(&fakeSender{}, brand, nil).Run(ctx, make(chan amqp.Delivery))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
