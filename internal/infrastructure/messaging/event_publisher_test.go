package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
)

type sent struct {
	key, id string
	body    any
}

type fakeJSONPublisher struct {
	sent   []sent
	failOn string
}

func (f *fakeJSONPublisher) PublishJSON(_ context.Context, key, id string, body any) error {
	if key == f.failOn {
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, sent{key: key, id: id, body: body})
	return nil
}

func TestPublish_RoutesByEventType(t *testing.T) {
	u, err := entity.NewUser("a@x.com", "Ann")
	require.NoError(t, err)
	u.Deactivate()
	u.Record(entity.EventUserDeactivated)

	fake := &fakeJSONPublisher{}
	require.NoError(t, NewEventPublisher(fake).Publish(context.Background(), u.Events()...))

	require.Len(t, fake.sent, 2)
	assert.Equal(t, "user.created", fake.sent[0].key)
	assert.Equal(t, "user.deactivated", fake.sent[1].key)

	ev, ok := fake.sent[1].body.(entity.Event)
	require.True(t, ok)
	assert.Equal(t, u.ID, ev.UserID)
	assert.Equal(t, ev.ID, fake.sent[1].id)
	assert.False(t, ev.IsActive)
}

func TestPublish_ContinuesPastFailures(t *testing.T) {
	u, err := entity.NewUser("a@x.com", "Ann")
	require.NoError(t, err)
	u.Record(entity.EventUserUpdated)

	fake := &fakeJSONPublisher{failOn: "user.created"}
	err = NewEventPublisher(fake).Publish(context.Background(), u.Events()...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish user.created")

	require.Len(t, fake.sent, 1)
	assert.Equal(t, "user.updated", fake.sent[0].key)
}
