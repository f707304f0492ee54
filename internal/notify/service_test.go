package notify

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestPublish(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*membership_activated.*`).SetVal(1)

	svc := NewWithClient(db, &HTTPDispatcher{})

	err := svc.Publish(ctx, "member:7", "membership_activated", "Welcome!", "Your membership is active.")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishQueueDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetErr(assert.AnError)

	svc := NewWithClient(db, &HTTPDispatcher{})

	// Publish reports the error; callers swallow it by policy.
	err := svc.Publish(ctx, "members", "plan_promotion", "New plan", "Check it out.")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("notifications").SetVal(4)

	svc := NewWithClient(db, &HTTPDispatcher{})
	assert.Equal(t, int64(4), svc.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHTTPDispatcherNoURL(t *testing.T) {
	d := &HTTPDispatcher{}
	err := d.Dispatch(context.Background(), Event{EventKind: "membership_activated"})
	assert.NoError(t, err)
}
