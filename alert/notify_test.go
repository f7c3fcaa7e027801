package alert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/errors"
)

func testEvent() Event {
	return Event{
		Record:  Record{ID: "alert-1", State: StateOpen, Level: 1},
		To:      StateOpen,
		Message: "high alert opened for dataset/silver/orders",
	}
}

func TestDispatcherThrottlesPerChannel(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, 1, zap.NewNop().Sugar())
	ctx := context.Background()

	assert.Equal(t, 1, d.Dispatch(ctx, []string{"email"}, testEvent()))
	assert.Equal(t, 0, d.Dispatch(ctx, []string{"email"}, testEvent()))

	// Other channels have their own budget.
	assert.Equal(t, 1, d.Dispatch(ctx, []string{"slack"}, testEvent()))

	sent := notifier.attempts()
	require.Len(t, sent, 2)
	assert.Equal(t, "email", sent[0].channel)
	assert.Equal(t, "slack", sent[1].channel)
}

func TestDispatcherUnlimitedWhenDisabled(t *testing.T) {
	notifier := &recordingNotifier{}
	d := NewDispatcher(notifier, 0, zap.NewNop().Sugar())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		assert.Equal(t, 1, d.Dispatch(ctx, []string{"email"}, testEvent()))
	}
	assert.Len(t, notifier.attempts(), 20)
}

func TestDispatcherIsolatesDeliveryFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook returned 500")}
	d := NewDispatcher(notifier, 0, zap.NewNop().Sugar())

	sent := d.Dispatch(context.Background(), []string{"email", "slack"}, testEvent())
	assert.Zero(t, sent)
	assert.Len(t, notifier.attempts(), 2)
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(zap.NewNop().Sugar())

	err := n.Notify(context.Background(), "email", testEvent())
	assert.NoError(t, err)
}
