package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InProcessWhenNoURL(t *testing.T) {
	bus, err := New("", nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer bus.Close()

	assert.Equal(t, BackendInProcess, bus.Backend())
}

func TestInProcessBus_RoundTrip(t *testing.T) {
	bus, err := New("", nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber.Subscribe(ctx, "competition.status.changed.v1")
	require.NoError(t, err)

	msg, err := NewJSONMessage(ctx, map[string]string{"to": "Completed"})
	require.NoError(t, err)
	require.NoError(t, bus.Publisher.Publish("competition.status.changed.v1", msg))

	select {
	case got := <-messages:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(got.Payload, &payload))
		assert.Equal(t, "Completed", payload["to"])
		assert.Equal(t, "application/json", got.Metadata.Get("content_type"))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestIsValidStreamName(t *testing.T) {
	assert.True(t, isValidStreamName("competition"))
	assert.True(t, isValidStreamName("competition_events-1"))
	assert.False(t, isValidStreamName(""))
	assert.False(t, isValidStreamName("competition.events"))
	assert.False(t, isValidStreamName("-competition"))
}

func TestNewJSONMessage_RejectsUnmarshalable(t *testing.T) {
	_, err := NewJSONMessage(context.Background(), make(chan int))
	assert.Error(t, err)
}
