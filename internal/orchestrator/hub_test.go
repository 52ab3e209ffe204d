package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusChannelName(t *testing.T) {
	assert.Equal(t, "reservation-status-client-7", StatusChannelName("client-7"))
}

func TestHubSendReachesEveryConnection(t *testing.T) {
	h := NewHub()
	a := h.Attach("client-1")
	b := h.Attach("client-1")
	other := h.Attach("client-2")

	h.Send("client-1", PushEvent{Type: "promotion", Data: "hello"})

	for _, ch := range []chan PushEvent{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "promotion", ev.Type)
		default:
			t.Fatal("expected an event on the channel")
		}
	}
	select {
	case <-other:
		t.Fatal("client-2 must not receive client-1 events")
	default:
	}
}

func TestHubDetachClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Attach("client-1")
	h.Detach("client-1", ch)

	_, open := <-ch
	assert.False(t, open)

	// Sending to a client with no connections is a no-op.
	h.Send("client-1", PushEvent{Type: "promotion"})
}

func TestHubSendNeverBlocks(t *testing.T) {
	h := NewHub()
	ch := h.Attach("client-1")

	// Overfill the buffer; extra events are dropped, not deadlocked on.
	for i := 0; i < 100; i++ {
		h.Send("client-1", PushEvent{Type: "promotion", Data: i})
	}
	require.Len(t, ch, cap(ch))
}
