package broker

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardRelaysDeliveries(t *testing.T) {
	b := &Binding{Queue: "q1"}
	msgs := make(chan amqp.Delivery, 2)
	merged := make(chan taggedDelivery, 2)
	done := make(chan struct{})

	msgs <- amqp.Delivery{Body: []byte("one")}
	msgs <- amqp.Delivery{Body: []byte("two")}
	close(msgs)

	forward(msgs, b, "q1", merged, done)

	require.Len(t, merged, 2)
	td := <-merged
	assert.Equal(t, []byte("one"), td.delivery.Body)
	assert.Equal(t, "q1", td.queue)
	assert.Same(t, b, td.binding)
}

func TestForwardStopsWhenDoneClosesWithoutReceiver(t *testing.T) {
	b := &Binding{Queue: "q1"}
	msgs := make(chan amqp.Delivery, 1)
	merged := make(chan taggedDelivery) // nobody receives
	done := make(chan struct{})

	msgs <- amqp.Delivery{Body: []byte("stuck")}

	exited := make(chan struct{})
	go func() {
		forward(msgs, b, "q1", merged, done)
		close(exited)
	}()

	// The forwarder is parked on the merged send; closing done must
	// release it even though the delivery is never handed over.
	close(done)
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder leaked after done was closed")
	}
}

func TestForwardReturnsWhenStreamCloses(t *testing.T) {
	b := &Binding{Queue: "q1"}
	msgs := make(chan amqp.Delivery)
	merged := make(chan taggedDelivery, 1)
	done := make(chan struct{})

	exited := make(chan struct{})
	go func() {
		forward(msgs, b, "q1", merged, done)
		close(exited)
	}()

	close(msgs)
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not return after the delivery stream closed")
	}
}
