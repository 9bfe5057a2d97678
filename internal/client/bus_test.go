package client_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rasel/internal/client"
	"rasel/internal/protocol"
)

func tagged(resource protocol.Resource, data string) *protocol.Response {
	return &protocol.Response{
		Status:   protocol.StatusOK,
		Resource: resource,
		DataType: protocol.DataTypeText,
		Data:     data,
	}
}

func TestBusFanOut(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	first := make(chan *protocol.Response, 1)
	second := make(chan *protocol.Response, 1)
	bus.Subscribe(protocol.ResourceMessages, func(r *protocol.Response) { first <- r })
	bus.Subscribe(protocol.ResourceMessages, func(r *protocol.Response) { second <- r })

	bus.Publish(tagged(protocol.ResourceMessages, "hello"))

	for _, ch := range []chan *protocol.Response{first, second} {
		select {
		case r := <-ch:
			assert.Equal(t, "hello", r.Data)
		case <-time.After(2 * time.Second):
			t.Fatal("handler was not invoked")
		}
	}
}

func TestBusRoutesByTag(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	var groupsCalls atomic.Int32
	messages := make(chan *protocol.Response, 1)
	bus.Subscribe(protocol.ResourceGroups, func(*protocol.Response) { groupsCalls.Add(1) })
	bus.Subscribe(protocol.ResourceMessages, func(r *protocol.Response) { messages <- r })

	bus.Publish(tagged(protocol.ResourceMessages, "only for messages"))

	select {
	case <-messages:
	case <-time.After(2 * time.Second):
		t.Fatal("messages handler was not invoked")
	}
	assert.Zero(t, groupsCalls.Load())
}

func TestBusQueueFIFO(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	q := bus.Queue(protocol.ResourceUsers)

	bus.Publish(tagged(protocol.ResourceUsers, "first"))
	bus.Publish(tagged(protocol.ResourceUsers, "second"))

	assert.Equal(t, "first", (<-q).Data)
	assert.Equal(t, "second", (<-q).Data)
}

func TestBusQueueSurvivesLazyCreation(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	// publishing before any puller exists must not lose the response
	bus.Publish(tagged(protocol.ResourceGroups, "early"))

	select {
	case r := <-bus.Queue(protocol.ResourceGroups):
		assert.Equal(t, "early", r.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("queued response was lost")
	}
}

func TestBusDropsUnroutable(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	var calls atomic.Int32
	bus.Subscribe(protocol.ResourceMessages, func(*protocol.Response) { calls.Add(1) })

	bus.Publish(nil)
	bus.Publish(&protocol.Response{Status: protocol.StatusOK, DataType: protocol.DataTypeText, Data: "untagged"})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestBusUnsubscribe(t *testing.T) {
	bus := client.NewBus()
	defer bus.Close()

	removed := make(chan struct{}, 8)
	kept := make(chan struct{}, 8)
	sub := bus.Subscribe(protocol.ResourceMessages, func(*protocol.Response) { removed <- struct{}{} })
	bus.Subscribe(protocol.ResourceMessages, func(*protocol.Response) { kept <- struct{}{} })

	bus.Unsubscribe(sub)
	bus.Publish(tagged(protocol.ResourceMessages, "after removal"))

	select {
	case <-kept:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler was not invoked")
	}

	select {
	case <-removed:
		t.Fatal("unsubscribed handler was invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusCloseIdempotent(t *testing.T) {
	bus := client.NewBus()

	require.NotPanics(t, func() {
		bus.Close()
		bus.Close()
	})
}
