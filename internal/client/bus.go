/*
Package client implements the chat client API: the connection lifecycle, the
request constructors, and the asynchronous response bus.

This file defines the Bus. The receiver loop publishes every decoded response
here; the bus routes tagged responses to a per-tag FIFO queue for pull-style
consumption and to all registered handlers for that tag. Handlers run on a
small fixed worker pool, never on the receiver goroutine, so one slow handler
cannot stall ingestion or its siblings.
*/
package client

import (
	"sync"

	"github.com/rs/zerolog"

	"rasel/internal/pkg/logx"
	"rasel/internal/pkg/randx"
	"rasel/internal/protocol"
)

const (
	// busWorkerCount is the size of the handler worker pool.
	busWorkerCount = 2

	// queueCapacity bounds each per-tag pull queue.
	queueCapacity = 256

	// taskBacklog bounds the handler dispatch queue feeding the worker pool.
	taskBacklog = 256
)

// Handler consumes one routed response. Handlers run off the receiver
// goroutine and must not assume any thread affinity.
type Handler func(*protocol.Response)

// Subscription identifies one registered handler for later removal.
type Subscription struct {
	resource protocol.Resource
	id       string
}

type busTask struct {
	handler Handler
	resp    *protocol.Response
}

type registeredHandler struct {
	id string
	fn Handler
}

// Bus fans decoded responses out to subscribers keyed by resource tag.
type Bus struct {
	mu sync.RWMutex

	handlers map[protocol.Resource][]registeredHandler
	queues   map[protocol.Resource]chan *protocol.Response

	tasks chan busTask
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	logger zerolog.Logger
}

// NewBus constructs a Bus and starts its worker pool.
func NewBus() *Bus {
	b := &Bus{
		handlers: make(map[protocol.Resource][]registeredHandler),
		queues:   make(map[protocol.Resource]chan *protocol.Response),
		tasks:    make(chan busTask, taskBacklog),
		done:     make(chan struct{}),
		logger:   logx.Logger().With().Str("component", "response_bus").Logger(),
	}

	b.wg.Add(busWorkerCount)
	for i := 0; i < busWorkerCount; i++ {
		go b.worker()
	}

	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case task := <-b.tasks:
			task.handler(task.resp)
		case <-b.done:
			return
		}
	}
}

// Subscribe registers a handler for a resource tag. Multiple subscribers per
// tag are allowed and all are invoked.
func (b *Bus) Subscribe(resource protocol.Resource, handler Handler) Subscription {
	sub := Subscription{resource: resource, id: randx.SubscriptionID()}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[resource] = append(b.handlers[resource], registeredHandler{id: sub.id, fn: handler})
	return sub
}

// Unsubscribe removes exactly the handler behind the subscription. Safe to
// call concurrently with dispatch; deliveries already in flight to the removed
// handler may still complete.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	registered := b.handlers[sub.resource]
	for idx, h := range registered {
		if h.id == sub.id {
			b.handlers[sub.resource] = append(registered[:idx], registered[idx+1:]...)
			return
		}
	}
}

// Queue returns the per-tag FIFO queue for pull-style consumption. The channel
// is shared by all pullers of that tag.
func (b *Bus) Queue(resource protocol.Resource) <-chan *protocol.Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue(resource)
}

// queue lazily creates the pull channel for a tag. Caller holds b.mu.
func (b *Bus) queue(resource protocol.Resource) chan *protocol.Response {
	q, ok := b.queues[resource]
	if !ok {
		q = make(chan *protocol.Response, queueCapacity)
		b.queues[resource] = q
	}
	return q
}

// Publish routes one decoded response. Untagged responses are dropped, they
// cannot be routed. Tagged responses are queued for pullers and dispatched to
// every registered handler through the worker pool.
func (b *Bus) Publish(resp *protocol.Response) {
	if resp == nil || resp.Resource == "" {
		return
	}

	b.mu.Lock()
	q := b.queue(resp.Resource)
	registered := make([]registeredHandler, len(b.handlers[resp.Resource]))
	copy(registered, b.handlers[resp.Resource])
	b.mu.Unlock()

	select {
	case q <- resp:
	default:
		b.logger.Warn().Str("resource", string(resp.Resource)).Msg("Pull queue full, dropping response.")
	}

	for _, h := range registered {
		select {
		case b.tasks <- busTask{handler: h.fn, resp: resp}:
		case <-b.done:
			return
		default:
			b.logger.Warn().Str("resource", string(resp.Resource)).Msg("Handler backlog full, dropping dispatch.")
		}
	}
}

// Close stops the worker pool. Queued but undispatched tasks are abandoned.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
}
