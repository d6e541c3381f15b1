package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/concurrency"
)

type message struct {
	routingKey string
	payload    any
}

// Dispatcher publishes events off the request path. Enqueue never blocks:
// when the queue is full the event is dropped and logged.
type Dispatcher struct {
	pub     Publisher
	queue   chan message
	workers int
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(pub Publisher, workers, queueSize int, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		queue:   make(chan message, queueSize),
		workers: workers,
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "events").Logger(),
		done:    make(chan struct{}),
	}
}

// Start runs the worker pool in the background until Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		concurrency.SimpleWorkerPool(ctx, d.workers, d.work)
	}()
}

func (d *Dispatcher) work(ctx context.Context, idx int) {
	for msg := range d.queue {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := d.pub.PublishJSON(pubCtx, msg.routingKey, msg.payload)
		cancel()
		if err != nil {
			d.log.Error().Err(err).Int("worker", idx).Str("routing_key", msg.routingKey).Msg("publish failed")
		}
	}
}

// Enqueue reports whether the event was queued. Events arriving after Close are dropped.
func (d *Dispatcher) Enqueue(routingKey string, payload any) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("routing_key", routingKey).Msg("dispatcher closed, dropping event")
		return false
	}
	select {
	case d.queue <- message{routingKey: routingKey, payload: payload}:
		return true
	default:
		d.log.Warn().Str("routing_key", routingKey).Msg("event queue full, dropping event")
		return false
	}
}

// OrderPaid queues an order.paid event.
func (d *Dispatcher) OrderPaid(evt OrderPaid) {
	d.Enqueue(RKOrderPaid, evt)
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
