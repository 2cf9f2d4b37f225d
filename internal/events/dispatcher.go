package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	// Publish hands event to every subscriber. Subscriber failures are
	// logged and never returned to the publisher.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler that runs inline, in publish order.
	Subscribe(eventType EventType, handler EventHandler)
	// SubscribeAsync registers a handler that runs on its own goroutine,
	// detached from the publisher's cancellation.
	SubscribeAsync(eventType EventType, handler EventHandler)
	// Wait blocks until in-flight async handlers finish or ctx is done.
	Wait(ctx context.Context) error
}

type subscription struct {
	handler EventHandler
	async   bool
}

// inMemoryDispatcher fans events out to in-process subscribers.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]subscription
	inflight  sync.WaitGroup
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]subscription),
		logger:    logger.Named("events"),
	}
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) {
	d.mu.RLock()
	subs := append([]subscription(nil), d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, sub := range subs {
		if !sub.async {
			d.run(ctx, sub.handler, event)
			continue
		}
		d.inflight.Add(1)
		go func(h EventHandler) {
			defer d.inflight.Done()
			d.run(context.WithoutCancel(ctx), h, event)
		}(sub.handler)
	}
}

// run isolates one subscriber: an error or panic is logged and swallowed.
func (d *inMemoryDispatcher) run(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.subscribe(eventType, subscription{handler: handler})
}

func (d *inMemoryDispatcher) SubscribeAsync(eventType EventType, handler EventHandler) {
	d.subscribe(eventType, subscription{handler: handler, async: true})
}

func (d *inMemoryDispatcher) subscribe(eventType EventType, sub subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], sub)
}

func (d *inMemoryDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
