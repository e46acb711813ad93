package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/temple-membership/internal/domain/event"
)

// ErrClosed is returned when dispatching after Close
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher delivers application lifecycle events to subscribers.
// Handlers of one event always run in subscription order.
type Dispatcher interface {
	// Subscribe registers handler under name for each event type.
	// Subscribing an existing name for a type replaces the earlier handler.
	Subscribe(name string, handler Handler, eventTypes ...event.Type)

	// Unsubscribe removes every registration of name
	Unsubscribe(name string)

	// Dispatch runs every handler of the event before returning.
	// A failing handler does not stop the others; failures are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync delivers events in the background, in the order given,
	// on a context detached from the caller's cancellation. Events from
	// separate calls are not ordered relative to each other.
	DispatchAsync(ctx context.Context, events ...*event.Event)

	// ListHandlers returns the subscribers of an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and waits for background deliveries
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type subscription struct {
	name    string
	handler Handler
}

type eventDispatcher struct {
	mu             sync.RWMutex
	subscriptions  map[event.Type][]subscription
	logger         Logger
	handlerTimeout time.Duration

	// lifecycle guards closed so no delivery starts once Close is waiting
	lifecycle sync.Mutex
	closed    bool
	inflight  sync.WaitGroup
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithHandlerTimeout bounds each background handler run. Zero means no timeout.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *eventDispatcher) {
		d.handlerTimeout = timeout
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		subscriptions: make(map[event.Type][]subscription),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Subscribe(name string, handler Handler, eventTypes ...event.Type) {
	if handler == nil || len(eventTypes) == 0 {
		return
	}

	d.mu.Lock()
	for _, eventType := range eventTypes {
		subs := d.subscriptions[eventType]
		replaced := false
		for i := range subs {
			if subs[i].name == name {
				subs[i].handler = handler
				replaced = true
				break
			}
		}
		if !replaced {
			subs = append(subs, subscription{name: name, handler: handler})
		}
		d.subscriptions[eventType] = subs
	}
	d.mu.Unlock()

	d.logInfo("Handler subscribed", "handler_name", name, "event_types", eventTypes)
}

func (d *eventDispatcher) Unsubscribe(name string) {
	d.mu.Lock()
	removed := 0
	for eventType, subs := range d.subscriptions {
		kept := subs[:0]
		for _, s := range subs {
			if s.name == name {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(d.subscriptions, eventType)
		} else {
			d.subscriptions[eventType] = kept
		}
	}
	d.mu.Unlock()

	if removed > 0 {
		d.logInfo("Handler unsubscribed", "handler_name", name, "registrations", removed)
	}
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if evt == nil {
		return fmt.Errorf("event is required")
	}
	if d.isClosed() {
		return ErrClosed
	}

	subs := d.subscribers(evt.Type)
	var errs []error
	for _, s := range subs {
		if err := d.run(ctx, evt, s); err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, events ...*event.Event) {
	type delivery struct {
		evt  *event.Event
		subs []subscription
	}

	var batch []delivery
	for _, evt := range events {
		if evt == nil {
			continue
		}
		if subs := d.subscribers(evt.Type); len(subs) > 0 {
			batch = append(batch, delivery{evt: evt, subs: subs})
		}
	}

	d.lifecycle.Lock()
	if d.closed {
		d.lifecycle.Unlock()
		for _, evt := range events {
			if evt != nil {
				d.logError("Event dropped, dispatcher is closed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"application_id", evt.ApplicationID,
				)
			}
		}
		return
	}
	if len(batch) == 0 {
		d.lifecycle.Unlock()
		return
	}
	d.inflight.Add(1)
	d.lifecycle.Unlock()

	// the request that produced the events has usually returned before delivery
	base := context.WithoutCancel(ctx)

	go func() {
		defer d.inflight.Done()
		for _, dl := range batch {
			for _, s := range dl.subs {
				d.runWithTimeout(base, dl.evt, s)
			}
		}
	}()
}

func (d *eventDispatcher) runWithTimeout(ctx context.Context, evt *event.Event, s subscription) {
	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}

	// failures are logged by run
	_ = d.run(ctx, evt, s)
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	subs := d.subscribers(eventType)
	infos := make([]HandlerInfo, len(subs))
	for i, s := range subs {
		infos[i] = HandlerInfo{Name: s.name, EventType: eventType}
	}
	return infos
}

func (d *eventDispatcher) Close() error {
	d.lifecycle.Lock()
	if d.closed {
		d.lifecycle.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.closed = true
	d.lifecycle.Unlock()

	d.logInfo("Closing dispatcher, draining background deliveries")
	d.inflight.Wait()
	return nil
}

func (d *eventDispatcher) isClosed() bool {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	return d.closed
}

func (d *eventDispatcher) subscribers(eventType event.Type) []subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]subscription(nil), d.subscriptions[eventType]...)
}

// run invokes one handler, turning a panic into an error
func (d *eventDispatcher) run(ctx context.Context, evt *event.Event, s subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			d.logError("Event handler failed",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"application_id", evt.ApplicationID,
				"handler_name", s.name,
				"error", err,
			)
		}
	}()

	return s.handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *eventDispatcher) logError(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, keysAndValues...)
	}
}
