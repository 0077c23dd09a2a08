package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/campusforge/fabric/internal/metrics"
)

// Bus is the interface for the event bus.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler, filter ...Filter) (unsubscribe func())
	SubscribeAll(handler EventHandler) (unsubscribe func())
	SubscribeHandler(handler Handler, filter ...Filter) (unsubscribe func())
	Stop() error
	ReplayPersistedEvents(ctx context.Context) error
	Stats() Stats
}

// subscription represents a registered event handler. Dispatch for one
// subscription is strictly sequential in publish order: a single
// goroutine reads from events and calls handler, never concurrently.
type subscription struct {
	id           uint64
	eventType    EventType // empty means subscribe to all types
	filter       Filter
	hasFilter    bool
	handler      EventHandler
	events       chan Event
	done         chan struct{}
	unsubscribed atomic.Bool
}

// EventBus is the default implementation of Bus: a process-local,
// single-instance dispatcher running under a cooperative scheduling
// model — publish never blocks on handler execution.
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        atomic.Uint64
	stopped       atomic.Bool
	logger        *slog.Logger

	bufferSize int

	dropCount      atomic.Int64
	lastStatsTime  time.Time
	lastStatsDrops int64
	dropLogLimiter *rate.Limiter

	statsMu             sync.Mutex
	publishedByCategory map[Category]int64

	store   Store
	drainWG sync.WaitGroup
}

// Option configures the event bus.
type Option func(*EventBus)

// WithBufferSize sets the per-subscriber mailbox buffer size.
func WithBufferSize(size int) Option {
	return func(b *EventBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets the bus's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *EventBus) { b.logger = logger }
}

// WithStore attaches a durable Store; persistent and CRITICAL events are
// appended to it before dispatch.
func WithStore(store Store) Option {
	return func(b *EventBus) { b.store = store }
}

// NewBus creates a new event bus with the given options. Default mailbox
// buffer size is 100, matching the rest of the component family.
func NewBus(opts ...Option) *EventBus {
	b := &EventBus{
		subscriptions:       make(map[uint64]*subscription),
		bufferSize:          100,
		logger:              slog.Default(),
		dropLogLimiter:      rate.NewLimiter(rate.Every(time.Second), 1),
		publishedByCategory: make(map[Category]int64),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish sends an event to all matching subscribers. If the event
// should be persisted (IsPersistent or CRITICAL priority), it is
// appended to the durable store first; a persistence failure is logged
// and does not block dispatch.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	if b.stopped.Load() {
		return ErrBusClosed
	}

	b.statsMu.Lock()
	b.publishedByCategory[event.Category]++
	b.statsMu.Unlock()

	if b.store != nil && event.ShouldPersist() {
		if err := b.store.Append(event); err != nil {
			b.logger.Warn("event persistence failed", "error", err, "event_type", event.Type)
			metrics.EventBusPersistenceFailures.Inc()
		}
	}

	return b.dispatch(ctx, event)
}

func (b *EventBus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		if sub.hasFilter && !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Mailbox full: evict the oldest queued event to make room.
			var dropped []Event
			select {
			case old := <-sub.events:
				dropped = append(dropped, old)
			default:
			}
			select {
			case sub.events <- event:
			default:
				dropped = append(dropped, event)
			}
			for _, d := range dropped {
				b.dropCount.Add(1)
				metrics.EventBusDroppedEvents.WithLabelValues(string(d.Type)).Inc()
				if b.dropLogLimiter.Allow() {
					b.logger.Warn("event bus subscriber mailbox full, dropping oldest event",
						"event_type", d.Type, "subscriber_id", sub.id)
				}
			}
		}
	}
	return nil
}

// Subscribe registers a handler for a specific event type, optionally
// narrowed by a filter. Returns an unsubscribe function.
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler, filter ...Filter) func() {
	var f Filter
	hasFilter := len(filter) > 0
	if hasFilter {
		f = filter[0]
	}
	return b.subscribe(eventType, f, hasFilter, handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) func() {
	return b.subscribe("", Filter{}, false, handler)
}

// SubscribeHandler registers an object-style handler. If handler
// implements FilterProvider, its own Filter supersedes any externally
// supplied one.
func (b *EventBus) SubscribeHandler(handler Handler, filter ...Filter) func() {
	var f Filter
	hasFilter := len(filter) > 0
	if hasFilter {
		f = filter[0]
	}
	if fp, ok := handler.(FilterProvider); ok {
		f = fp.Filter()
		hasFilter = true
	}
	return b.subscribe("", f, hasFilter, handler.HandleEvent)
}

func (b *EventBus) subscribe(eventType EventType, filter Filter, hasFilter bool, handler EventHandler) func() {
	if b.stopped.Load() {
		return func() {}
	}

	id := b.nextID.Add(1)
	sub := &subscription{
		id:        id,
		eventType: eventType,
		filter:    filter,
		hasFilter: hasFilter,
		handler:   handler,
		events:    make(chan Event, b.bufferSize),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	b.subscriptions[id] = sub
	b.mu.Unlock()

	b.drainWG.Add(1)
	go b.processEvents(sub)

	metrics.EventBusSubscriberCount.Inc()

	return func() { b.unsubscribe(id) }
}

// processEvents delivers events to a single subscriber strictly in
// publish order; apart from dispatch evicting the oldest queued event
// when the mailbox is full, this is the only goroutine that reads
// sub.events.
func (b *EventBus) processEvents(sub *subscription) {
	defer b.drainWG.Done()
	for {
		select {
		case event, ok := <-sub.events:
			if !ok {
				return
			}
			b.safeCall(sub, event)
		case <-sub.done:
			for {
				select {
				case event, ok := <-sub.events:
					if !ok {
						return
					}
					b.safeCall(sub, event)
				default:
					return
				}
			}
		}
	}
}

// safeCall invokes the handler with panic recovery, converting a panic
// into a logged SubscriberHandlerError rather than crashing the bus.
func (b *EventBus) safeCall(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"error", &SubscriberHandlerError{SubscriberID: sub.id, Cause: r},
				"subscriber_id", sub.id, "event_type", event.Type, "panic", r)
		}
	}()
	sub.handler(event)
}

func (b *EventBus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscriptions[id]
	if ok {
		delete(b.subscriptions, id)
	}
	b.mu.Unlock()

	if ok && sub.unsubscribed.CompareAndSwap(false, true) {
		close(sub.done)
		close(sub.events)
		metrics.EventBusSubscriberCount.Dec()
	}
}

// Stop shuts the bus down, signals every subscriber to drain and
// terminate, and waits up to a bounded interval for that to finish.
// Publish becomes a no-op returning ErrBusClosed after Stop is called.
func (b *EventBus) Stop() error {
	if b.stopped.Swap(true) {
		return nil
	}

	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.subscriptions = make(map[uint64]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.unsubscribed.CompareAndSwap(false, true) {
			close(sub.done)
			close(sub.events)
		}
	}

	done := make(chan struct{})
	go func() {
		b.drainWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		b.logger.Warn("event bus stop: subscriber drain exceeded bound, abandoning stragglers")
	}

	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// ReplayPersistedEvents reads the durable store and re-publishes each
// event, oldest first, used on cold start for recovery.
func (b *EventBus) ReplayPersistedEvents(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	events, err := b.store.ReadAll()
	if err != nil {
		return &PersistenceError{Cause: err}
	}
	for _, e := range events {
		if err := b.dispatch(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes current bus activity.
type Stats struct {
	SubscriberCount     int
	Stopped             bool
	Dropped             int64
	DropRatePerSec      float64
	PublishedByCategory map[Category]int64
}

// Stats returns current bus statistics.
func (b *EventBus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastStatsTime)
	if b.lastStatsTime.IsZero() {
		elapsed = 0
	}
	drops := b.dropCount.Load()
	deltaDrops := drops - b.lastStatsDrops
	var rateVal float64
	if elapsed > 0 {
		rateVal = float64(deltaDrops) / elapsed.Seconds()
	}
	b.lastStatsTime = now
	b.lastStatsDrops = drops

	b.statsMu.Lock()
	byCategory := make(map[Category]int64, len(b.publishedByCategory))
	for c, n := range b.publishedByCategory {
		byCategory[c] = n
	}
	b.statsMu.Unlock()

	return Stats{
		SubscriberCount:     len(b.subscriptions),
		Stopped:             b.stopped.Load(),
		Dropped:             drops,
		DropRatePerSec:      rateVal,
		PublishedByCategory: byCategory,
	}
}
