// Package notify delivers ephemeral success/error messages to the user.
package notify

import (
	"sync"
	"time"

	"github.com/codeshare/appcore/internal/metrics"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is one transient message. Visible for a bounded duration,
// then dropped from Visible() (the record itself is kept until Close).
type Notification struct {
	Kind        Kind
	Title       string
	Description string
	PostedAt    time.Time
}

const defaultVisibleFor = 3 * time.Second

// Bus queues notifications and fans them out to subscribers. Concurrent
// notifications stack rather than replacing each other. Publishing to a
// closed bus is a no-op, so a component that publishes after its teardown
// neither panics nor leaks.
type Bus struct {
	mu         sync.Mutex
	queue      []Notification
	subs       map[int]chan Notification
	nextSub    int
	closed     bool
	visibleFor time.Duration
	nowTime    func() time.Time
	collector  *metrics.Collector
}

// Option configures the Bus.
type Option func(*Bus)

// WithVisibleDuration overrides how long a notification stays in Visible().
func WithVisibleDuration(d time.Duration) Option {
	return func(b *Bus) {
		b.visibleFor = d
	}
}

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Bus) {
		b.nowTime = nowFunc
	}
}

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(b *Bus) {
		b.collector = c
	}
}

// NewBus creates a Bus.
func NewBus(options ...Option) *Bus {
	b := &Bus{
		subs:       make(map[int]chan Notification),
		visibleFor: defaultVisibleFor,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Success publishes a success notification.
func (b *Bus) Success(title, description string) {
	b.publish(Notification{Kind: KindSuccess, Title: title, Description: description})
}

// Error publishes an error notification.
func (b *Bus) Error(title, description string) {
	b.publish(Notification{Kind: KindError, Title: title, Description: description})
}

func (b *Bus) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	n.PostedAt = b.nowTime()
	b.queue = append(b.queue, n)
	b.collector.RecordNotification(string(n.Kind))

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			// Slow subscriber; the queue remains the source of truth.
		}
	}
}

// Visible returns the notifications still inside their display window,
// oldest first.
func (b *Bus) Visible() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.nowTime().Add(-b.visibleFor)
	out := make([]Notification, 0, len(b.queue))
	for _, n := range b.queue {
		if n.PostedAt.After(cutoff) {
			out = append(out, n)
		}
	}
	return out
}

// Subscribe returns a stream of notifications as they are published and a
// release function. The channel is closed on release or bus close.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	ch := make(chan Notification, 16)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
}

// Close shuts the bus down. Further publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
