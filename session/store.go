// Package session owns the current authentication session on the client
// side. The Store performs one fetch of the current session at start-up and
// simultaneously consumes the identity service's push stream; both write to
// the same single source of truth.
package session

import (
	"context"
	"sync"

	"github.com/codeshare/appcore/identity"
	"github.com/codeshare/appcore/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Snapshot is the store's externally visible state. IsLoading is true only
// until the initial fetch resolves; push events never set it back.
type Snapshot struct {
	Session   *identity.Session
	IsLoading bool
}

// Authenticated reports whether a session is present.
func (s Snapshot) Authenticated() bool {
	return s.Session != nil
}

// Store holds the current session. Exactly one session is current at a
// time; every update replaces it wholesale. Pushed events are applied in
// the order the service emits them, and a push that arrives before the
// initial fetch resolves is never overwritten by the stale fetch result.
type Store struct {
	svc       identity.Service
	collector *metrics.Collector

	mu          sync.Mutex
	current     *identity.Session
	loading     bool
	pushApplied bool
	closed      bool
	started     bool
	unsubscribe identity.Unsubscribe
	subs        map[int]chan Snapshot
	nextSub     int
}

// Option configures the Store.
type Option func(*Store)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Store) {
		s.collector = c
	}
}

// NewStore builds a Store over the identity service. Call Start to begin
// the initial fetch and the push subscription.
func NewStore(svc identity.Service, options ...Option) *Store {
	s := &Store{
		svc:     svc,
		loading: true,
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start subscribes to the push stream and issues the one-shot initial
// fetch. Subscribing first guarantees no event emitted during the fetch is
// missed. Start is idempotent.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	events, unsubscribe := s.svc.Subscribe()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.consumeEvents(events)
	go s.initialFetch(ctx)
}

// consumeEvents applies pushed events in emission order. Last applied wins.
func (s *Store) consumeEvents(events <-chan identity.Event) {
	for ev := range events {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.current = ev.Session
		s.pushApplied = true
		s.collector.RecordSessionEvent()
		s.notifyLocked()
		s.mu.Unlock()

		log.Debug().
			Str("component", "session.Store").
			Str("event", string(ev.Kind)).
			Bool("authenticated", ev.Session != nil).
			Msg("session event applied")
	}
}

// initialFetch resolves the loading state. Its session result only lands
// when no pushed event has been applied yet: by the time the fetch returns,
// any applied push is strictly newer in event order.
func (s *Store) initialFetch(ctx context.Context) {
	session, err := s.svc.CurrentSession(ctx)
	if err != nil {
		// SessionError: treated as unauthenticated, never fatal to the host.
		log.Warn().
			Err(err).
			Str("component", "session.Store").
			Msg("initial session fetch failed; treating as unauthenticated")
		session = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// Teardown happened while the fetch was in flight; discard.
		return
	}
	if !s.pushApplied {
		s.current = session
	}
	if s.loading {
		s.loading = false
		s.notifyLocked()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Session: s.current, IsLoading: s.loading}
}

// Subscribe returns a stream of snapshots emitted on every state change,
// plus a release function. The current snapshot is not replayed; callers
// read Snapshot() first and then watch for changes.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 16)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
}

// Close releases the push subscription and stops all updates. In-flight
// fetch results arriving afterwards are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Store) notifyLocked() {
	snap := Snapshot{Session: s.current, IsLoading: s.loading}
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber; it will catch up via Snapshot().
		}
	}
}
