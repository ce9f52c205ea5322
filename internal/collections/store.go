package collections

import (
	"errors"
	"sync"

	"estate-backend/internal/metrics"

	"github.com/rs/zerolog/log"
)

// ErrNotSubscribed is returned when mutating a collection nobody is subscribed to.
var ErrNotSubscribed = errors.New("collection has no active subscription")

// Source opens a realtime listener on a collection. onSnapshot receives the full result set
// every time it changes; onError reports a terminal listener failure. Callbacks for one
// listener are never invoked concurrently.
type Source interface {
	Open(collection string, onSnapshot func([]Document), onError func(error)) (stop func(), err error)
}

// Snapshot is the cached state of a collection at one version.
type Snapshot struct {
	Collection string
	Docs       []Document
	Loading    bool
	Err        error
	Version    uint64
}

// Find returns the document with id.
func (s Snapshot) Find(id string) (Document, bool) {
	for _, d := range s.Docs {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

// Updater transforms a cached array. It receives copies and may modify them in place.
type Updater func([]Document) []Document

// Store keeps one listener per collection name and fans its snapshots out to every subscriber.
// Snapshots handed out are shared and must be treated as read-only.
type Store struct {
	source Source

	mu      sync.Mutex
	entries map[string]*entry
	nextID  uint64
}

type entry struct {
	name    string
	docs    []Document
	loading bool
	err     error
	version uint64
	// delivered counts listener snapshots; local mutations leave it alone.
	delivered uint64
	subs    map[uint64]*Subscription
	stop    func()
	closed  bool
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{Collection: e.name, Docs: e.docs, Loading: e.loading, Err: e.err, Version: e.version}
}

// NewStore creates an empty cache over source.
func NewStore(source Source) *Store {
	return &Store{source: source, entries: make(map[string]*entry)}
}

// Subscribe registers interest in a collection and returns the cached snapshot right away.
// The first subscriber for a name opens the listener; later ones share it.
func (s *Store) Subscribe(name string) (*Subscription, Snapshot) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		e = &entry{name: name, loading: true, subs: make(map[uint64]*Subscription)}
		s.entries[name] = e
	}
	s.nextID++
	sub := &Subscription{id: s.nextID, store: s, entry: e, events: make(chan Snapshot, 1)}
	e.subs[sub.id] = sub
	snap := e.snapshot()
	s.mu.Unlock()

	if !ok {
		s.open(e)
	}
	return sub, snap
}

func (s *Store) open(e *entry) {
	stop, err := s.source.Open(e.name,
		func(docs []Document) { s.deliver(e, docs) },
		func(err error) { s.fail(e, err) },
	)

	s.mu.Lock()
	if err != nil {
		s.mu.Unlock()
		s.fail(e, err)
		return
	}
	if e.closed {
		s.mu.Unlock()
		stop()
		return
	}
	e.stop = stop
	s.mu.Unlock()

	metrics.ActiveListeners.Inc()
	metrics.ListenerOpens.WithLabelValues(e.name).Inc()
	log.Debug().Str("collection", e.name).Msg("collection listener opened")
}

func (s *Store) deliver(e *entry, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.closed {
		return
	}
	e.docs = docs
	e.loading = false
	e.err = nil
	e.version++
	e.delivered++
	s.fanout(e)
}

func (s *Store) fail(e *entry, err error) {
	metrics.ListenerErrors.WithLabelValues(e.name).Inc()
	log.Error().Err(err).Str("collection", e.name).Msg("collection listener failed")

	s.mu.Lock()
	defer s.mu.Unlock()
	if e.closed {
		return
	}
	e.loading = false
	e.err = err
	e.version++
	s.fanout(e)
}

// fanout must be called with s.mu held.
func (s *Store) fanout(e *entry) {
	snap := e.snapshot()
	for _, sub := range e.subs {
		sub.push(snap)
	}
	metrics.SnapshotFanout.WithLabelValues(e.name).Add(float64(len(e.subs)))
}

// Mutate applies fn to the cached array and notifies every subscriber. Nothing is written remotely.
func (s *Store) Mutate(name string, fn Updater) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return ErrNotSubscribed
	}
	e.docs = fn(cloneDocs(e.docs))
	e.version++
	s.fanout(e)
	return nil
}

// Cached returns the current snapshot of name without subscribing.
func (s *Store) Cached(name string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return Snapshot{Collection: name}, false
	}
	return e.snapshot(), true
}

// Close stops every listener and ends every subscription.
func (s *Store) Close() {
	s.mu.Lock()
	var stops []func()
	for name, e := range s.entries {
		e.closed = true
		for id, sub := range e.subs {
			sub.closed = true
			close(sub.events)
			delete(e.subs, id)
		}
		if e.stop != nil {
			stops = append(stops, e.stop)
		}
		delete(s.entries, name)
	}
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
		metrics.ActiveListeners.Dec()
	}
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

// Subscription is one consumer of a collection. Close it when done.
type Subscription struct {
	id     uint64
	store  *Store
	entry  *entry
	events chan Snapshot
	closed bool
}

// Events streams snapshots. Only the latest undelivered snapshot is kept, so a slow reader
// skips intermediate versions but never blocks the listener. Closed by Close.
func (sub *Subscription) Events() <-chan Snapshot {
	return sub.events
}

// Collection returns the subscribed collection name.
func (sub *Subscription) Collection() string {
	return sub.entry.name
}

// Current returns the latest cached snapshot.
func (sub *Subscription) Current() Snapshot {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()
	return sub.entry.snapshot()
}

// push must be called with the store lock held; it is the only sender on events.
func (sub *Subscription) push(snap Snapshot) {
	if sub.closed {
		return
	}
	select {
	case sub.events <- snap:
	default:
		select {
		case <-sub.events:
		default:
		}
		sub.events <- snap
	}
}

// Close unregisters the subscription. The last one for a name stops the listener and drops the cache.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	if sub.closed {
		s.mu.Unlock()
		return
	}
	sub.closed = true
	close(sub.events)
	e := sub.entry
	delete(e.subs, sub.id)

	var stop func()
	if len(e.subs) == 0 {
		e.closed = true
		if s.entries[e.name] == e {
			delete(s.entries, e.name)
		}
		stop = e.stop
		e.stop = nil
	}
	s.mu.Unlock()

	if stop != nil {
		stop()
		metrics.ActiveListeners.Dec()
		log.Debug().Str("collection", e.name).Msg("collection listener closed")
	}
}
