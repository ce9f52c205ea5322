package collections

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeListener struct {
	onSnapshot func([]Document)
	onError    func(error)
	stopped    atomic.Bool
}

type fakeSource struct {
	mu        sync.Mutex
	opens     map[string]int
	stops     map[string]int
	listeners map[string]*fakeListener
	initial   map[string][]Document
	openErr   error
	openDelay time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		opens:     map[string]int{},
		stops:     map[string]int{},
		listeners: map[string]*fakeListener{},
		initial:   map[string][]Document{},
	}
}

func (f *fakeSource) Open(collection string, onSnapshot func([]Document), onError func(error)) (func(), error) {
	if f.openDelay > 0 {
		time.Sleep(f.openDelay)
	}
	f.mu.Lock()
	if f.openErr != nil {
		f.mu.Unlock()
		return nil, f.openErr
	}
	f.opens[collection]++
	l := &fakeListener{onSnapshot: onSnapshot, onError: onError}
	f.listeners[collection] = l
	initial, hasInitial := f.initial[collection]
	f.mu.Unlock()

	if hasInitial {
		onSnapshot(initial)
	}
	return func() {
		l.stopped.Store(true)
		f.mu.Lock()
		f.stops[collection]++
		f.mu.Unlock()
	}, nil
}

func (f *fakeSource) emit(collection string, docs []Document) {
	f.mu.Lock()
	l := f.listeners[collection]
	f.mu.Unlock()
	l.onSnapshot(docs)
}

func (f *fakeSource) counts(collection string) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[collection], f.stops[collection]
}

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot{}
	}
}

func TestSubscribe_ReturnsLoadingUntilFirstSnapshot(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)

	sub, snap := store.Subscribe("listings")
	defer sub.Close()
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Docs)

	src.emit("listings", []Document{{"id": "a", "title": "Loft"}})
	got := next(t, sub)
	assert.False(t, got.Loading)
	require.Len(t, got.Docs, 1)
	assert.Equal(t, "a", got.Docs[0].ID())
}

func TestSubscribe_ConcurrentFirstSubscribersShareOneListener(t *testing.T) {
	src := newFakeSource()
	src.openDelay = 20 * time.Millisecond
	store := NewStore(src)

	var wg sync.WaitGroup
	subs := make([]*Subscription, 2)
	for i := range subs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			subs[i], _ = store.Subscribe("appointments")
		}(i)
	}
	wg.Wait()
	opens, _ := src.counts("appointments")
	assert.Equal(t, 1, opens)

	for _, s := range subs {
		s.Close()
	}
}

func TestSubscribe_CacheHitReturnsCachedDocs(t *testing.T) {
	src := newFakeSource()
	src.initial["userMessages"] = []Document{{"id": "m1"}}
	store := NewStore(src)

	first, snap := store.Subscribe("userMessages")
	defer first.Close()
	assert.True(t, snap.Loading)
	assert.Len(t, next(t, first).Docs, 1)

	second, snap := store.Subscribe("userMessages")
	defer second.Close()
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Docs, 1)

	opens, _ := src.counts("userMessages")
	assert.Equal(t, 1, opens)
}

func TestSnapshot_FansOutToEverySubscriber(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)
	a, _ := store.Subscribe("listings")
	b, _ := store.Subscribe("listings")
	defer a.Close()
	defer b.Close()

	src.emit("listings", []Document{{"id": "x"}, {"id": "y"}})
	assert.Len(t, next(t, a).Docs, 2)
	assert.Len(t, next(t, b).Docs, 2)
}

func TestClose_LastSubscriberStopsListenerAndPurges(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)
	a, _ := store.Subscribe("listings")
	b, _ := store.Subscribe("listings")
	src.emit("listings", []Document{{"id": "x"}})
	next(t, b)

	a.Close()
	_, stops := src.counts("listings")
	assert.Equal(t, 0, stops)
	_, cached := store.Cached("listings")
	assert.True(t, cached)

	b.Close()
	_, stops = src.counts("listings")
	assert.Equal(t, 1, stops)
	_, cached = store.Cached("listings")
	assert.False(t, cached)

	_, ok := <-b.Events()
	assert.False(t, ok)

	c, snap := store.Subscribe("listings")
	defer c.Close()
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Docs)
	opens, _ := src.counts("listings")
	assert.Equal(t, 2, opens)
}

func TestClose_IsIdempotent(t *testing.T) {
	store := NewStore(newFakeSource())
	sub, _ := store.Subscribe("admins")
	sub.Close()
	assert.NotPanics(t, sub.Close)
}

func TestMutate_VisibleToAllSubscribersImmediately(t *testing.T) {
	src := newFakeSource()
	src.initial["appointments"] = []Document{{"id": "ap1", "status": "pending"}}
	store := NewStore(src)
	a, _ := store.Subscribe("appointments")
	b, _ := store.Subscribe("appointments")
	defer a.Close()
	defer b.Close()
	next(t, a)
	next(t, b)

	require.NoError(t, store.Mutate("appointments", SetFields("ap1", map[string]interface{}{"status": "done"})))

	for _, s := range []*Subscription{a, b} {
		snap := next(t, s)
		d, ok := snap.Find("ap1")
		require.True(t, ok)
		assert.Equal(t, "done", d["status"])
	}
}

func TestMutate_DoesNotAlterPreviousSnapshot(t *testing.T) {
	src := newFakeSource()
	src.initial["listings"] = []Document{{"id": "l1", "status": "available"}}
	store := NewStore(src)
	sub, _ := store.Subscribe("listings")
	defer sub.Close()
	before := next(t, sub)

	require.NoError(t, store.Mutate("listings", SetFields("l1", map[string]interface{}{"status": "sold"})))
	assert.Equal(t, "available", before.Docs[0]["status"])
}

func TestMutate_WithoutSubscription(t *testing.T) {
	store := NewStore(newFakeSource())
	err := store.Mutate("listings", Remove("x"))
	assert.ErrorIs(t, err, ErrNotSubscribed)
}

func TestListenerError_ReachesSubscribersWithoutRetry(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)
	a, _ := store.Subscribe("admins")
	b, _ := store.Subscribe("admins")
	defer a.Close()
	defer b.Close()

	boom := errors.New("permission denied")
	src.mu.Lock()
	l := src.listeners["admins"]
	src.mu.Unlock()
	l.onError(boom)

	assert.ErrorIs(t, next(t, a).Err, boom)
	assert.ErrorIs(t, next(t, b).Err, boom)
	opens, _ := src.counts("admins")
	assert.Equal(t, 1, opens)
}

func TestOpenError_SurfacesOnSnapshot(t *testing.T) {
	src := newFakeSource()
	src.openErr = errors.New("unavailable")
	store := NewStore(src)
	sub, _ := store.Subscribe("listings")
	defer sub.Close()
	snap := next(t, sub)
	assert.Error(t, snap.Err)
	assert.False(t, snap.Loading)
}

func TestEvents_SlowReaderGetsLatest(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)
	sub, _ := store.Subscribe("listings")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		src.emit("listings", make([]Document, i+1))
	}
	snap := next(t, sub)
	assert.Len(t, snap.Docs, 5)
	select {
	case <-sub.Events():
		t.Fatal("expected a single coalesced snapshot")
	default:
	}
}

func TestStoreClose_StopsEverything(t *testing.T) {
	src := newFakeSource()
	store := NewStore(src)
	a, _ := store.Subscribe("listings")
	b, _ := store.Subscribe("admins")
	store.Close()

	_, ls := src.counts("listings")
	_, as := src.counts("admins")
	assert.Equal(t, 1, ls)
	assert.Equal(t, 1, as)
	_, ok := <-a.Events()
	assert.False(t, ok)
	assert.NotPanics(t, b.Close)
}
