package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts fetches and returns whatever value is stored per query.
type fakeSource struct {
	mu     sync.Mutex
	values map[Query]any
	errs   map[Query]error
	calls  map[Query]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{values: map[Query]any{}, errs: map[Query]error{}, calls: map[Query]int{}}
}

func (f *fakeSource) set(q Query, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[q] = v
}

func (f *fakeSource) fetch(_ context.Context, q Query) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[q]++
	if err := f.errs[q]; err != nil {
		return nil, err
	}
	return f.values[q], nil
}

func (f *fakeSource) callCount(q Query) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[q]
}

func receive(t *testing.T, h *Handle) Snapshot {
	t.Helper()
	select {
	case s, ok := <-h.Updates():
		require.True(t, ok, "updates channel closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot{}
	}
}

func assertNothing(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case s, ok := <-h.Updates():
		if ok {
			t.Fatalf("unexpected snapshot %+v", s)
		}
	default:
	}
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	src := newFakeSource()
	q := Query{Kind: KindPending, AccountID: "owner-1"}
	src.set(q, []string{"req-1"})
	m := NewManager(src.fetch)

	h, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	defer h.Close()

	s := receive(t, h)
	assert.Equal(t, KindPending, s.Kind)
	assert.Equal(t, []string{"req-1"}, s.Data)
	assert.Empty(t, s.Error)
	assert.Equal(t, 1, m.Len())
}

func TestSubscribeValidatesQuery(t *testing.T) {
	m := NewManager(newFakeSource().fetch)

	_, err := m.Subscribe(context.Background(), Query{Kind: "everything", AccountID: "a"})
	assert.Error(t, err)

	_, err = m.Subscribe(context.Background(), Query{Kind: KindPast})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestPublishRefreshesOnlyTouchedAccounts(t *testing.T) {
	src := newFakeSource()
	owner := Query{Kind: KindPending, AccountID: "owner-1"}
	other := Query{Kind: KindPending, AccountID: "owner-2"}
	m := NewManager(src.fetch)

	h1, err := m.Subscribe(context.Background(), owner)
	require.NoError(t, err)
	defer h1.Close()
	h2, err := m.Subscribe(context.Background(), other)
	require.NoError(t, err)
	defer h2.Close()
	receive(t, h1)
	receive(t, h2)

	src.set(owner, "changed")
	m.Publish(context.Background(), "owner-1")

	assert.Equal(t, "changed", receive(t, h1).Data)
	assertNothing(t, h2)
}

func TestPublishSharesFetchBetweenIdenticalQueries(t *testing.T) {
	src := newFakeSource()
	q := Query{Kind: KindPast, AccountID: "renter"}
	m := NewManager(src.fetch)

	a, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	defer a.Close()
	b, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	defer b.Close()
	receive(t, a)
	receive(t, b)
	before := src.callCount(q)

	m.Publish(context.Background(), "renter")

	receive(t, a)
	receive(t, b)
	assert.Equal(t, before+1, src.callCount(q))
}

func TestLatestSnapshotWins(t *testing.T) {
	src := newFakeSource()
	q := Query{Kind: KindAccount, AccountID: "acc"}
	m := NewManager(src.fetch)

	h, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	defer h.Close()

	for i := 1; i <= 3; i++ {
		src.set(q, i)
		m.Publish(context.Background(), "acc")
	}

	assert.Equal(t, 3, receive(t, h).Data)
	assertNothing(t, h)
}

func TestInitialSnapshotDoesNotOverwriteConcurrentRefresh(t *testing.T) {
	q := Query{Kind: KindPending, AccountID: "owner"}
	var mu sync.Mutex
	version, calls := 1, 0
	started := make(chan struct{})
	gate := make(chan struct{})

	m := NewManager(func(_ context.Context, _ Query) (any, error) {
		mu.Lock()
		v := version
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-gate
		}
		return v, nil
	})

	var wg sync.WaitGroup
	var h *Handle
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		h, err = m.Subscribe(context.Background(), q)
		assert.NoError(t, err)
	}()

	// The first fetch has read version 1 and is parked.
	<-started
	mu.Lock()
	version = 2
	mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Publish(context.Background(), "owner")
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()
	require.NotNil(t, h)
	defer h.Close()

	assert.Equal(t, 2, receive(t, h).Data)
	assertNothing(t, h)
}

func TestCloseStopsDeliveryAndIsIdempotent(t *testing.T) {
	src := newFakeSource()
	q := Query{Kind: KindPending, AccountID: "owner"}
	m := NewManager(src.fetch)

	h, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	receive(t, h)

	h.Close()
	h.Close()
	m.Publish(context.Background(), "owner")

	_, ok := <-h.Updates()
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestContextCancelReleasesHandle(t *testing.T) {
	m := NewManager(newFakeSource().fetch)
	ctx, cancel := context.WithCancel(context.Background())

	h, err := m.Subscribe(ctx, Query{Kind: KindPending, AccountID: "owner"})
	require.NoError(t, err)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("handle not released after cancel")
	}
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFetchErrorIsReportedInSnapshot(t *testing.T) {
	src := newFakeSource()
	q := Query{Kind: KindPending, AccountID: "owner"}
	src.errs[q] = errors.New("db down")
	m := NewManager(src.fetch)

	h, err := m.Subscribe(context.Background(), q)
	require.NoError(t, err)
	defer h.Close()

	s := receive(t, h)
	assert.Equal(t, "db down", s.Error)
	assert.Nil(t, s.Data)
}

func TestManagerCloseReleasesAll(t *testing.T) {
	var counts []int
	m := NewManager(newFakeSource().fetch)
	m.OnCountChange(func(n int) { counts = append(counts, n) })

	h, err := m.Subscribe(context.Background(), Query{Kind: KindPast, AccountID: "a"})
	require.NoError(t, err)
	m.Close()

	<-h.Done()
	_, err = m.Subscribe(context.Background(), Query{Kind: KindPast, AccountID: "a"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []int{1, 0}, counts)
}

func TestRefreshAll(t *testing.T) {
	src := newFakeSource()
	m := NewManager(src.fetch)

	a, err := m.Subscribe(context.Background(), Query{Kind: KindPending, AccountID: "a"})
	require.NoError(t, err)
	defer a.Close()
	b, err := m.Subscribe(context.Background(), Query{Kind: KindAccount, AccountID: "b"})
	require.NoError(t, err)
	defer b.Close()
	receive(t, a)
	receive(t, b)

	m.RefreshAll(context.Background())

	receive(t, a)
	receive(t, b)
}
