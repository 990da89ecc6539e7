// Package subscription keeps live views of reservation data. Each active
// query is owned by a Handle that the caller must release with Close (or by
// cancelling the context it was opened with).
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	// KindPending is the owner's view of requests still awaiting a decision.
	KindPending Kind = "pending"
	// KindPast is the requester's view of accepted and rejected requests.
	KindPast Kind = "past"
	// KindAccount is the account's own profile.
	KindAccount Kind = "account"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPending, KindPast, KindAccount:
		return true
	}
	return false
}

type Query struct {
	Kind      Kind
	AccountID string
}

type Snapshot struct {
	Kind  Kind      `json:"kind"`
	Data  any       `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
	At    time.Time `json:"at"`
}

// Fetcher loads the current state of a query.
type Fetcher func(ctx context.Context, q Query) (any, error)

// Publisher is told which accounts' views may have changed.
type Publisher interface {
	Publish(ctx context.Context, accountIDs ...string)
}

var ErrClosed = errors.New("subscription manager closed")

type Manager struct {
	fetch Fetcher

	mu      sync.Mutex
	handles map[uint64]*Handle
	nextID  uint64
	closed  bool

	// refreshMu serializes refresh passes so snapshots reach a handle in
	// the order they were fetched.
	refreshMu sync.Mutex

	onCount func(n int)
}

func NewManager(fetch Fetcher) *Manager {
	return &Manager{
		fetch:   fetch,
		handles: make(map[uint64]*Handle),
	}
}

// OnCountChange registers a callback receiving the number of live handles.
func (m *Manager) OnCountChange(fn func(n int)) {
	m.mu.Lock()
	m.onCount = fn
	m.mu.Unlock()
}

// Subscribe opens a handle and delivers its first snapshot before returning.
func (m *Manager) Subscribe(ctx context.Context, q Query) (*Handle, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("unknown subscription kind %q", q.Kind)
	}
	if q.AccountID == "" {
		return nil, errors.New("subscription requires an account id")
	}

	h := &Handle{
		query:   q,
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		manager: m,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.nextID++
	h.id = m.nextID
	m.handles[h.id] = h
	n, cb := len(m.handles), m.onCount
	m.mu.Unlock()
	if cb != nil {
		cb(n)
	}

	// Under refreshMu so a concurrent refresh cannot be overtaken by this
	// older first snapshot.
	m.refreshMu.Lock()
	h.deliver(m.snapshot(ctx, q))
	m.refreshMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			h.Close()
		case <-h.done:
		}
	}()

	return h, nil
}

// Publish refreshes every handle whose account is among accountIDs.
func (m *Manager) Publish(ctx context.Context, accountIDs ...string) {
	if len(accountIDs) == 0 {
		return
	}
	touched := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		touched[id] = true
	}
	m.refresh(ctx, func(q Query) bool { return touched[q.AccountID] })
}

// RefreshAll refreshes every live handle, e.g. after a lost change feed.
func (m *Manager) RefreshAll(ctx context.Context) {
	m.refresh(ctx, func(Query) bool { return true })
}

func (m *Manager) refresh(ctx context.Context, match func(Query) bool) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	groups := make(map[Query][]*Handle)
	m.mu.Lock()
	for _, h := range m.handles {
		if match(h.query) {
			groups[h.query] = append(groups[h.query], h)
		}
	}
	m.mu.Unlock()

	for q, hs := range groups {
		snap := m.snapshot(ctx, q)
		for _, h := range hs {
			h.deliver(snap)
		}
	}
}

func (m *Manager) snapshot(ctx context.Context, q Query) Snapshot {
	snap := Snapshot{Kind: q.Kind, At: time.Now().UTC()}
	data, err := m.fetch(ctx, q)
	if err != nil {
		slog.Error("subscription refresh failed", "kind", q.Kind, "account_id", q.AccountID, "error", err)
		snap.Error = err.Error()
		return snap
	}
	snap.Data = data
	return snap
}

// Len returns the number of live handles.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// Close releases every handle and refuses new subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	delete(m.handles, h.id)
	n, cb := len(m.handles), m.onCount
	m.mu.Unlock()
	if cb != nil {
		cb(n)
	}
}

type Handle struct {
	id      uint64
	query   Query
	manager *Manager

	mu      sync.Mutex
	closed  bool
	updates chan Snapshot
	done    chan struct{}
}

func (h *Handle) Query() Query { return h.query }

// Updates yields snapshots until the handle is closed. Only the newest
// undelivered snapshot is kept.
func (h *Handle) Updates() <-chan Snapshot { return h.updates }

// Done is closed once the handle is released.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Close releases the handle. Safe to call more than once.
func (h *Handle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.done)
	close(h.updates)
	h.mu.Unlock()

	h.manager.release(h)
}

func (h *Handle) deliver(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.updates <- s:
		return
	default:
	}
	// Drop the stale snapshot in favour of s.
	select {
	case <-h.updates:
	default:
	}
	h.updates <- s
}
