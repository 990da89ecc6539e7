package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/repository"
)

func init() {
	hashCost = bcrypt.MinCost
}

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*db.Account
	order    []string
	updates  [][]repository.Field
	setAvail []string
	failGet  map[string]bool
	failSet  error
	createFn func(*db.Account) error
}

func newFakeAccounts(accounts ...db.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*db.Account{}, failGet: map[string]bool{}}
	for i := range accounts {
		a := accounts[i]
		f.byID[a.ID] = &a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, a *db.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		if err := f.createFn(a); err != nil {
			return err
		}
	}
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return fmt.Errorf("account %s: %w", a.Email, apperrors.ErrEmailTaken)
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	f.order = append(f.order, a.ID)
	return nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*db.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		if a := f.byID[id]; a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("account with email '%s': %w", email, apperrors.ErrNotFound)
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*db.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || f.failGet[id] {
		return nil, fmt.Errorf("account '%s': %w", id, apperrors.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) ListAll(context.Context) ([]db.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Account, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.byID[id])
	}
	return out, nil
}

func (f *fakeAccounts) UpdateFields(_ context.Context, id string, fields []repository.Field) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return fmt.Errorf("account '%s': %w", id, apperrors.ErrNotFound)
	}
	f.updates = append(f.updates, fields)
	return nil
}

func (f *fakeAccounts) SetAvailable(_ context.Context, id string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("account '%s': %w", id, apperrors.ErrNotFound)
	}
	a.Available = available
	f.setAvail = append(f.setAvail, id)
	return nil
}

func (f *fakeAccounts) get(id string) db.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

type fakeRequests struct {
	mu      sync.Mutex
	byID    map[string]*db.ReservationRequest
	created []db.ReservationRequest
	reads   int
	writes  int
}

func newFakeRequests(requests ...db.ReservationRequest) *fakeRequests {
	f := &fakeRequests{byID: map[string]*db.ReservationRequest{}}
	for i := range requests {
		r := requests[i]
		f.byID[r.ID] = &r
	}
	return f
}

func (f *fakeRequests) CreateRequest(_ context.Context, req *db.ReservationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	f.byID[req.ID] = &cp
	f.created = append(f.created, cp)
	f.writes++
	return nil
}

func (f *fakeRequests) GetRequest(_ context.Context, id string) (*db.ReservationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	r, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("reservation request '%s': %w", id, apperrors.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) list(match func(*db.ReservationRequest) bool, statuses []db.RequestStatus) []db.ReservationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.ReservationRequest
	for _, r := range f.byID {
		if !match(r) {
			continue
		}
		for _, s := range statuses {
			if r.Status == s {
				out = append(out, *r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRequests) ListForOwner(_ context.Context, ownerID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error) {
	return f.list(func(r *db.ReservationRequest) bool { return r.OwnerID == ownerID }, statuses), nil
}

func (f *fakeRequests) ListForRequester(_ context.Context, requesterID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error) {
	return f.list(func(r *db.ReservationRequest) bool { return r.RequesterID == requesterID }, statuses), nil
}

func (f *fakeRequests) Resolve(_ context.Context, id, ownerID string, status db.RequestStatus, note null.String) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.OwnerID != ownerID || r.Status != db.StatusPending {
		return fmt.Errorf("request '%s': %w", id, apperrors.ErrInvalidTransition)
	}
	r.Status = status
	if note.Valid {
		r.Note = note
	}
	f.writes++
	return nil
}

func (f *fakeRequests) get(id string) db.ReservationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.byID[id]
}

// fakeTx snapshots both stores and restores them when fn fails.
type fakeTx struct {
	accounts *fakeAccounts
	requests *fakeRequests
	calls    int
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	accounts := map[string]db.Account{}
	for id, a := range t.accounts.byID {
		accounts[id] = *a
	}
	requests := map[string]db.ReservationRequest{}
	for id, r := range t.requests.byID {
		requests[id] = *r
	}

	if err := fn(ctx); err != nil {
		for id, a := range accounts {
			a := a
			t.accounts.byID[id] = &a
		}
		for id, r := range requests {
			r := r
			t.requests.byID[id] = &r
		}
		return err
	}
	return nil
}

type fakeGeocoder struct {
	mu     sync.Mutex
	coords map[string]entities.Coordinate
	calls  []string
}

func (g *fakeGeocoder) Geocode(_ context.Context, address string) (entities.Coordinate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)
	c, ok := g.coords[address]
	if !ok {
		return entities.Coordinate{}, fmt.Errorf("geocode %q: no results: %w", address, apperrors.ErrGeocodeFailed)
	}
	return c, nil
}

type notification struct {
	kind      string
	recipient string
	request   string
	status    db.RequestStatus
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) record(kind, recipient string, req db.ReservationRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind, recipient, req.ID, req.Status})
}

func (n *fakeNotifier) RequestCreated(owner, _ db.Account, req db.ReservationRequest) {
	n.record("created", owner.ID, req)
}

func (n *fakeNotifier) RequestResolved(requester, _ db.Account, req db.ReservationRequest) {
	n.record("resolved", requester.ID, req)
}

func (n *fakeNotifier) PendingReminder(owner, _ db.Account, req db.ReservationRequest) {
	n.record("reminder", owner.ID, req)
}

type fakePublisher struct {
	mu        sync.Mutex
	published [][]string
	ctxErrs   []error
}

func (p *fakePublisher) Publish(ctx context.Context, accountIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, accountIDs)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
}

type fakeSessions struct{}

func (fakeSessions) IssueSession(accountID string) (string, error) {
	return "session-" + accountID, nil
}

func hashed(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func listing(id, city string, size db.VehicleSize, charge string, available bool) db.Account {
	return db.Account{
		ID:             id,
		FirstName:      "Owner",
		LastName:       id,
		Email:          id + "@example.com",
		Role:           db.RoleOwner,
		ParkAddress:    "Rue " + id,
		StreetNumber:   "1",
		City:           city,
		Size:           size,
		OpenMechanism:  db.OpenRemote,
		ElectricCharge: charge,
		Available:      available,
	}
}
