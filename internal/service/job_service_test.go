package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmyparking/internal/db"
)

type fakeJobs struct {
	stale    []db.ReservationRequest
	cutoff   time.Time
	reminded []string
	listErr  error
}

func (f *fakeJobs) ListUnremindedPendingBefore(_ context.Context, cutoff time.Time) ([]db.ReservationRequest, error) {
	f.cutoff = cutoff
	return f.stale, f.listErr
}

func (f *fakeJobs) MarkReminded(_ context.Context, ids []string) error {
	f.reminded = append(f.reminded, ids...)
	return nil
}

func TestRemindPendingRequests(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	owner := listing("owner", "Paris", db.SizeCar, "true", true)
	requester := db.Account{ID: "requester", FirstName: "Rene", Role: db.RoleRenter}

	orphan := pending("req-2")
	orphan.OwnerID = "gone"
	jobs := &fakeJobs{stale: []db.ReservationRequest{pending("req-1"), orphan}}
	notifier := &fakeNotifier{}

	svc := NewJobService(jobs, newFakeAccounts(owner, requester), notifier, 24*time.Hour)
	svc.now = func() time.Time { return now }

	n, err := svc.RemindPendingRequests(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, now.Add(-24*time.Hour), jobs.cutoff)
	assert.Equal(t, []string{"req-1"}, jobs.reminded)
	assert.Equal(t, []notification{{"reminder", "owner", "req-1", db.StatusPending}}, notifier.sent)
}

func TestRemindPendingRequestsNothingStale(t *testing.T) {
	jobs := &fakeJobs{}
	n, err := NewJobService(jobs, newFakeAccounts(), &fakeNotifier{}, time.Hour).RemindPendingRequests(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, jobs.reminded)
}

func TestRemindPendingRequestsListError(t *testing.T) {
	jobs := &fakeJobs{listErr: errors.New("db down")}
	_, err := NewJobService(jobs, newFakeAccounts(), &fakeNotifier{}, time.Hour).RemindPendingRequests(context.Background())
	assert.Error(t, err)
}
