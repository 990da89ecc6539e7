package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentmyparking/internal/metrics"
)

type JobService struct {
	Jobs     JobStore
	Accounts AccountStore
	Notifier Notifier
	After    time.Duration

	now func() time.Time
}

func NewJobService(jobs JobStore, accounts AccountStore, notifier Notifier, after time.Duration) *JobService {
	return &JobService{Jobs: jobs, Accounts: accounts, Notifier: notifier, After: after, now: time.Now}
}

// RemindPendingRequests emails the owner of every request pending for
// longer than After that was never reminded, and returns how many were sent.
func (s *JobService) RemindPendingRequests(ctx context.Context) (int, error) {
	slog.Info("Cron Job: checking for stale pending requests")

	cutoff := s.now().Add(-s.After)
	requests, err := s.Jobs.ListUnremindedPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to list stale pending requests: %w", err)
	}
	if len(requests) == 0 {
		slog.Info("Cron Job: no stale pending requests")
		return 0, nil
	}

	reminded := make([]string, 0, len(requests))
	for _, req := range requests {
		owner, err := s.Accounts.GetByID(ctx, req.OwnerID)
		if err != nil {
			slog.Warn("Cron Job: skipping reminder, owner not loadable", "request", req.ID, "error", err)
			continue
		}
		requester, err := s.Accounts.GetByID(ctx, req.RequesterID)
		if err != nil {
			slog.Warn("Cron Job: skipping reminder, requester not loadable", "request", req.ID, "error", err)
			continue
		}
		if s.Notifier != nil {
			s.Notifier.PendingReminder(*owner, *requester, req)
		}
		reminded = append(reminded, req.ID)
	}

	if err := s.Jobs.MarkReminded(ctx, reminded); err != nil {
		return 0, fmt.Errorf("cron job: failed to mark requests reminded: %w", err)
	}
	metrics.RemindersSent.Add(float64(len(reminded)))
	slog.Info("Cron Job: reminders sent", "count", len(reminded))
	return len(reminded), nil
}
