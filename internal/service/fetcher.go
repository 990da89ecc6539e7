package service

import (
	"context"
	"fmt"

	"rentmyparking/internal/subscription"
)

// NewViewFetcher loads the data behind each subscription kind.
func NewViewFetcher(reservations *ReservationService, profiles *ProfileService) subscription.Fetcher {
	return func(ctx context.Context, q subscription.Query) (any, error) {
		switch q.Kind {
		case subscription.KindPending:
			return reservations.PendingForOwner(ctx, q.AccountID)
		case subscription.KindPast:
			return reservations.PastForRequester(ctx, q.AccountID)
		case subscription.KindAccount:
			return profiles.Load(ctx, q.AccountID)
		}
		return nil, fmt.Errorf("unknown subscription kind %q", q.Kind)
	}
}
