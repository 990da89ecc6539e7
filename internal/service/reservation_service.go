package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/metrics"
	"rentmyparking/internal/subscription"
)

const (
	rejectionPrompt = "Are you sure you want to reject this reservation?"
	unknownName     = "Unknown"
)

type ReservationService struct {
	Accounts     AccountStore
	Requests     RequestStore
	Tx           Transactor
	Confirmation RejectionConfirmer
	Notifier     Notifier
	Changes      subscription.Publisher
}

func NewReservationService(accounts AccountStore, requests RequestStore, tx Transactor,
	confirmation RejectionConfirmer, notifier Notifier, changes subscription.Publisher) *ReservationService {
	return &ReservationService{
		Accounts:     accounts,
		Requests:     requests,
		Tx:           tx,
		Confirmation: confirmation,
		Notifier:     notifier,
		Changes:      changes,
	}
}

// Create opens a pending request from requesterID for the selected listing.
func (s *ReservationService) Create(ctx context.Context, requesterID, listingID string) (*entities.ReservationResponse, error) {
	if listingID == "" {
		return nil, fmt.Errorf("listing_id is required: %w", apperrors.ErrInvalidInput)
	}

	listing, err := s.Accounts.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Role.OffersListing() {
		return nil, fmt.Errorf("account '%s' has no listing: %w", listingID, apperrors.ErrNotFound)
	}
	if listing.ID == requesterID {
		return nil, fmt.Errorf("cannot reserve your own parking spot: %w", apperrors.ErrInvalidInput)
	}
	if !listing.Available {
		return nil, fmt.Errorf("listing '%s': %w", listingID, apperrors.ErrListingUnavailable)
	}

	req := &db.ReservationRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		OwnerID:     listing.ID,
		Status:      db.StatusPending,
	}
	if err := s.Requests.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrWriteFailed)
	}
	metrics.RequestTransitions.WithLabelValues(string(db.StatusPending)).Inc()
	slog.Info("reservation request created", "request", req.ID, "requester", requesterID, "owner", listing.ID)

	if requester, err := s.Accounts.GetByID(ctx, requesterID); err != nil {
		slog.Warn("could not load requester for notification", "request", req.ID, "error", err)
	} else if s.Notifier != nil {
		s.Notifier.RequestCreated(*listing, *requester, *req)
	}
	s.publish(ctx, req.OwnerID, req.RequesterID)

	return &entities.ReservationResponse{
		Reservation: toView(*req, listing.FirstName, listing.LastName),
		Message:     "Reservation request sent.",
	}, nil
}

// ownedPending loads a request the caller may still decide on.
func (s *ReservationService) ownedPending(ctx context.Context, ownerID, requestID string) (*db.ReservationRequest, error) {
	req, err := s.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != ownerID {
		return nil, fmt.Errorf("request '%s' belongs to another owner: %w", requestID, apperrors.ErrPermissionDenied)
	}
	if req.Status != db.StatusPending {
		return nil, fmt.Errorf("request '%s' is already %s: %w", requestID, req.Status, apperrors.ErrInvalidTransition)
	}
	return req, nil
}

// Accept marks the request accepted and the owner's listing unavailable in
// one transaction. An empty note is refused before anything is read.
func (s *ReservationService) Accept(ctx context.Context, ownerID, requestID, note string) (*entities.ReservationResponse, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, fmt.Errorf("accepting request '%s': %w", requestID, apperrors.ErrNoteRequired)
	}

	req, err := s.ownedPending(ctx, ownerID, requestID)
	if err != nil {
		return nil, err
	}

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Requests.Resolve(ctx, req.ID, ownerID, db.StatusAccepted, null.StringFrom(note)); err != nil {
			return err
		}
		return s.Accounts.SetAvailable(ctx, ownerID, false)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("accept request '%s': %v: %w", requestID, err, apperrors.ErrWriteFailed)
	}

	req.Status = db.StatusAccepted
	req.Note = null.StringFrom(note)
	metrics.RequestTransitions.WithLabelValues(string(db.StatusAccepted)).Inc()
	slog.Info("reservation request accepted", "request", req.ID, "owner", ownerID)

	requester := s.notifyResolved(ctx, *req)
	s.publish(ctx, req.OwnerID, req.RequesterID)

	return &entities.ReservationResponse{
		Reservation: toView(*req, requester.FirstName, requester.LastName),
		Message:     "Reservation accepted.",
	}, nil
}

// PrepareRejection is the first step of a rejection: it checks the request
// can be rejected and hands back a confirmation token.
func (s *ReservationService) PrepareRejection(ctx context.Context, ownerID, requestID string) (*entities.RejectionPrompt, error) {
	if _, err := s.ownedPending(ctx, ownerID, requestID); err != nil {
		return nil, err
	}
	token, expires, err := s.Confirmation.IssueRejection(ownerID, requestID)
	if err != nil {
		return nil, fmt.Errorf("issue rejection token: %w", err)
	}
	return &entities.RejectionPrompt{
		RequestID:         requestID,
		Message:           rejectionPrompt,
		ConfirmationToken: token,
		ExpiresAt:         expires,
	}, nil
}

// ConfirmRejection writes the rejection. Listing availability is not
// touched.
func (s *ReservationService) ConfirmRejection(ctx context.Context, ownerID, requestID, token string) (*entities.ReservationResponse, error) {
	if token == "" {
		return nil, fmt.Errorf("rejecting request '%s': %w", requestID, apperrors.ErrConfirmationRequired)
	}
	if err := s.Confirmation.VerifyRejection(token, ownerID, requestID); err != nil {
		return nil, fmt.Errorf("rejecting request '%s': %v: %w", requestID, err, apperrors.ErrConfirmationRequired)
	}

	req, err := s.ownedPending(ctx, ownerID, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.Requests.Resolve(ctx, req.ID, ownerID, db.StatusRejected, null.String{}); err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("reject request '%s': %v: %w", requestID, err, apperrors.ErrWriteFailed)
	}

	req.Status = db.StatusRejected
	metrics.RequestTransitions.WithLabelValues(string(db.StatusRejected)).Inc()
	slog.Info("reservation request rejected", "request", req.ID, "owner", ownerID)

	requester := s.notifyResolved(ctx, *req)
	s.publish(ctx, req.OwnerID, req.RequesterID)

	return &entities.ReservationResponse{
		Reservation: toView(*req, requester.FirstName, requester.LastName),
		Message:     "Reservation rejected.",
	}, nil
}

// PendingForOwner lists requests still awaiting the owner's decision, each
// with the requester's name.
func (s *ReservationService) PendingForOwner(ctx context.Context, ownerID string) ([]entities.ReservationView, error) {
	requests, err := s.Requests.ListForOwner(ctx, ownerID, db.StatusPending)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, requests, func(r db.ReservationRequest) string { return r.RequesterID }), nil
}

// PastForRequester lists the requester's resolved requests, each with the
// owner's name.
func (s *ReservationService) PastForRequester(ctx context.Context, requesterID string) ([]entities.ReservationView, error) {
	requests, err := s.Requests.ListForRequester(ctx, requesterID, db.StatusAccepted, db.StatusRejected)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, requests, func(r db.ReservationRequest) string { return r.OwnerID }), nil
}

type personName struct{ first, last string }

// enrich attaches the counterparty's name. A failed lookup shows "Unknown"
// instead of failing the whole view.
func (s *ReservationService) enrich(ctx context.Context, requests []db.ReservationRequest, counterparty func(db.ReservationRequest) string) []entities.ReservationView {
	names := make(map[string]personName)
	views := make([]entities.ReservationView, 0, len(requests))
	for _, r := range requests {
		id := counterparty(r)
		name, ok := names[id]
		if !ok {
			name = personName{unknownName, unknownName}
			if a, err := s.Accounts.GetByID(ctx, id); err != nil {
				slog.Warn("could not load counterparty name", "request", r.ID, "account", id, "error", err)
			} else {
				name = personName{a.FirstName, a.LastName}
			}
			names[id] = name
		}
		views = append(views, toView(r, name.first, name.last))
	}
	return views
}

// notifyResolved tells the requester about the decision and returns the
// requester's account (zero value with "Unknown" names when it cannot be
// loaded).
func (s *ReservationService) notifyResolved(ctx context.Context, req db.ReservationRequest) db.Account {
	requester, err := s.Accounts.GetByID(ctx, req.RequesterID)
	if err != nil {
		slog.Warn("could not load requester for notification", "request", req.ID, "error", err)
		return db.Account{ID: req.RequesterID, FirstName: unknownName, LastName: unknownName}
	}
	owner, err := s.Accounts.GetByID(ctx, req.OwnerID)
	if err != nil {
		slog.Warn("could not load owner for notification", "request", req.ID, "error", err)
		return *requester
	}
	if s.Notifier != nil {
		s.Notifier.RequestResolved(*requester, *owner, req)
	}
	return *requester
}

func (s *ReservationService) publish(ctx context.Context, accountIDs ...string) {
	if s.Changes != nil {
		// The write is done; a client hanging up must not spoil the refresh.
		s.Changes.Publish(context.WithoutCancel(ctx), accountIDs...)
	}
}

func toView(r db.ReservationRequest, firstName, lastName string) entities.ReservationView {
	return entities.ReservationView{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		OwnerID:     r.OwnerID,
		Status:      string(r.Status),
		Note:        r.Note.String,
		FirstName:   firstName,
		LastName:    lastName,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
