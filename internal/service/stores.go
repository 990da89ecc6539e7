package service

import (
	"context"
	"time"

	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	"rentmyparking/internal/repository"
)

// The services depend on these narrow views of the repositories.

type AccountStore interface {
	Create(ctx context.Context, a *db.Account) error
	GetByEmail(ctx context.Context, email string) (*db.Account, error)
	GetByID(ctx context.Context, id string) (*db.Account, error)
	ListAll(ctx context.Context) ([]db.Account, error)
	UpdateFields(ctx context.Context, id string, fields []repository.Field) error
	SetAvailable(ctx context.Context, id string, available bool) error
}

type RequestStore interface {
	CreateRequest(ctx context.Context, req *db.ReservationRequest) error
	GetRequest(ctx context.Context, id string) (*db.ReservationRequest, error)
	ListForOwner(ctx context.Context, ownerID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error)
	ListForRequester(ctx context.Context, requesterID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error)
	Resolve(ctx context.Context, id, ownerID string, status db.RequestStatus, note null.String) error
}

type JobStore interface {
	ListUnremindedPendingBefore(ctx context.Context, cutoff time.Time) ([]db.ReservationRequest, error)
	MarkReminded(ctx context.Context, ids []string) error
}

// Transactor runs fn in one database transaction carried by the context.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

type SessionIssuer interface {
	IssueSession(accountID string) (string, error)
}

type RejectionConfirmer interface {
	IssueRejection(ownerID, requestID string) (string, time.Time, error)
	VerifyRejection(token, ownerID, requestID string) error
}

var (
	_ AccountStore = (*repository.AccountRepository)(nil)
	_ RequestStore = (*repository.ReservationRepository)(nil)
	_ JobStore     = (*repository.JobRepository)(nil)
	_ Transactor   = (*repository.TxManager)(nil)
)
