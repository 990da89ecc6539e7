package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	apperrors "rentmyparking/internal/errors"
)

const requestColumns = `id, requester_id, owner_id, status, note, reminded_at, created_at, updated_at`

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: db}
}

func scanRequest(row rowScanner) (*db.ReservationRequest, error) {
	var req db.ReservationRequest
	err := row.Scan(&req.ID, &req.RequesterID, &req.OwnerID, &req.Status, &req.Note, &req.RemindedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *ReservationRepository) CreateRequest(ctx context.Context, req *db.ReservationRequest) error {
	query := `
		INSERT INTO reservation_requests (id, requester_id, owner_id, status, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err := executor(ctx, r.DB).QueryRowContext(ctx, query,
		req.ID, req.RequesterID, req.OwnerID, req.Status, req.Note,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating reservation request: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetRequest(ctx context.Context, id string) (*db.ReservationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reservation_requests WHERE id = $1`
	req, err := scanRequest(executor(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reservation request '%s': %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("error querying reservation request: %w", err)
	}
	return req, nil
}

// ListForOwner returns requests targeting ownerID in any of statuses.
func (r *ReservationRepository) ListForOwner(ctx context.Context, ownerID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reservation_requests
		WHERE owner_id = $1 AND status = ANY($2) ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID, pq.Array(statusStrings(statuses)))
}

// ListForRequester returns requests made by requesterID in any of statuses.
func (r *ReservationRepository) ListForRequester(ctx context.Context, requesterID string, statuses ...db.RequestStatus) ([]db.ReservationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reservation_requests
		WHERE requester_id = $1 AND status = ANY($2) ORDER BY updated_at DESC`
	return r.list(ctx, query, requesterID, pq.Array(statusStrings(statuses)))
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...interface{}) ([]db.ReservationRequest, error) {
	rows, err := executor(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying reservation requests: %w", err)
	}
	defer rows.Close()

	var requests []db.ReservationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating reservation requests: %w", err)
	}
	return requests, nil
}

// Resolve moves a pending request owned by ownerID to status. A request
// that is no longer pending is left alone and ErrInvalidTransition returned.
func (r *ReservationRepository) Resolve(ctx context.Context, id, ownerID string, status db.RequestStatus, note null.String) error {
	var query string
	var args []interface{}
	if note.Valid {
		query = `UPDATE reservation_requests SET status = $1, note = $2, updated_at = NOW()
			WHERE id = $3 AND owner_id = $4 AND status = 'pending'`
		args = []interface{}{status, note, id, ownerID}
	} else {
		query = `UPDATE reservation_requests SET status = $1, updated_at = NOW()
			WHERE id = $2 AND owner_id = $3 AND status = 'pending'`
		args = []interface{}{status, id, ownerID}
	}

	result, err := executor(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error resolving reservation request %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation request '%s': %w", id, apperrors.ErrInvalidTransition)
	}
	return nil
}

func statusStrings(statuses []db.RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
