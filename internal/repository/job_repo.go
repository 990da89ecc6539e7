package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"rentmyparking/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// ListUnremindedPendingBefore finds pending requests created before the
// cutoff whose owner was never reminded.
func (r *JobRepository) ListUnremindedPendingBefore(ctx context.Context, cutoff time.Time) ([]db.ReservationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reservation_requests
		WHERE status = 'pending' AND reminded_at IS NULL AND created_at < $1
		ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying stale pending requests: %w", err)
	}
	defer rows.Close()

	var requests []db.ReservationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning stale pending request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return requests, nil
}

// MarkReminded stamps reminded_at on the given requests.
func (r *JobRepository) MarkReminded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	result, err := r.DB.ExecContext(ctx,
		`UPDATE reservation_requests SET reminded_at = NOW() WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error marking requests reminded: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		slog.Warn("could not get rows affected", "error", err)
	} else {
		slog.Info("marked reservation requests reminded", "count", rowsAffected)
	}
	return nil
}
