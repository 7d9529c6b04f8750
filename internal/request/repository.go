package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository handles group request persistence
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a new request repository
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new pending request. The partial unique index on
// (user_id, group_id) WHERE status = 'pending' backs the one-pending-request
// invariant at the storage level.
func (r *PostgresRepository) Create(ctx context.Context, gr *GroupRequest) (*GroupRequest, error) {
	query := `
		INSERT INTO group_requests (user_id, group_id, action, role, status, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		gr.UserID,
		gr.GroupID,
		gr.Action,
		gr.Role,
		gr.Status,
		gr.Note,
	).Scan(&gr.ID, &gr.CreatedAt, &gr.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrPendingExists
		}
		return nil, fmt.Errorf("failed to create group request: %w", err)
	}

	return gr, nil
}

// GetByID retrieves a request by its ID
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*GroupRequest, error) {
	query := `
		SELECT id, user_id, group_id, action, role, status, note, created_at, updated_at
		FROM group_requests
		WHERE id = $1
	`

	gr := &GroupRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gr.ID,
		&gr.UserID,
		&gr.GroupID,
		&gr.Action,
		&gr.Role,
		&gr.Status,
		&gr.Note,
		&gr.CreatedAt,
		&gr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group request: %w", err)
	}

	return gr, nil
}

// GetPending retrieves the pending request for a (user, group) pair, if any
func (r *PostgresRepository) GetPending(ctx context.Context, userID, groupID int64) (*GroupRequest, error) {
	query := `
		SELECT id, user_id, group_id, action, role, status, note, created_at, updated_at
		FROM group_requests
		WHERE user_id = $1 AND group_id = $2 AND status = 'pending'
	`

	gr := &GroupRequest{}
	err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(
		&gr.ID,
		&gr.UserID,
		&gr.GroupID,
		&gr.Action,
		&gr.Role,
		&gr.Status,
		&gr.Note,
		&gr.CreatedAt,
		&gr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending request: %w", err)
	}

	return gr, nil
}

// ListPending retrieves pending requests in creation order, optionally
// narrowed to one group, with total count for pagination
func (r *PostgresRepository) ListPending(ctx context.Context, groupID *int64, limit, offset int) ([]*GroupRequest, int, error) {
	where := `WHERE status = 'pending' AND ($1::bigint IS NULL OR group_id = $1)`

	var total int
	countQuery := `SELECT COUNT(*) FROM group_requests ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, groupID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending requests: %w", err)
	}

	query := `
		SELECT id, user_id, group_id, action, role, status, note, created_at, updated_at
		FROM group_requests
	` + where + `
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var requests []*GroupRequest
	for rows.Next() {
		gr := &GroupRequest{}
		if err := rows.Scan(
			&gr.ID,
			&gr.UserID,
			&gr.GroupID,
			&gr.Action,
			&gr.Role,
			&gr.Status,
			&gr.Note,
			&gr.CreatedAt,
			&gr.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan group request: %w", err)
		}
		requests = append(requests, gr)
	}

	return requests, total, nil
}

// Resolve moves a pending request to a terminal status and, when apply is
// non-nil, runs it inside the same transaction, so the status flip and any
// accompanying writes commit together or not at all. The status guard in the
// WHERE clause makes terminal statuses immutable under concurrent
// resolutions: the loser sees zero affected rows before any other write runs.
func (r *PostgresRepository) Resolve(ctx context.Context, id int64, status Status, apply func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE group_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := tx.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set request status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyResolved
	}

	if apply != nil {
		if err := apply(tx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit request resolution: %w", err)
	}

	return nil
}
