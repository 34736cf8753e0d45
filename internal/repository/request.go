package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// RequestRepository persists community creation requests.
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a new RequestRepository instance.
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create inserts a pending request.
func (r *RequestRepository) Create(ctx context.Context, req *model.CommunityRequest) error {
	const query = `
		INSERT INTO community_requests (id, name, description, requester_id, requester_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query, req.ID, req.Name, req.Description, req.RequesterID, req.RequesterName, req.Status, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create community request: %w", err)
	}
	return nil
}

// Get retrieves a request by id.
func (r *RequestRepository) Get(ctx context.Context, id string) (*model.CommunityRequest, error) {
	const query = `
		SELECT id::text, name, description, requester_id, requester_name, status, created_at
		FROM community_requests WHERE id = $1
	`
	var req model.CommunityRequest
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.Name, &req.Description, &req.RequesterID, &req.RequesterName, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get community request: %w", err)
	}
	return &req, nil
}

// ListPending returns pending requests, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]*model.CommunityRequest, error) {
	const query = `
		SELECT id::text, name, description, requester_id, requester_name, status, created_at
		FROM community_requests WHERE status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list community requests: %w", err)
	}
	defer rows.Close()

	var out []*model.CommunityRequest
	for rows.Next() {
		var req model.CommunityRequest
		if err := rows.Scan(&req.ID, &req.Name, &req.Description, &req.RequesterID, &req.RequesterName, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan community request: %w", err)
		}
		out = append(out, &req)
	}
	return out, rows.Err()
}

// SetStatus moves a pending request to approved or rejected. Requests that
// were already decided are reported as not found.
func (r *RequestRepository) SetStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE community_requests SET status = $2 WHERE id = $1 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update community request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}
