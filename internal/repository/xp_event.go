package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// XPEventRepository records every change of a user's XP total.
type XPEventRepository struct {
	pool *pgxpool.Pool
}

// NewXPEventRepository creates a new XPEventRepository instance.
func NewXPEventRepository(pool *pgxpool.Pool) *XPEventRepository {
	return &XPEventRepository{pool: pool}
}

// Append inserts one event with an explicit timestamp.
func (r *XPEventRepository) Append(ctx context.Context, userID, amount int64, reason string, at time.Time) (*model.XPEvent, error) {
	const query = `
		INSERT INTO xp_events (user_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, reason, created_at
	`
	var ev model.XPEvent
	err := r.pool.QueryRow(ctx, query, userID, amount, reason, at).Scan(
		&ev.ID, &ev.UserID, &ev.Amount, &ev.Reason, &ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append xp event: %w", err)
	}
	return &ev, nil
}
