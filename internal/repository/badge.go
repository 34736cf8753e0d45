package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// BadgeRepository persists per-user badge unlocks.
type BadgeRepository struct {
	pool *pgxpool.Pool
}

// NewBadgeRepository creates a new BadgeRepository instance.
func NewBadgeRepository(pool *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

// List returns the unlock records of a user in unlock order.
func (r *BadgeRepository) List(ctx context.Context, userID int64) ([]model.UnlockedBadge, error) {
	const query = `
		SELECT badge_id, unlocked_at, claimed_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY unlocked_at, badge_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var out []model.UnlockedBadge
	for rows.Next() {
		var b model.UnlockedBadge
		if err := rows.Scan(&b.BadgeID, &b.UnlockedAt, &b.ClaimedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Save upserts every record in one batch. An unlock is never removed and a
// claim is never cleared.
func (r *BadgeRepository) Save(ctx context.Context, userID int64, badges []model.UnlockedBadge) error {
	if len(badges) == 0 {
		return nil
	}
	const query = `
		INSERT INTO user_badges (user_id, badge_id, unlocked_at, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id)
		DO UPDATE SET claimed_at = COALESCE(user_badges.claimed_at, EXCLUDED.claimed_at)
	`
	batch := &pgx.Batch{}
	for _, b := range badges {
		batch.Queue(query, userID, b.BadgeID, b.UnlockedAt, b.ClaimedAt)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save badges: %w", err)
	}
	return nil
}
