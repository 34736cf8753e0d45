package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
)

// DailyLogRepository persists the per-day act sets and the listened surahs.
type DailyLogRepository struct {
	pool *pgxpool.Pool
}

// NewDailyLogRepository creates a new DailyLogRepository instance.
func NewDailyLogRepository(pool *pgxpool.Pool) *DailyLogRepository {
	return &DailyLogRepository{pool: pool}
}

// Load returns the whole ledger of a user.
func (r *DailyLogRepository) Load(ctx context.Context, userID int64) (ledger.DailyLog, error) {
	const query = `SELECT date_key, acts FROM daily_logs WHERE user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily logs: %w", err)
	}
	defer rows.Close()

	log := ledger.DailyLog{}
	for rows.Next() {
		var key string
		var acts []string
		if err := rows.Scan(&key, &acts); err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}
		log[key] = acts
	}
	return log, rows.Err()
}

// SaveDay replaces the acts of one day.
func (r *DailyLogRepository) SaveDay(ctx context.Context, userID int64, dateKey string, acts []string) error {
	const query = `
		INSERT INTO daily_logs (user_id, date_key, acts, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, date_key) DO UPDATE SET acts = EXCLUDED.acts, updated_at = NOW()
	`
	if acts == nil {
		acts = []string{}
	}
	if _, err := r.pool.Exec(ctx, query, userID, dateKey, acts); err != nil {
		return fmt.Errorf("failed to save daily log: %w", err)
	}
	return nil
}

// MarkListened records that a surah was played to the end. It reports
// whether this was the first time.
func (r *DailyLogRepository) MarkListened(ctx context.Context, userID int64, surah int) (bool, error) {
	const query = `
		INSERT INTO listened_surahs (user_id, surah) VALUES ($1, $2)
		ON CONFLICT (user_id, surah) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, userID, surah)
	if err != nil {
		return false, fmt.Errorf("failed to mark surah listened: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListenedSurahs returns the distinct surahs a user finished, ascending.
func (r *DailyLogRepository) ListenedSurahs(ctx context.Context, userID int64) ([]int, error) {
	const query = `SELECT surah FROM listened_surahs WHERE user_id = $1 ORDER BY surah`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listened surahs: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan surah: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
