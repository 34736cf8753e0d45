// Package repository provides the PostgreSQL backed document store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrCommunityNotFound = errors.New("community not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrRequestNotFound   = errors.New("community request not found")
)

const profileColumns = `id, username, display_name, email, total_points, level, current_streak,
	total_login_days, last_login_date, total_minutes_active, garden_health, role, is_blocked,
	deleted_at, city_id, city_name, is_online, last_seen, created_at, updated_at`

// ProfileRepository persists user profiles.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*model.UserProfile, error) {
	var p model.UserProfile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.Email,
		&p.TotalPoints,
		&p.Level,
		&p.CurrentStreak,
		&p.TotalLoginDays,
		&p.LastLoginDate,
		&p.TotalMinutesActive,
		&p.GardenHealth,
		&p.Role,
		&p.IsBlocked,
		&p.DeletedAt,
		&p.CityID,
		&p.CityName,
		&p.IsOnline,
		&p.LastSeen,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a fresh profile with zero progress.
func (r *ProfileRepository) Create(ctx context.Context, id int64, username, displayName string) (*model.UserProfile, error) {
	query := `
		INSERT INTO profiles (id, username, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id, username, displayName))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return p, nil
}

// Get retrieves a profile, including soft-deleted ones.
// Returns ErrUserNotFound if the profile does not exist.
func (r *ProfileRepository) Get(ctx context.Context, id int64) (*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetOrCreate retrieves a profile, creating one if it doesn't exist. The
// bool reports whether the profile is new.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, id int64, username, displayName string) (*model.UserProfile, bool, error) {
	p, err := r.Get(ctx, id)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	p, err = r.Create(ctx, id, username, displayName)
	if err != nil {
		// Another request may have created it first.
		p, err = r.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return p, false, nil
	}
	return p, true, nil
}

// UpdateIdentity refreshes the Telegram username and display name.
func (r *ProfileRepository) UpdateIdentity(ctx context.Context, id int64, username, displayName string) error {
	const query = `
		UPDATE profiles SET username = $2, display_name = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, "update identity", query, id, username, displayName)
}

// SaveProgress writes the gamification counters of p.
func (r *ProfileRepository) SaveProgress(ctx context.Context, p *model.UserProfile) error {
	const query = `
		UPDATE profiles
		SET total_points = $2, level = $3, current_streak = $4, total_login_days = $5,
			last_login_date = $6, total_minutes_active = $7, garden_health = $8, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, "save progress", query,
		p.ID, p.TotalPoints, p.Level, p.CurrentStreak, p.TotalLoginDays,
		p.LastLoginDate, p.TotalMinutesActive, p.GardenHealth,
	)
}

// SetLocation stores the selected prayer-time city.
func (r *ProfileRepository) SetLocation(ctx context.Context, id int64, cityID, cityName string) error {
	const query = `UPDATE profiles SET city_id = $2, city_name = $3, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set location", query, id, cityID, cityName)
}

// SetEmail stores the broadcast address.
func (r *ProfileRepository) SetEmail(ctx context.Context, id int64, email string) error {
	const query = `UPDATE profiles SET email = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set email", query, id, email)
}

// SetPresence records the online flag and the time it was observed.
func (r *ProfileRepository) SetPresence(ctx context.Context, id int64, online bool, at time.Time) error {
	const query = `UPDATE profiles SET is_online = $2, last_seen = $3 WHERE id = $1`
	return r.exec(ctx, "set presence", query, id, online, at)
}

// SetPoints overwrites the XP total and level.
func (r *ProfileRepository) SetPoints(ctx context.Context, id, points int64, level int) error {
	const query = `UPDATE profiles SET total_points = $2, level = $3, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set points", query, id, points, level)
}

// SetRole changes the authorization role.
func (r *ProfileRepository) SetRole(ctx context.Context, id int64, role model.Role) error {
	const query = `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set role", query, id, string(role))
}

// SetBlocked blocks or unblocks a profile.
func (r *ProfileRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	const query = `UPDATE profiles SET is_blocked = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set blocked", query, id, blocked)
}

// SoftDelete stamps deleted_at. The row stays.
func (r *ProfileRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE profiles SET deleted_at = $2, is_online = FALSE, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "soft delete", query, id, at)
}

// HardDelete removes the profile and, by cascade, its private documents.
func (r *ProfileRepository) HardDelete(ctx context.Context, id int64) error {
	return r.exec(ctx, "hard delete", `DELETE FROM profiles WHERE id = $1`, id)
}

// ListEmails returns every non-empty email of active profiles.
func (r *ProfileRepository) ListEmails(ctx context.Context) ([]string, error) {
	const query = `
		SELECT email FROM profiles
		WHERE email <> '' AND deleted_at IS NULL AND NOT is_blocked
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	emails, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan emails: %w", err)
	}
	return emails, nil
}

// List returns profiles for the admin dashboard, newest first.
func (r *ProfileRepository) List(ctx context.Context, limit, offset int) ([]*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Leaderboard ranks active profiles with points by level then points.
func (r *ProfileRepository) Leaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT id, COALESCE(NULLIF(display_name, ''), NULLIF(username, ''), 'Hamba Allah'),
			total_points, level, current_streak, garden_health
		FROM profiles
		WHERE total_points > 0 AND deleted_at IS NULL AND NOT is_blocked
		ORDER BY level DESC, total_points DESC, id
		LIMIT $1
	`
	return r.queryLeaderboard(ctx, query, limit)
}

// WeeklyLeaderboard ranks by XP gained since the given instant. Level is
// derived from the weekly total. SUM over BIGINT yields NUMERIC, so it is
// cast back before the integer division.
func (r *ProfileRepository) WeeklyLeaderboard(ctx context.Context, since time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT p.id, COALESCE(NULLIF(p.display_name, ''), NULLIF(p.username, ''), 'Hamba Allah'),
			w.points, (w.points / 100 + 1)::INT, p.current_streak, p.garden_health
		FROM (
			SELECT user_id, SUM(amount)::BIGINT AS points
			FROM xp_events
			WHERE created_at >= $2
			GROUP BY user_id
		) w
		JOIN profiles p ON p.id = w.user_id
		WHERE w.points > 0 AND p.deleted_at IS NULL AND NOT p.is_blocked
		ORDER BY 4 DESC, 3 DESC, p.id
		LIMIT $1
	`
	return r.queryLeaderboard(ctx, query, limit, since)
}

func (r *ProfileRepository) queryLeaderboard(ctx context.Context, query string, args ...any) ([]*model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Points, &e.Level, &e.CurrentStreak, &e.GardenHealth); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(out) + 1
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Stats counts profiles for the admin dashboard.
func (r *ProfileRepository) Stats(ctx context.Context, today string) (*model.AdminStats, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE deleted_at IS NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NULL AND last_login_date = $1),
			COUNT(*) FILTER (WHERE is_blocked),
			(SELECT COUNT(*) FROM communities),
			(SELECT COUNT(*) FROM community_messages),
			(SELECT COUNT(*) FROM community_requests WHERE status = 'pending')
		FROM profiles
	`
	var s model.AdminStats
	err := r.pool.QueryRow(ctx, query, today).Scan(
		&s.TotalUsers, &s.ActiveToday, &s.BlockedUsers,
		&s.TotalCommunities, &s.TotalMessages, &s.PendingRequests,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &s, nil
}

func (r *ProfileRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
