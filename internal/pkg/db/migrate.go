package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{"profiles", `
		CREATE TABLE IF NOT EXISTS profiles (
			id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(320) NOT NULL DEFAULT '',
			total_points BIGINT NOT NULL DEFAULT 0 CHECK (total_points >= 0),
			level INT NOT NULL DEFAULT 1 CHECK (level >= 1),
			current_streak INT NOT NULL DEFAULT 0,
			total_login_days INT NOT NULL DEFAULT 0,
			last_login_date VARCHAR(10) NOT NULL DEFAULT '',
			total_minutes_active INT NOT NULL DEFAULT 0,
			garden_health INT NOT NULL DEFAULT 0,
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMPTZ,
			city_id VARCHAR(16) NOT NULL DEFAULT '',
			city_name VARCHAR(255) NOT NULL DEFAULT '',
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			last_seen TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_rank ON profiles(level DESC, total_points DESC);
	`},
	{"daily_logs", `
		CREATE TABLE IF NOT EXISTS daily_logs (
			user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			date_key VARCHAR(10) NOT NULL,
			acts TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, date_key)
		);
		CREATE TABLE IF NOT EXISTS listened_surahs (
			user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			surah INT NOT NULL CHECK (surah BETWEEN 1 AND 114),
			listened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, surah)
		);
	`},
	{"badges", `
		CREATE TABLE IF NOT EXISTS user_badges (
			user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			badge_id VARCHAR(64) NOT NULL,
			unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			claimed_at TIMESTAMPTZ,
			PRIMARY KEY (user_id, badge_id)
		);
	`},
	{"gardens", `
		CREATE TABLE IF NOT EXISTS gardens (
			user_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			tree_health INT NOT NULL DEFAULT 100 CHECK (tree_health BETWEEN 0 AND 100),
			tree_level INT NOT NULL DEFAULT 1 CHECK (tree_level BETWEEN 1 AND 4),
			tree_type VARCHAR(32) NOT NULL DEFAULT 'basic',
			unlocked_species TEXT[] NOT NULL DEFAULT '{basic}',
			last_maintenance_date VARCHAR(10) NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"xp_events", `
		CREATE TABLE IF NOT EXISTS xp_events (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			reason VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_xp_events_time ON xp_events(created_at DESC, user_id);
	`},
	{"communities", `
		CREATE TABLE IF NOT EXISTS communities (
			id VARCHAR(128) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_by BIGINT NOT NULL DEFAULT 0,
			member_ids BIGINT[] NOT NULL DEFAULT '{}',
			message_count INT NOT NULL DEFAULT 0,
			is_private BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_message_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS community_messages (
			id UUID PRIMARY KEY,
			community_id VARCHAR(128) NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			sender_id BIGINT NOT NULL,
			sender_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_messages_community_time ON community_messages(community_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS community_requests (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			requester_id BIGINT NOT NULL,
			requester_name VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"app_metadata", `
		CREATE TABLE IF NOT EXISTS app_metadata (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")
	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}
	log.Info().Msg("All migrations completed successfully")
	return nil
}
