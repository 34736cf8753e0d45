package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyLatestVersion is the version marker watched by the broadcast relay.
const KeyLatestVersion = "latest_version"

// MetadataRepository stores application-wide key/value settings.
type MetadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository creates a new MetadataRepository instance.
func NewMetadataRepository(pool *pgxpool.Pool) *MetadataRepository {
	return &MetadataRepository{pool: pool}
}

// Get returns the value of key and whether it is set.
func (r *MetadataRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.pool.QueryRow(ctx, `SELECT value FROM app_metadata WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return v, true, nil
}

// Swap sets key to value and returns the previous value.
func (r *MetadataRepository) Swap(ctx context.Context, key, value string) (string, error) {
	const query = `
		WITH prev AS (SELECT value FROM app_metadata WHERE key = $1)
		INSERT INTO app_metadata (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING COALESCE((SELECT value FROM prev), '')
	`
	var prev string
	if err := r.pool.QueryRow(ctx, query, key, value).Scan(&prev); err != nil {
		return "", fmt.Errorf("failed to set metadata %s: %w", key, err)
	}
	return prev, nil
}
