package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// GardenRepository persists the virtual garden.
type GardenRepository struct {
	pool *pgxpool.Pool
}

// NewGardenRepository creates a new GardenRepository instance.
func NewGardenRepository(pool *pgxpool.Pool) *GardenRepository {
	return &GardenRepository{pool: pool}
}

// Get returns the user's garden. A missing row yields a fresh garden and
// false.
func (r *GardenRepository) Get(ctx context.Context, userID int64) (model.GardenState, bool, error) {
	const query = `
		SELECT tree_health, tree_level, tree_type, unlocked_species, last_maintenance_date
		FROM gardens WHERE user_id = $1
	`
	var g model.GardenState
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&g.TreeHealth, &g.TreeLevel, &g.TreeType, &g.UnlockedSpecies, &g.LastMaintenanceDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewGardenState(), false, nil
		}
		return model.GardenState{}, false, fmt.Errorf("failed to get garden: %w", err)
	}
	return g, true, nil
}

// Save writes the persistent part of the garden. Environment flags are
// derived and not stored.
func (r *GardenRepository) Save(ctx context.Context, userID int64, g model.GardenState) error {
	const query = `
		INSERT INTO gardens (user_id, tree_health, tree_level, tree_type, unlocked_species, last_maintenance_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			tree_health = EXCLUDED.tree_health,
			tree_level = EXCLUDED.tree_level,
			tree_type = EXCLUDED.tree_type,
			unlocked_species = EXCLUDED.unlocked_species,
			last_maintenance_date = EXCLUDED.last_maintenance_date,
			updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query,
		userID, g.TreeHealth, g.TreeLevel, g.TreeType, g.UnlockedSpecies, g.LastMaintenanceDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save garden: %w", err)
	}
	return nil
}
