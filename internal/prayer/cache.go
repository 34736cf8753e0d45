package prayer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache stores fetched timetables keyed by (city, date) in SQLite. Entries
// are immutable once written.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and creates if missing) the cache database at path.
func OpenCache(ctx context.Context, path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schedules (
		city_id TEXT NOT NULL,
		date TEXT NOT NULL,
		payload TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (city_id, date)
	);`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate prayer cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached timetable, or nil when there is none.
func (c *Cache) Get(ctx context.Context, cityID, date string) (*Schedule, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM schedules WHERE city_id = ? AND date = ?`, cityID, date,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prayer cache: %w", err)
	}

	var s Schedule
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		// A corrupt entry is treated as a miss.
		return nil, nil
	}
	return &s, nil
}

// Put stores a timetable. An existing entry for the same key is kept.
func (c *Cache) Put(ctx context.Context, cityID, date string, s *Schedule) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO schedules (city_id, date, payload) VALUES (?, ?, ?)
		 ON CONFLICT (city_id, date) DO NOTHING`, cityID, date, string(payload))
	if err != nil {
		return fmt.Errorf("write prayer cache: %w", err)
	}
	return nil
}

// Prune removes entries dated before date.
func (c *Cache) Prune(ctx context.Context, date string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM schedules WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("prune prayer cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
