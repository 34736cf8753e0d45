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

// Community list orders.
const (
	OrderNewest  = "newest"
	OrderPopular = "popular"
)

const communityColumns = `id, name, description, created_by, member_ids, cardinality(member_ids),
	message_count, is_private, created_at, last_message_at`

// CommunityRepository persists communities and their messages.
type CommunityRepository struct {
	pool *pgxpool.Pool
}

// NewCommunityRepository creates a new CommunityRepository instance.
func NewCommunityRepository(pool *pgxpool.Pool) *CommunityRepository {
	return &CommunityRepository{pool: pool}
}

func scanCommunity(row pgx.Row) (*model.Community, error) {
	var c model.Community
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.CreatedBy,
		&c.MemberIDs,
		&c.MemberCount,
		&c.MessageCount,
		&c.IsPrivate,
		&c.CreatedAt,
		&c.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a community. The bool is false when the id already exists,
// in which case nothing changes.
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) (bool, error) {
	const query = `
		INSERT INTO communities (id, name, description, created_by, member_ids, is_private, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	members := c.MemberIDs
	if members == nil {
		members = []int64{}
	}
	tag, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.Description, c.CreatedBy, members, c.IsPrivate, c.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create community: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get retrieves a community by id.
func (r *CommunityRepository) Get(ctx context.Context, id string) (*model.Community, error) {
	query := `SELECT ` + communityColumns + ` FROM communities WHERE id = $1`
	c, err := scanCommunity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommunityNotFound
		}
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	return c, nil
}

// List returns communities ordered newest first or by message count.
func (r *CommunityRepository) List(ctx context.Context, order string, limit int) ([]*model.Community, error) {
	orderBy := "created_at DESC"
	if order == OrderPopular {
		orderBy = "message_count DESC, created_at DESC"
	}
	query := `SELECT ` + communityColumns + ` FROM communities ORDER BY ` + orderBy + ` LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	defer rows.Close()

	var out []*model.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddMember adds userID to the member list if absent.
func (r *CommunityRepository) AddMember(ctx context.Context, id string, userID int64) error {
	const query = `
		UPDATE communities
		SET member_ids = CASE WHEN $2 = ANY(member_ids) THEN member_ids ELSE array_append(member_ids, $2) END
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommunityNotFound
	}
	return nil
}

// AppendMessage inserts a message and bumps the community counters in one
// transaction.
func (r *CommunityRepository) AppendMessage(ctx context.Context, m *model.CommunityMessage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE communities SET message_count = message_count + 1, last_message_at = $2
		WHERE id = $1
	`, m.CommunityID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to update community counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCommunityNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO community_messages (id, community_id, content, sender_id, sender_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.CommunityID, m.Content, m.SenderID, m.SenderName, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// History returns up to limit messages created before the cursor, in
// ascending creation order. A zero cursor starts from the latest message.
func (r *CommunityRepository) History(ctx context.Context, communityID string, before time.Time, limit int) ([]*model.CommunityMessage, error) {
	if before.IsZero() {
		before = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	const query = `
		SELECT id::text, community_id, content, sender_id, sender_name, created_at FROM (
			SELECT id, community_id, content, sender_id, sender_name, created_at
			FROM community_messages
			WHERE community_id = $1 AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		) page
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, communityID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var out []*model.CommunityMessage
	for rows.Next() {
		var m model.CommunityMessage
		if err := rows.Scan(&m.ID, &m.CommunityID, &m.Content, &m.SenderID, &m.SenderName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// DeleteMessage removes one message and decrements the counter.
func (r *CommunityRepository) DeleteMessage(ctx context.Context, communityID, messageID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM community_messages WHERE id = $1 AND community_id = $2`, messageID, communityID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE communities SET message_count = GREATEST(message_count - 1, 0) WHERE id = $1
	`, communityID); err != nil {
		return fmt.Errorf("failed to update community counters: %w", err)
	}
	return tx.Commit(ctx)
}

// ClearMessages removes every message of a community and returns how many
// were deleted.
func (r *CommunityRepository) ClearMessages(ctx context.Context, communityID string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM community_messages WHERE community_id = $1`, communityID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE communities SET message_count = 0 WHERE id = $1`, communityID); err != nil {
		return 0, fmt.Errorf("failed to reset community counters: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return tag.RowsAffected(), nil
}
