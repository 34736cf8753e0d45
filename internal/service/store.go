package service

import (
	"context"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// The interfaces below are the slices of the repositories each service
// needs. The pgx repositories satisfy them; tests use in-memory fakes.

// ProfileStore persists profile documents.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, id int64, username, displayName string) (*model.UserProfile, bool, error)
	Get(ctx context.Context, id int64) (*model.UserProfile, error)
	UpdateIdentity(ctx context.Context, id int64, username, displayName string) error
	SaveProgress(ctx context.Context, p *model.UserProfile) error
	SetLocation(ctx context.Context, id int64, cityID, cityName string) error
	SetEmail(ctx context.Context, id int64, email string) error
	SetPresence(ctx context.Context, id int64, online bool, at time.Time) error
}

// AdminProfileStore adds the moderation operations.
type AdminProfileStore interface {
	ProfileStore
	SetPoints(ctx context.Context, id, points int64, level int) error
	SetRole(ctx context.Context, id int64, role model.Role) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	HardDelete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*model.UserProfile, error)
	Stats(ctx context.Context, today string) (*model.AdminStats, error)
}

// LeaderboardStore serves the ranking queries.
type LeaderboardStore interface {
	Leaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	WeeklyLeaderboard(ctx context.Context, since time.Time, limit int) ([]*model.LeaderboardEntry, error)
}

// EmailStore lists broadcast recipients.
type EmailStore interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// DailyLogStore persists the private ledger document.
type DailyLogStore interface {
	Load(ctx context.Context, userID int64) (ledger.DailyLog, error)
	SaveDay(ctx context.Context, userID int64, dateKey string, acts []string) error
	MarkListened(ctx context.Context, userID int64, surah int) (bool, error)
	ListenedSurahs(ctx context.Context, userID int64) ([]int, error)
}

// BadgeStore persists unlock records.
type BadgeStore interface {
	List(ctx context.Context, userID int64) ([]model.UnlockedBadge, error)
	Save(ctx context.Context, userID int64, badges []model.UnlockedBadge) error
}

// GardenStore persists gardens.
type GardenStore interface {
	Get(ctx context.Context, userID int64) (model.GardenState, bool, error)
	Save(ctx context.Context, userID int64, g model.GardenState) error
}

// XPEventStore appends XP history.
type XPEventStore interface {
	Append(ctx context.Context, userID, amount int64, reason string, at time.Time) (*model.XPEvent, error)
}

// CommunityStore persists communities and their messages.
type CommunityStore interface {
	Create(ctx context.Context, c *model.Community) (bool, error)
	Get(ctx context.Context, id string) (*model.Community, error)
	List(ctx context.Context, order string, limit int) ([]*model.Community, error)
	AddMember(ctx context.Context, id string, userID int64) error
	AppendMessage(ctx context.Context, m *model.CommunityMessage) error
	History(ctx context.Context, communityID string, before time.Time, limit int) ([]*model.CommunityMessage, error)
	DeleteMessage(ctx context.Context, communityID, messageID string) error
	ClearMessages(ctx context.Context, communityID string) (int64, error)
}

// RequestStore persists community creation requests.
type RequestStore interface {
	Create(ctx context.Context, req *model.CommunityRequest) error
	Get(ctx context.Context, id string) (*model.CommunityRequest, error)
	ListPending(ctx context.Context) ([]*model.CommunityRequest, error)
	SetStatus(ctx context.Context, id, status string) error
}

// MetadataStore holds application-wide markers.
type MetadataStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Swap(ctx context.Context, key, value string) (string, error)
}

// Clock returns the current instant. Services read time only through it.
type Clock func() time.Time
