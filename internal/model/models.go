// Package model defines the data models for the assistant.
package model

import "time"

// Role is the authorization role of a profile.
type Role string

// Known roles.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// UserProfile is the remote profile document of one user.
type UserProfile struct {
	ID                 int64      `db:"id" json:"id"`
	Username           string     `db:"username" json:"username"`
	DisplayName        string     `db:"display_name" json:"display_name"`
	Email              string     `db:"email" json:"email,omitempty"`
	TotalPoints        int64      `db:"total_points" json:"total_points"`
	Level              int        `db:"level" json:"level"`
	CurrentStreak      int        `db:"current_streak" json:"current_streak"`
	TotalLoginDays     int        `db:"total_login_days" json:"total_login_days"`
	LastLoginDate      string     `db:"last_login_date" json:"last_login_date"`
	TotalMinutesActive int        `db:"total_minutes_active" json:"total_minutes_active"`
	GardenHealth       int        `db:"garden_health" json:"garden_health"`
	Role               Role       `db:"role" json:"role"`
	IsBlocked          bool       `db:"is_blocked" json:"is_blocked"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CityID             string     `db:"city_id" json:"city_id,omitempty"`
	CityName           string     `db:"city_name" json:"city_name,omitempty"`
	IsOnline           bool       `db:"is_online" json:"is_online"`
	LastSeen           *time.Time `db:"last_seen" json:"last_seen,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Name returns the display name, falling back to the username.
func (p *UserProfile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Username != "" {
		return p.Username
	}
	return "Hamba Allah"
}

// IsAdmin reports whether the profile carries the admin role.
func (p *UserProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Active reports whether the profile may use the application.
func (p *UserProfile) Active() bool {
	return !p.IsBlocked && p.DeletedAt == nil
}

// XPEvent records one change of a user's XP total.
type XPEvent struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// XP event reasons.
const (
	XPReasonToggle     = "ibadah_toggle"
	XPReasonBadgeClaim = "badge_claim"
	XPReasonAdminEdit  = "admin_edit"
)

// UnlockedBadge is the per-user unlock record of a badge.
type UnlockedBadge struct {
	BadgeID    string     `db:"badge_id" json:"badge_id"`
	UnlockedAt time.Time  `db:"unlocked_at" json:"unlocked_at"`
	ClaimedAt  *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
}

// Environment holds the garden's ambient effect flags. They are recomputed on
// every evaluation and never kept as history.
type Environment struct {
	Rain        bool `json:"rain"`
	Butterflies bool `json:"butterflies"`
	Fireflies   bool `json:"fireflies"`
	GoldenFruit bool `json:"golden_fruit"`
}

// GardenState is the virtual garden of one user.
type GardenState struct {
	TreeHealth          int         `db:"tree_health" json:"tree_health"`
	TreeLevel           int         `db:"tree_level" json:"tree_level"`
	TreeType            string      `db:"tree_type" json:"tree_type"`
	UnlockedSpecies     []string    `db:"unlocked_species" json:"unlocked_species"`
	Environment         Environment `json:"environment"`
	LastMaintenanceDate string      `db:"last_maintenance_date" json:"last_maintenance_date"`
}

// NewGardenState returns the garden every user starts with.
func NewGardenState() GardenState {
	return GardenState{
		TreeHealth:      100,
		TreeLevel:       1,
		TreeType:        "basic",
		UnlockedSpecies: []string{"basic"},
	}
}

// Clone returns a deep copy of the garden.
func (g GardenState) Clone() GardenState {
	g.UnlockedSpecies = append([]string(nil), g.UnlockedSpecies...)
	return g
}

// Community is a chat channel.
type Community struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Description   string     `db:"description" json:"description"`
	CreatedBy     int64      `db:"created_by" json:"created_by"`
	MemberIDs     []int64    `db:"member_ids" json:"member_ids"`
	MemberCount   int        `db:"member_count" json:"member_count"`
	MessageCount  int        `db:"message_count" json:"message_count"`
	IsPrivate     bool       `db:"is_private" json:"is_private"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
}

// HasMember reports whether userID belongs to the community.
func (c *Community) HasMember(userID int64) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SystemSenderID identifies messages authored by the application itself.
const SystemSenderID int64 = 0

// CommunityMessage is one append-only chat message.
type CommunityMessage struct {
	ID          string    `db:"id" json:"id"`
	CommunityID string    `db:"community_id" json:"community_id"`
	Content     string    `db:"content" json:"content"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	SenderName  string    `db:"sender_name" json:"sender_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Community request statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// CommunityRequest asks admins to create a new community.
type CommunityRequest struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	RequesterID   int64     `db:"requester_id" json:"requester_id"`
	RequesterName string    `db:"requester_name" json:"requester_name"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// LeaderboardEntry is a read-only ranked projection of a profile.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `db:"id" json:"user_id"`
	DisplayName   string `db:"display_name" json:"display_name"`
	Points        int64  `db:"points" json:"points"`
	Level         int    `db:"level" json:"level"`
	CurrentStreak int    `db:"current_streak" json:"current_streak"`
	GardenHealth  int    `db:"garden_health" json:"garden_health"`
}

// Leaderboard kinds.
const (
	LeaderboardAllTime = "all-time"
	LeaderboardWeekly  = "weekly"
)

// AdminStats summarises the dashboard counters.
type AdminStats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveToday      int64 `json:"active_today"`
	BlockedUsers     int64 `json:"blocked_users"`
	TotalCommunities int64 `json:"total_communities"`
	TotalMessages    int64 `json:"total_messages"`
	PendingRequests  int64 `json:"pending_requests"`
}
