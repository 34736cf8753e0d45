package service

import (
	"context"
	"fmt"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// DefaultLeaderboardLimit caps leaderboard size when none is configured.
const DefaultLeaderboardLimit = 50

// RankingService provides leaderboard functionality.
type RankingService struct {
	store LeaderboardStore
	clock Clock
	loc   *time.Location
	limit int
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(store LeaderboardStore, clock Clock, loc *time.Location, limit int) *RankingService {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return &RankingService{store: store, clock: clock, loc: loc, limit: limit}
}

// Leaderboard returns the ranking of the given kind with ranks assigned in
// order.
func (s *RankingService) Leaderboard(ctx context.Context, kind string) ([]*model.LeaderboardEntry, error) {
	var (
		entries []*model.LeaderboardEntry
		err     error
	)
	switch kind {
	case model.LeaderboardWeekly:
		entries, err = s.store.WeeklyLeaderboard(ctx, WeekStart(s.clock().In(s.loc)), s.limit)
	case model.LeaderboardAllTime, "":
		entries, err = s.store.Leaderboard(ctx, s.limit)
	default:
		return nil, fmt.Errorf("unknown leaderboard %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

// UserRank returns the 1-based position of userID, or 0 when not listed.
func UserRank(entries []*model.LeaderboardEntry, userID int64) int {
	for i, e := range entries {
		if e.UserID == userID {
			return i + 1
		}
	}
	return 0
}

// WeekStart returns midnight of the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
