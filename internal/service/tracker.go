package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/audio"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/badge"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Tracker errors.
var (
	ErrBadgeNotUnlocked    = badge.ErrNotUnlocked
	ErrBadgeAlreadyClaimed = badge.ErrAlreadyClaimed
	ErrUnknownBadge        = errors.New("unknown badge")
	ErrSurahOutOfRange     = errors.New("surah number out of range")
)

// TrackerService records worship acts and turns them into XP, badges and
// garden growth.
type TrackerService struct {
	states     *States
	milestones []int64
	claimBonus int64
}

// NewTrackerService creates a new TrackerService instance.
func NewTrackerService(states *States, milestones []int64, claimBonus int64) *TrackerService {
	if claimBonus <= 0 {
		claimBonus = badge.DefaultClaimBonus
	}
	return &TrackerService{states: states, milestones: milestones, claimBonus: claimBonus}
}

// ToggleOutcome is everything a toggle changed.
type ToggleOutcome struct {
	ledger.ToggleResult
	Unlocked []string
	Garden   *garden.Notice
}

// Toggle flips actID in today's log.
func (s *TrackerService) Toggle(ctx context.Context, userID int64, actID string) (*ToggleOutcome, error) {
	if _, ok := catalog.Act(actID); !ok {
		return nil, ledger.ErrUnknownAct
	}

	var out *ToggleOutcome
	err := s.states.With(ctx, userID, func(st *UserState) error {
		today := s.states.Today()
		t := ledger.Tracker{Log: st.Log, TotalXP: st.Profile.TotalPoints}
		res, err := t.Toggle(today, actID, s.milestones)
		if err != nil {
			return err
		}

		st.Log = t.Log
		st.Profile.TotalPoints = t.TotalXP
		st.Profile.GardenHealth = garden.PrayerHealth(st.Log[today])
		s.states.creditXP(st, res.OldXP, model.XPReasonToggle, s.milestones)

		out = &ToggleOutcome{ToggleResult: res}
		out.Unlocked = s.states.unlockBadges(st)
		out.Garden = s.growGarden(st)

		s.states.persistDay(st, today)
		s.states.persistProfile(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("user_id", userID).
		Str("act", actID).
		Bool("added", out.Added).
		Int64("xp", out.NewXP).
		Msg("Act toggled")
	return out, nil
}

func (s *TrackerService) growGarden(st *UserState) *garden.Notice {
	g, notice := garden.CheckLevelUp(st.Garden, st.Profile.TotalPoints)
	if notice == nil {
		return nil
	}
	st.Garden = g
	s.states.persistGarden(st)
	s.states.Publish(events.GardenNotice{UserID: st.Profile.ID, Key: notice.Key, Args: notice.Args})
	return notice
}

// Summary is the dashboard view of a user's progress.
type Summary struct {
	Today        []string         `json:"today"`
	TodayXP      int64            `json:"today_xp"`
	Progress     int              `json:"progress"`
	TotalXP      int64            `json:"total_xp"`
	Level        int              `json:"level"`
	XPProgress   int64            `json:"xp_progress"`
	Streak       int              `json:"streak"`
	LoginDays    int              `json:"login_days"`
	Minutes      int              `json:"minutes_active"`
	Listened     int              `json:"listened_surahs"`
	Weekly       []ledger.DayStat `json:"weekly"`
	Effects      badge.Effects    `json:"effects"`
	GardenHealth int              `json:"garden_health"`
}

// Summary returns today's progress and the weekly series.
func (s *TrackerService) Summary(ctx context.Context, userID int64) (*Summary, error) {
	st, err := s.states.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.states.Now()
	today := st.Log.Day(ledger.DateKey(now))
	return &Summary{
		Today:        today,
		TodayXP:      ledger.DayXP(today),
		Progress:     ledger.Progress(today),
		TotalXP:      st.Profile.TotalPoints,
		Level:        st.Profile.Level,
		XPProgress:   st.Profile.TotalPoints % 100,
		Streak:       st.Profile.CurrentStreak,
		LoginDays:    st.Profile.TotalLoginDays,
		Minutes:      st.Profile.TotalMinutesActive,
		Listened:     len(st.Listened),
		Weekly:       st.Log.Weekly(now),
		Effects:      badge.EffectsOf(st.Badges),
		GardenHealth: st.Profile.GardenHealth,
	}, nil
}

// BadgeView is a catalog badge with the user's status.
type BadgeView struct {
	catalog.Badge
	Unlocked   bool       `json:"unlocked"`
	Claimed    bool       `json:"claimed"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
}

// Badges lists every badge with the user's unlock status.
func (s *TrackerService) Badges(ctx context.Context, userID int64) ([]BadgeView, error) {
	st, err := s.states.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs := catalog.Badges()
	out := make([]BadgeView, 0, len(defs))
	for _, def := range defs {
		v := BadgeView{Badge: def}
		if i := badge.Find(st.Badges, def.ID); i >= 0 {
			u := st.Badges[i]
			v.Unlocked = true
			v.UnlockedAt = &u.UnlockedAt
			v.ClaimedAt = u.ClaimedAt
			v.Claimed = u.ClaimedAt != nil
		}
		out = append(out, v)
	}
	return out, nil
}

// ClaimOutcome describes a successful claim.
type ClaimOutcome struct {
	BadgeID    string
	Bonus      int64
	NewXP      int64
	Level      int
	Milestones []int64
	Unlocked   []string
}

// ClaimBadge credits the bonus of an unlocked, unclaimed badge. Claiming a
// locked or claimed badge changes nothing and returns the matching error.
func (s *TrackerService) ClaimBadge(ctx context.Context, userID int64, badgeID string) (*ClaimOutcome, error) {
	if _, ok := catalog.BadgeByID(badgeID); !ok {
		return nil, ErrUnknownBadge
	}

	var out *ClaimOutcome
	err := s.states.With(ctx, userID, func(st *UserState) error {
		claimed, err := badge.Claim(st.Badges, badgeID, s.states.clock())
		if err != nil {
			return err
		}
		st.Badges = claimed
		s.states.persistBadges(st)

		oldXP := st.Profile.TotalPoints
		st.Profile.TotalPoints += s.claimBonus
		crossed := s.states.creditXP(st, oldXP, model.XPReasonBadgeClaim, s.milestones)
		s.states.Publish(events.BadgeClaimed{UserID: userID, BadgeID: badgeID, Bonus: s.claimBonus})

		out = &ClaimOutcome{
			BadgeID:    badgeID,
			Bonus:      s.claimBonus,
			NewXP:      st.Profile.TotalPoints,
			Level:      st.Profile.Level,
			Milestones: crossed,
		}
		// The bonus can lift the level over a scholar threshold.
		out.Unlocked = s.states.unlockBadges(st)
		s.growGarden(st)
		s.states.persistProfile(st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AccrueMinute adds one minute of active time and returns the new total.
func (s *TrackerService) AccrueMinute(ctx context.Context, userID int64) (int, []string, error) {
	var minutes int
	var unlocked []string
	err := s.states.With(ctx, userID, func(st *UserState) error {
		st.Profile.TotalMinutesActive++
		minutes = st.Profile.TotalMinutesActive
		unlocked = s.states.unlockBadges(st)
		s.states.persistProfile(st)
		return nil
	})
	return minutes, unlocked, err
}

// MarkListened records a surah heard to the end. Repeats are ignored.
func (s *TrackerService) MarkListened(ctx context.Context, userID int64, surah int) (bool, []string, error) {
	if surah < 1 || surah > audio.LastSurah {
		return false, nil, fmt.Errorf("%w: %d", ErrSurahOutOfRange, surah)
	}

	var first bool
	var unlocked []string
	err := s.states.With(ctx, userID, func(st *UserState) error {
		if st.Listened[surah] {
			return nil
		}
		first = true
		st.Listened[surah] = true
		s.states.persistListened(userID, surah)
		unlocked = s.states.unlockBadges(st)
		return nil
	})
	return first, unlocked, err
}
