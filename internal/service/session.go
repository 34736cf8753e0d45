package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/streak"
)

// SessionOutcome reports what opening the application changed.
type SessionOutcome struct {
	Streak     streak.Result
	Unlocked   []string
	Discipline garden.DisciplineResult
	Notices    []garden.Notice
}

// StartSession runs the once-per-day bookkeeping when a user opens the
// application: the login streak, badge evaluation and garden maintenance.
// Repeated calls on the same day change nothing.
func (s *TrackerService) StartSession(ctx context.Context, userID int64) (*SessionOutcome, error) {
	out := &SessionOutcome{}
	err := s.states.With(ctx, userID, func(st *UserState) error {
		today := s.states.Today()
		p := &st.Profile

		res := streak.Check(streak.State{
			Current:   p.CurrentStreak,
			TotalDays: p.TotalLoginDays,
			LastLogin: p.LastLoginDate,
		}, today)
		out.Streak = res
		if res.Changed {
			p.CurrentStreak = res.Current
			p.TotalLoginDays = res.TotalDays
			p.LastLoginDate = res.LastLogin
			s.states.persistProfile(st)
			s.states.Publish(events.StreakUpdated{UserID: userID, Current: res.Current, Reset: res.Reset})
		}

		out.Unlocked = s.states.unlockBadges(st)

		g, disc, err := garden.MonitorDiscipline(st.Garden, st.Log, today)
		if err != nil {
			// A corrupt maintenance date must not block the session.
			log.Warn().Err(err).Int64("user_id", userID).Msg("Garden maintenance skipped")
		} else if disc.Applied {
			st.Garden = g
			out.Discipline = disc
		}

		gardenChanged := disc.Applied && err == nil
		if g, n := garden.CheckSpeciesUnlock(st.Garden, p.CurrentStreak); n != nil {
			st.Garden = g
			out.Notices = append(out.Notices, *n)
			gardenChanged = true
		}
		if g, n := garden.CheckLevelUp(st.Garden, p.TotalPoints); n != nil {
			st.Garden = g
			out.Notices = append(out.Notices, *n)
			gardenChanged = true
		}
		if gardenChanged {
			s.states.persistGarden(st)
		}
		for _, n := range out.Notices {
			s.states.Publish(events.GardenNotice{UserID: userID, Key: n.Key, Args: n.Args})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Streak.Changed {
		log.Info().
			Int64("user_id", userID).
			Int("streak", out.Streak.Current).
			Bool("reset", out.Streak.Reset).
			Msg("Session started")
	}
	return out, nil
}
