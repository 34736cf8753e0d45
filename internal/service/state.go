package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/badge"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/lock"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/writequeue"
)

// UserState is the working copy of one user's documents. It is only touched
// while the user's lock is held.
type UserState struct {
	Profile  model.UserProfile
	Log      ledger.DailyLog
	Badges   []model.UnlockedBadge
	Garden   model.GardenState
	Listened map[int]bool
}

// BadgeInput collects what the badge rules look at.
func (s *UserState) BadgeInput() badge.Input {
	return badge.Input{
		Counts:         s.Log.Counts(),
		Streak:         s.Profile.CurrentStreak,
		Level:          s.Profile.Level,
		MinutesActive:  s.Profile.TotalMinutesActive,
		ListenedSurahs: len(s.Listened),
	}
}

// Writer is where persistence jobs go.
type Writer interface {
	Enqueue(key string, job writequeue.Job)
}

// StateDeps bundles the stores behind a user's state.
type StateDeps struct {
	Profiles ProfileStore
	Logs     DailyLogStore
	Badges   BadgeStore
	Gardens  GardenStore
	XP       XPEventStore
}

// States loads, caches and persists UserState. Mutations happen in memory
// under the user's lock and are written back through the queue.
type States struct {
	deps  StateDeps
	queue Writer
	bus   *events.Bus
	locks *lock.Keyed[int64]
	loc   *time.Location
	clock Clock

	mu    sync.Mutex
	cache map[int64]*UserState
}

// NewStates creates a state manager. loc decides calendar days.
func NewStates(deps StateDeps, queue Writer, bus *events.Bus, loc *time.Location, clock Clock) *States {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &States{
		deps:  deps,
		queue: queue,
		bus:   bus,
		locks: lock.New[int64](),
		loc:   loc,
		clock: clock,
		cache: make(map[int64]*UserState),
	}
}

// Now returns the current time in the application time zone.
func (s *States) Now() time.Time {
	return s.clock().In(s.loc)
}

// Today returns today's date key.
func (s *States) Today() string {
	return ledger.DateKey(s.Now())
}

// Location returns the application time zone.
func (s *States) Location() *time.Location {
	return s.loc
}

// With runs fn on the user's state while holding the user's lock. The state
// is loaded from the stores on first use.
func (s *States) With(ctx context.Context, userID int64, fn func(st *UserState) error) error {
	if err := s.locks.LockContext(ctx, userID, 10*time.Second); err != nil {
		return fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	defer s.locks.Unlock(userID)

	st, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	return fn(st)
}

// Snapshot returns a copy of the user's state.
func (s *States) Snapshot(ctx context.Context, userID int64) (*UserState, error) {
	var out *UserState
	err := s.With(ctx, userID, func(st *UserState) error {
		out = st.clone()
		return nil
	})
	return out, err
}

func (s *States) load(ctx context.Context, userID int64) (*UserState, error) {
	s.mu.Lock()
	st, ok := s.cache[userID]
	s.mu.Unlock()
	if ok {
		return st, nil
	}

	p, err := s.deps.Profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	logs, err := s.deps.Logs.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily log: %w", err)
	}
	listened, err := s.deps.Logs.ListenedSurahs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load listened surahs: %w", err)
	}
	badges, err := s.deps.Badges.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load badges: %w", err)
	}
	g, _, err := s.deps.Gardens.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load garden: %w", err)
	}

	st = &UserState{
		Profile:  *p,
		Log:      logs,
		Badges:   badges,
		Garden:   g,
		Listened: make(map[int]bool, len(listened)),
	}
	if st.Log == nil {
		st.Log = ledger.DailyLog{}
	}
	for _, n := range listened {
		st.Listened[n] = true
	}

	s.mu.Lock()
	s.cache[userID] = st
	s.mu.Unlock()
	return st, nil
}

// Evict drops the cached state so the next access reloads from the stores.
// It waits for a mutation in progress on the same user to finish.
func (s *States) Evict(userID int64) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

// Refresh applies fn to the cached state under the user's lock. Users that
// are not cached are left alone; their next load reads the store.
func (s *States) Refresh(userID int64, fn func(st *UserState)) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	s.mu.Lock()
	st, ok := s.cache[userID]
	s.mu.Unlock()
	if ok {
		fn(st)
	}
}

// Publish forwards e to the event bus.
func (s *States) Publish(e events.Event) {
	s.bus.Publish(e)
}

// OnPersistFailed is the queue's failure hook. The user's cached state no
// longer matches the store, so it is dropped.
func (s *States) OnPersistFailed(key string, err error) {
	if id, ok := userFromKey(key); ok {
		s.Evict(id)
	}
	s.bus.Publish(events.PersistFailed{Key: key, Err: err})
}

func userFromKey(key string) (int64, bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	return id, err == nil
}

// The persist helpers copy what they write so later mutations of the state
// do not leak into a pending job.

func (s *States) persistProfile(st *UserState) {
	p := st.Profile
	s.queue.Enqueue(fmt.Sprintf("profile:%d", p.ID), func(ctx context.Context) error {
		return s.deps.Profiles.SaveProgress(ctx, &p)
	})
}

func (s *States) persistDay(st *UserState, key string) {
	userID := st.Profile.ID
	acts := append([]string(nil), st.Log[key]...)
	s.queue.Enqueue(fmt.Sprintf("daily:%d:%s", userID, key), func(ctx context.Context) error {
		return s.deps.Logs.SaveDay(ctx, userID, key, acts)
	})
}

func (s *States) persistBadges(st *UserState) {
	userID := st.Profile.ID
	list := badge.Clone(st.Badges)
	s.queue.Enqueue(fmt.Sprintf("badges:%d", userID), func(ctx context.Context) error {
		return s.deps.Badges.Save(ctx, userID, list)
	})
}

func (s *States) persistGarden(st *UserState) {
	userID := st.Profile.ID
	g := st.Garden.Clone()
	s.queue.Enqueue(fmt.Sprintf("garden:%d", userID), func(ctx context.Context) error {
		return s.deps.Gardens.Save(ctx, userID, g)
	})
}

func (s *States) persistListened(userID int64, surah int) {
	s.queue.Enqueue(fmt.Sprintf("listened:%d:%d", userID, surah), func(ctx context.Context) error {
		_, err := s.deps.Logs.MarkListened(ctx, userID, surah)
		return err
	})
}

// recordXP appends an XP event. Every event gets its own queue key so
// appends are never coalesced.
func (s *States) recordXP(userID, amount int64, reason string) {
	if amount == 0 {
		return
	}
	at := s.clock()
	s.queue.Enqueue(fmt.Sprintf("xp:%d:%s", userID, uuid.NewString()), func(ctx context.Context) error {
		_, err := s.deps.XP.Append(ctx, userID, amount, reason, at)
		return err
	})
}

// creditXP changes the user's XP, recomputes the level and publishes the
// change and any crossed milestones.
func (s *States) creditXP(st *UserState, oldXP int64, reason string, milestones []int64) []int64 {
	newXP := st.Profile.TotalPoints
	st.Profile.Level = ledger.Level(newXP)
	s.recordXP(st.Profile.ID, newXP-oldXP, reason)
	s.bus.Publish(events.XPChanged{
		UserID: st.Profile.ID,
		OldXP:  oldXP,
		NewXP:  newXP,
		Level:  st.Profile.Level,
		Reason: reason,
	})
	crossed := ledger.CrossedMilestones(oldXP, newXP, milestones)
	for _, m := range crossed {
		s.bus.Publish(events.MilestoneReached{UserID: st.Profile.ID, Threshold: m})
	}
	return crossed
}

// unlockBadges evaluates the badge rules and records new unlocks, one event
// per badge in rule order.
func (s *States) unlockBadges(st *UserState) []string {
	ids := badge.Evaluate(st.BadgeInput(), st.Badges)
	if len(ids) == 0 {
		return nil
	}
	st.Badges = badge.Unlock(st.Badges, ids, s.clock())
	s.persistBadges(st)
	for _, id := range ids {
		s.bus.Publish(events.BadgeUnlocked{UserID: st.Profile.ID, BadgeID: id})
	}
	log.Info().Int64("user_id", st.Profile.ID).Strs("badges", ids).Msg("Badges unlocked")
	return ids
}

func (st *UserState) clone() *UserState {
	out := &UserState{
		Profile:  st.Profile,
		Log:      st.Log.Clone(),
		Badges:   badge.Clone(st.Badges),
		Garden:   st.Garden.Clone(),
		Listened: make(map[int]bool, len(st.Listened)),
	}
	for k, v := range st.Listened {
		out.Listened[k] = v
	}
	return out
}
