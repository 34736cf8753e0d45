// Package memstore provides in-memory implementations of the service store
// interfaces. Front-end packages use them to exercise real services in
// their tests without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/writequeue"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// Writer runs persistence jobs as soon as they are enqueued.
type Writer struct{}

func (Writer) Enqueue(_ string, job writequeue.Job) {
	_ = job(context.Background())
}

// Profiles stores profile documents.
type Profiles struct {
	mu   sync.Mutex
	byID map[int64]*model.UserProfile
	err  error
}

func NewProfiles() *Profiles {
	return &Profiles{byID: map[int64]*model.UserProfile{}}
}

// Put stores a copy of p.
func (m *Profiles) Put(p model.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = &p
}

// Snapshot returns the stored copy of a profile.
func (m *Profiles) Snapshot(id int64) model.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

// FailGet makes Get return err until it is called again with nil.
func (m *Profiles) FailGet(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Profiles) GetOrCreate(_ context.Context, id int64, username, displayName string) (*model.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, false, nil
	}
	p := &model.UserProfile{ID: id, Username: username, DisplayName: displayName, Level: 1, GardenHealth: 100, Role: model.RoleUser}
	m.byID[id] = p
	cp := *p
	return &cp, true, nil
}

func (m *Profiles) Get(_ context.Context, id int64) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Profiles) update(id int64, fn func(p *model.UserProfile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(p)
	return nil
}

func (m *Profiles) UpdateIdentity(_ context.Context, id int64, username, displayName string) error {
	return m.update(id, func(p *model.UserProfile) { p.Username, p.DisplayName = username, displayName })
}

func (m *Profiles) SaveProgress(_ context.Context, in *model.UserProfile) error {
	return m.update(in.ID, func(p *model.UserProfile) {
		p.TotalPoints, p.Level = in.TotalPoints, in.Level
		p.CurrentStreak, p.TotalLoginDays, p.LastLoginDate = in.CurrentStreak, in.TotalLoginDays, in.LastLoginDate
		p.TotalMinutesActive, p.GardenHealth = in.TotalMinutesActive, in.GardenHealth
	})
}

func (m *Profiles) SetLocation(_ context.Context, id int64, cityID, cityName string) error {
	return m.update(id, func(p *model.UserProfile) { p.CityID, p.CityName = cityID, cityName })
}

func (m *Profiles) SetEmail(_ context.Context, id int64, email string) error {
	return m.update(id, func(p *model.UserProfile) { p.Email = email })
}

func (m *Profiles) SetPresence(_ context.Context, id int64, online bool, at time.Time) error {
	return m.update(id, func(p *model.UserProfile) { p.IsOnline, p.LastSeen = online, &at })
}

func (m *Profiles) SetPoints(_ context.Context, id, points int64, level int) error {
	return m.update(id, func(p *model.UserProfile) { p.TotalPoints, p.Level = points, level })
}

func (m *Profiles) SetRole(_ context.Context, id int64, role model.Role) error {
	return m.update(id, func(p *model.UserProfile) { p.Role = role })
}

func (m *Profiles) SetBlocked(_ context.Context, id int64, blocked bool) error {
	return m.update(id, func(p *model.UserProfile) { p.IsBlocked = blocked })
}

func (m *Profiles) SoftDelete(_ context.Context, id int64, at time.Time) error {
	return m.update(id, func(p *model.UserProfile) { p.DeletedAt = &at })
}

func (m *Profiles) HardDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *Profiles) List(_ context.Context, limit, offset int) ([]*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserProfile
	for _, p := range m.byID {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Profiles) Stats(_ context.Context, _ string) (*model.AdminStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &model.AdminStats{TotalUsers: int64(len(m.byID))}, nil
}

func (m *Profiles) Leaderboard(_ context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.LeaderboardEntry
	for _, p := range m.byID {
		if p.TotalPoints > 0 && p.Active() {
			out = append(out, &model.LeaderboardEntry{UserID: p.ID, DisplayName: p.Name(), Points: p.TotalPoints, Level: p.Level})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i, e := range out {
		e.Rank = i + 1
	}
	return out, nil
}

func (m *Profiles) WeeklyLeaderboard(ctx context.Context, _ time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	return m.Leaderboard(ctx, limit)
}

// Logs stores daily logs and listened surahs.
type Logs struct {
	mu       sync.Mutex
	days     map[int64]ledger.DailyLog
	listened map[int64]map[int]bool
}

// Put replaces one stored day.
func (m *Logs) Put(userID int64, key string, acts ...string) {
	_ = m.SaveDay(context.Background(), userID, key, acts)
}

func (m *Logs) Load(_ context.Context, userID int64) (ledger.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days[userID].Clone(), nil
}

func (m *Logs) SaveDay(_ context.Context, userID int64, key string, acts []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days == nil {
		m.days = map[int64]ledger.DailyLog{}
	}
	if m.days[userID] == nil {
		m.days[userID] = ledger.DailyLog{}
	}
	m.days[userID][key] = append([]string(nil), acts...)
	return nil
}

func (m *Logs) MarkListened(_ context.Context, userID int64, surah int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listened == nil {
		m.listened = map[int64]map[int]bool{}
	}
	if m.listened[userID] == nil {
		m.listened[userID] = map[int]bool{}
	}
	if m.listened[userID][surah] {
		return false, nil
	}
	m.listened[userID][surah] = true
	return true, nil
}

func (m *Logs) ListenedSurahs(_ context.Context, userID int64) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for n := range m.listened[userID] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// Badges stores unlock records.
type Badges struct {
	mu     sync.Mutex
	byUser map[int64][]model.UnlockedBadge
}

func (m *Badges) List(_ context.Context, userID int64) ([]model.UnlockedBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.UnlockedBadge(nil), m.byUser[userID]...), nil
}

func (m *Badges) Save(_ context.Context, userID int64, list []model.UnlockedBadge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byUser == nil {
		m.byUser = map[int64][]model.UnlockedBadge{}
	}
	m.byUser[userID] = append([]model.UnlockedBadge(nil), list...)
	return nil
}

// Gardens stores gardens. Users without one get a new garden.
type Gardens struct {
	mu     sync.Mutex
	byUser map[int64]model.GardenState
}

// Put stores a copy of g.
func (m *Gardens) Put(userID int64, g model.GardenState) {
	_ = m.Save(context.Background(), userID, g)
}

func (m *Gardens) Get(_ context.Context, userID int64) (model.GardenState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.byUser[userID]
	if !ok {
		return model.NewGardenState(), false, nil
	}
	return g.Clone(), true, nil
}

func (m *Gardens) Save(_ context.Context, userID int64, g model.GardenState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byUser == nil {
		m.byUser = map[int64]model.GardenState{}
	}
	m.byUser[userID] = g.Clone()
	return nil
}

// XP records XP events.
type XP struct {
	mu     sync.Mutex
	events []model.XPEvent
}

func (m *XP) Append(_ context.Context, userID, amount int64, reason string, at time.Time) (*model.XPEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.XPEvent{UserID: userID, Amount: amount, Reason: reason, CreatedAt: at}
	m.events = append(m.events, e)
	return &e, nil
}

// Stores bundles one of each user store.
type Stores struct {
	Profiles *Profiles
	Logs     *Logs
	Badges   *Badges
	Gardens  *Gardens
	XP       *XP
}

// New creates empty stores.
func New() *Stores {
	return &Stores{
		Profiles: NewProfiles(),
		Logs:     &Logs{},
		Badges:   &Badges{},
		Gardens:  &Gardens{},
		XP:       &XP{},
	}
}

// Deps returns the stores as service dependencies.
func (s *Stores) Deps() service.StateDeps {
	return service.StateDeps{
		Profiles: s.Profiles,
		Logs:     s.Logs,
		Badges:   s.Badges,
		Gardens:  s.Gardens,
		XP:       s.XP,
	}
}

// Communities stores communities and their messages.
type Communities struct {
	mu       sync.Mutex
	byID     map[string]*model.Community
	messages map[string][]*model.CommunityMessage
}

func NewCommunities() *Communities {
	return &Communities{byID: map[string]*model.Community{}, messages: map[string][]*model.CommunityMessage{}}
}

func (m *Communities) Create(_ context.Context, c *model.Community) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; ok {
		return false, nil
	}
	cp := *c
	m.byID[c.ID] = &cp
	return true, nil
}

func (m *Communities) Get(_ context.Context, id string) (*model.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrCommunityNotFound
	}
	cp := *c
	cp.MemberIDs = append([]int64(nil), c.MemberIDs...)
	return &cp, nil
}

func (m *Communities) List(_ context.Context, _ string, limit int) ([]*model.Community, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Community
	for _, c := range m.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Communities) AddMember(_ context.Context, id string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return repository.ErrCommunityNotFound
	}
	if !c.HasMember(userID) {
		c.MemberIDs = append(c.MemberIDs, userID)
	}
	return nil
}

func (m *Communities) AppendMessage(_ context.Context, msg *model.CommunityMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[msg.CommunityID]
	if !ok {
		return repository.ErrCommunityNotFound
	}
	c.MessageCount++
	cp := *msg
	m.messages[msg.CommunityID] = append(m.messages[msg.CommunityID], &cp)
	return nil
}

func (m *Communities) History(_ context.Context, communityID string, before time.Time, limit int) ([]*model.CommunityMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var page []*model.CommunityMessage
	for _, msg := range m.messages[communityID] {
		if before.IsZero() || msg.CreatedAt.Before(before) {
			page = append(page, msg)
		}
	}
	if len(page) > limit {
		page = page[len(page)-limit:]
	}
	return page, nil
}

func (m *Communities) DeleteMessage(_ context.Context, communityID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.messages[communityID]
	for i, msg := range list {
		if msg.ID == messageID {
			m.messages[communityID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (m *Communities) ClearMessages(_ context.Context, communityID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.messages[communityID]))
	delete(m.messages, communityID)
	return n, nil
}

// Requests stores community creation requests.
type Requests struct {
	mu   sync.Mutex
	byID map[string]*model.CommunityRequest
}

func (m *Requests) Create(_ context.Context, r *model.CommunityRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID == nil {
		m.byID = map[string]*model.CommunityRequest{}
	}
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *Requests) Get(_ context.Context, id string) (*model.CommunityRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Requests) ListPending(context.Context) ([]*model.CommunityRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CommunityRequest
	for _, r := range m.byID {
		if r.Status == model.RequestPending {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Requests) SetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return repository.ErrRequestNotFound
	}
	r.Status = status
	return nil
}
