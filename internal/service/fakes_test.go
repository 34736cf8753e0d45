package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/writequeue"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
)

// syncWriter runs persistence jobs as soon as they are enqueued. While
// held, jobs wait coalesced per key like the real queue until release.
type syncWriter struct {
	mu      sync.Mutex
	keys    []string
	err     error
	held    bool
	order   []string
	pending map[string]writequeue.Job
}

func (w *syncWriter) Enqueue(key string, job writequeue.Job) {
	w.mu.Lock()
	w.keys = append(w.keys, key)
	if w.held {
		if w.pending == nil {
			w.pending = make(map[string]writequeue.Job)
		}
		if _, ok := w.pending[key]; !ok {
			w.order = append(w.order, key)
		}
		w.pending[key] = job
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.run(job)
}

func (w *syncWriter) run(job writequeue.Job) {
	if err := job(context.Background()); err != nil {
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}
}

func (w *syncWriter) hold() {
	w.mu.Lock()
	w.held = true
	w.mu.Unlock()
}

// release runs the held jobs in enqueue order and stops holding.
func (w *syncWriter) release() {
	w.mu.Lock()
	order, pending := w.order, w.pending
	w.held, w.order, w.pending = false, nil, nil
	w.mu.Unlock()
	for _, key := range order {
		w.run(pending[key])
	}
}

type fakeProfiles struct {
	mu   sync.Mutex
	byID map[int64]*model.UserProfile
	xp   *fakeXP
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: make(map[int64]*model.UserProfile)}
}

func (f *fakeProfiles) put(p *model.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.byID[p.ID] = &cp
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, id int64, username, displayName string) (*model.UserProfile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, false, nil
	}
	p := &model.UserProfile{ID: id, Username: username, DisplayName: displayName, Level: 1, GardenHealth: 100, Role: model.RoleUser}
	f.byID[id] = p
	cp := *p
	return &cp, true, nil
}

func (f *fakeProfiles) Get(_ context.Context, id int64) (*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) update(id int64, fn func(p *model.UserProfile)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(p)
	return nil
}

func (f *fakeProfiles) UpdateIdentity(_ context.Context, id int64, username, displayName string) error {
	return f.update(id, func(p *model.UserProfile) { p.Username, p.DisplayName = username, displayName })
}

func (f *fakeProfiles) SaveProgress(_ context.Context, in *model.UserProfile) error {
	return f.update(in.ID, func(p *model.UserProfile) {
		p.TotalPoints = in.TotalPoints
		p.Level = in.Level
		p.CurrentStreak = in.CurrentStreak
		p.TotalLoginDays = in.TotalLoginDays
		p.LastLoginDate = in.LastLoginDate
		p.TotalMinutesActive = in.TotalMinutesActive
		p.GardenHealth = in.GardenHealth
	})
}

func (f *fakeProfiles) SetLocation(_ context.Context, id int64, cityID, cityName string) error {
	return f.update(id, func(p *model.UserProfile) { p.CityID, p.CityName = cityID, cityName })
}

func (f *fakeProfiles) SetEmail(_ context.Context, id int64, email string) error {
	return f.update(id, func(p *model.UserProfile) { p.Email = email })
}

func (f *fakeProfiles) SetPresence(_ context.Context, id int64, online bool, at time.Time) error {
	return f.update(id, func(p *model.UserProfile) { p.IsOnline, p.LastSeen = online, &at })
}

func (f *fakeProfiles) SetPoints(_ context.Context, id, points int64, level int) error {
	return f.update(id, func(p *model.UserProfile) { p.TotalPoints, p.Level = points, level })
}

func (f *fakeProfiles) SetRole(_ context.Context, id int64, role model.Role) error {
	return f.update(id, func(p *model.UserProfile) { p.Role = role })
}

func (f *fakeProfiles) SetBlocked(_ context.Context, id int64, blocked bool) error {
	return f.update(id, func(p *model.UserProfile) { p.IsBlocked = blocked })
}

func (f *fakeProfiles) SoftDelete(_ context.Context, id int64, at time.Time) error {
	return f.update(id, func(p *model.UserProfile) { p.DeletedAt = &at })
}

func (f *fakeProfiles) HardDelete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeProfiles) sorted() []*model.UserProfile {
	out := make([]*model.UserProfile, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeProfiles) List(_ context.Context, limit, offset int) ([]*model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted()
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeProfiles) Stats(_ context.Context, today string) (*model.AdminStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.AdminStats{}
	for _, p := range f.byID {
		s.TotalUsers++
		if p.LastLoginDate == today {
			s.ActiveToday++
		}
		if p.IsBlocked {
			s.BlockedUsers++
		}
	}
	return s, nil
}

func (f *fakeProfiles) ListEmails(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.sorted() {
		if p.Email != "" {
			out = append(out, p.Email)
		}
	}
	return out, nil
}

func (f *fakeProfiles) Leaderboard(_ context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.LeaderboardEntry
	for _, p := range f.sorted() {
		if p.TotalPoints > 0 && p.Active() {
			out = append(out, &model.LeaderboardEntry{UserID: p.ID, DisplayName: p.Name(), Points: p.TotalPoints, Level: p.Level})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Points > out[j].Points
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProfiles) WeeklyLeaderboard(_ context.Context, since time.Time, limit int) ([]*model.LeaderboardEntry, error) {
	totals := map[int64]int64{}
	for _, e := range f.xp.all() {
		if !e.CreatedAt.Before(since) {
			totals[e.UserID] += e.Amount
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.LeaderboardEntry
	for _, p := range f.sorted() {
		if pts := totals[p.ID]; pts > 0 && p.Active() {
			out = append(out, &model.LeaderboardEntry{UserID: p.ID, DisplayName: p.Name(), Points: pts, Level: ledger.Level(pts)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeLogs struct {
	mu       sync.Mutex
	days     map[int64]ledger.DailyLog
	listened map[int64]map[int]bool
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{days: map[int64]ledger.DailyLog{}, listened: map[int64]map[int]bool{}}
}

func (f *fakeLogs) Load(_ context.Context, userID int64) (ledger.DailyLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.days[userID].Clone(), nil
}

func (f *fakeLogs) SaveDay(_ context.Context, userID int64, key string, acts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.days[userID] == nil {
		f.days[userID] = ledger.DailyLog{}
	}
	f.days[userID][key] = append([]string(nil), acts...)
	return nil
}

func (f *fakeLogs) MarkListened(_ context.Context, userID int64, surah int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listened[userID] == nil {
		f.listened[userID] = map[int]bool{}
	}
	if f.listened[userID][surah] {
		return false, nil
	}
	f.listened[userID][surah] = true
	return true, nil
}

func (f *fakeLogs) ListenedSurahs(_ context.Context, userID int64) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for n := range f.listened[userID] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

type fakeBadges struct {
	mu   sync.Mutex
	data map[int64][]model.UnlockedBadge
}

func (f *fakeBadges) List(_ context.Context, userID int64) ([]model.UnlockedBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.UnlockedBadge(nil), f.data[userID]...), nil
}

func (f *fakeBadges) Save(_ context.Context, userID int64, list []model.UnlockedBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[int64][]model.UnlockedBadge{}
	}
	f.data[userID] = append([]model.UnlockedBadge(nil), list...)
	return nil
}

type fakeGardens struct {
	mu   sync.Mutex
	data map[int64]model.GardenState
}

func (f *fakeGardens) Get(_ context.Context, userID int64) (model.GardenState, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.data[userID]
	if !ok {
		return model.NewGardenState(), false, nil
	}
	return g.Clone(), true, nil
}

func (f *fakeGardens) Save(_ context.Context, userID int64, g model.GardenState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[int64]model.GardenState{}
	}
	f.data[userID] = g.Clone()
	return nil
}

type fakeXP struct {
	mu     sync.Mutex
	events []model.XPEvent
}

func (f *fakeXP) Append(_ context.Context, userID, amount int64, reason string, at time.Time) (*model.XPEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := model.XPEvent{ID: int64(len(f.events) + 1), UserID: userID, Amount: amount, Reason: reason, CreatedAt: at}
	f.events = append(f.events, e)
	return &e, nil
}

func (f *fakeXP) all() []model.XPEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.XPEvent(nil), f.events...)
}

type fakeCommunities struct {
	mu       sync.Mutex
	byID     map[string]*model.Community
	messages map[string][]*model.CommunityMessage
}

func newFakeCommunities() *fakeCommunities {
	return &fakeCommunities{byID: map[string]*model.Community{}, messages: map[string][]*model.CommunityMessage{}}
}

func (f *fakeCommunities) Create(_ context.Context, c *model.Community) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; ok {
		return false, nil
	}
	cp := *c
	cp.MessageCount = 0
	f.byID[c.ID] = &cp
	return true, nil
}

func (f *fakeCommunities) Get(_ context.Context, id string) (*model.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrCommunityNotFound
	}
	cp := *c
	cp.MemberIDs = append([]int64(nil), c.MemberIDs...)
	cp.MemberCount = len(cp.MemberIDs)
	return &cp, nil
}

func (f *fakeCommunities) List(_ context.Context, order string, limit int) ([]*model.Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Community
	for _, c := range f.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if order == repository.OrderPopular && out[i].MessageCount != out[j].MessageCount {
			return out[i].MessageCount > out[j].MessageCount
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCommunities) AddMember(_ context.Context, id string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrCommunityNotFound
	}
	if !c.HasMember(userID) {
		c.MemberIDs = append(c.MemberIDs, userID)
	}
	return nil
}

func (f *fakeCommunities) AppendMessage(_ context.Context, m *model.CommunityMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[m.CommunityID]
	if !ok {
		return repository.ErrCommunityNotFound
	}
	c.MessageCount++
	at := m.CreatedAt
	c.LastMessageAt = &at
	cp := *m
	f.messages[m.CommunityID] = append(f.messages[m.CommunityID], &cp)
	return nil
}

func (f *fakeCommunities) History(_ context.Context, communityID string, before time.Time, limit int) ([]*model.CommunityMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var page []*model.CommunityMessage
	for _, m := range f.messages[communityID] {
		if before.IsZero() || m.CreatedAt.Before(before) {
			page = append(page, m)
		}
	}
	if len(page) > limit {
		page = page[len(page)-limit:]
	}
	return page, nil
}

func (f *fakeCommunities) DeleteMessage(_ context.Context, communityID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.messages[communityID]
	for i, m := range list {
		if m.ID == messageID {
			f.messages[communityID] = append(list[:i:i], list[i+1:]...)
			f.byID[communityID].MessageCount--
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (f *fakeCommunities) ClearMessages(_ context.Context, communityID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.messages[communityID]))
	delete(f.messages, communityID)
	if c, ok := f.byID[communityID]; ok {
		c.MessageCount = 0
	}
	return n, nil
}

type fakeRequests struct {
	mu   sync.Mutex
	byID map[string]*model.CommunityRequest
}

func (f *fakeRequests) Create(_ context.Context, r *model.CommunityRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[string]*model.CommunityRequest{}
	}
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeRequests) Get(_ context.Context, id string) (*model.CommunityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRequests) ListPending(_ context.Context) ([]*model.CommunityRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.CommunityRequest
	for _, r := range f.byID {
		if r.Status == model.RequestPending {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRequests) SetStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok || r.Status != model.RequestPending {
		return repository.ErrRequestNotFound
	}
	r.Status = status
	return nil
}

type fakeMetadata struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *fakeMetadata) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeMetadata) Swap(_ context.Context, key, value string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]string{}
	}
	prev := f.data[key]
	f.data[key] = value
	return prev, nil
}

// testEnv wires the services to in-memory stores and a fixed clock.
type testEnv struct {
	profiles *fakeProfiles
	logs     *fakeLogs
	badges   *fakeBadges
	gardens  *fakeGardens
	xp       *fakeXP
	writer   *syncWriter
	bus      *events.Bus
	states   *States
	now      time.Time
	loc      *time.Location
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	loc := time.FixedZone("WIB", 7*3600)
	env := &testEnv{
		profiles: newFakeProfiles(),
		logs:     newFakeLogs(),
		badges:   &fakeBadges{},
		gardens:  &fakeGardens{},
		xp:       &fakeXP{},
		writer:   &syncWriter{},
		bus:      events.New(),
		now:      time.Date(2024, 5, 1, 10, 0, 0, 0, loc),
		loc:      loc,
	}
	env.profiles.xp = env.xp
	env.states = NewStates(StateDeps{
		Profiles: env.profiles,
		Logs:     env.logs,
		Badges:   env.badges,
		Gardens:  env.gardens,
		XP:       env.xp,
	}, env.writer, env.bus, loc, env.clock)
	return env
}

func (e *testEnv) clock() time.Time { return e.now }

func (e *testEnv) addUser(id int64, name string) *model.UserProfile {
	p := &model.UserProfile{ID: id, Username: name, DisplayName: name, Level: 1, GardenHealth: 100, Role: model.RoleUser}
	e.profiles.put(p)
	return p
}

// record collects every published event.
func (e *testEnv) record() *[]events.Event {
	var mu sync.Mutex
	var got []events.Event
	e.bus.SubscribeAll(func(ev events.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	return &got
}
