// Package events is the in-process notification stream. Services publish
// typed events; the Telegram notifier, chat sockets and metrics subscribe.
package events

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Event is anything published on the bus.
type Event interface {
	Name() string
}

// XPChanged is published after every change of a user's XP total.
type XPChanged struct {
	UserID int64
	OldXP  int64
	NewXP  int64
	Level  int
	Reason string
}

// MilestoneReached fires once per crossed XP milestone.
type MilestoneReached struct {
	UserID    int64
	Threshold int64
}

// BadgeUnlocked fires once per newly unlocked badge, in evaluation order.
type BadgeUnlocked struct {
	UserID  int64
	BadgeID string
}

// BadgeClaimed fires when a badge's bonus is credited.
type BadgeClaimed struct {
	UserID  int64
	BadgeID string
	Bonus   int64
}

// StreakUpdated fires when a session start changed the login streak.
type StreakUpdated struct {
	UserID  int64
	Current int
	Reset   bool
}

// GardenNotice carries a localized garden message for one user.
type GardenNotice struct {
	UserID int64
	Key    string
	Args   []any
}

// ChatMessage is published after a message was stored.
type ChatMessage struct {
	Message *model.CommunityMessage
}

// ChatDeleted is published after an admin removed one message.
type ChatDeleted struct {
	CommunityID string
	MessageID   string
}

// ChatCleared is published after an admin removed every message of a
// community.
type ChatCleared struct {
	CommunityID string
}

// PresenceChanged is published when a user connects or disconnects.
type PresenceChanged struct {
	UserID int64
	Online bool
}

// VersionBroadcast is published after a release email went out.
type VersionBroadcast struct {
	Version    string
	Recipients int
}

// PersistFailed is published when a queued write ran out of retries.
type PersistFailed struct {
	Key string
	Err error
}

func (XPChanged) Name() string        { return "xp.changed" }
func (MilestoneReached) Name() string { return "xp.milestone" }
func (BadgeUnlocked) Name() string    { return "badge.unlocked" }
func (BadgeClaimed) Name() string     { return "badge.claimed" }
func (StreakUpdated) Name() string    { return "streak.updated" }
func (GardenNotice) Name() string     { return "garden.notice" }
func (ChatMessage) Name() string      { return "chat.message" }
func (ChatDeleted) Name() string      { return "chat.deleted" }
func (ChatCleared) Name() string      { return "chat.cleared" }
func (PresenceChanged) Name() string  { return "presence.changed" }
func (VersionBroadcast) Name() string { return "version.broadcast" }
func (PersistFailed) Name() string    { return "persist.failed" }

type subscriber struct {
	id int
	fn func(Event)
}

// Bus delivers events synchronously to subscribers in subscription order.
// Subscribers that do I/O must hand the event off to their own goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	typed  map[reflect.Type][]subscriber
	all    []subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{typed: make(map[reflect.Type][]subscriber)}
}

// Publish delivers e to every matching subscriber. A panicking subscriber is
// logged and does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := append([]subscriber(nil), b.typed[reflect.TypeOf(e)]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()

	for _, s := range subs {
		deliver(s.fn, e)
	}
}

func deliver(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", e.Name()).Msg("Event subscriber panicked")
		}
	}()
	fn(e)
}

// SubscribeAll registers fn for every event. The returned function removes
// the subscription.
func (b *Bus) SubscribeAll(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Subscribe registers fn for events of type T.
func Subscribe[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	var zero T
	t := reflect.TypeOf(zero)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.typed[t] = append(b.typed[t], subscriber{id: id, fn: func(e Event) {
		if v, ok := e.(T); ok {
			fn(v)
		}
	}})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.typed[t] = remove(b.typed[t], id)
	}
}

func remove(subs []subscriber, id int) []subscriber {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
