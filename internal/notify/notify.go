// Package notify pushes progress notifications to users' Telegram chats.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
)

// DefaultBuffer is the number of notifications held while the sender is busy.
const DefaultBuffer = 256

// Sender delivers messages to a chat. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type notification struct {
	userID int64
	text   string
}

// Notifier turns bus events into chat messages. Bus delivery only formats
// and enqueues; Run does the sending.
type Notifier struct {
	sender Sender
	queue  chan notification
}

// New creates a notifier. A non-positive buffer uses DefaultBuffer.
func New(sender Sender, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{sender: sender, queue: make(chan notification, buffer)}
}

// pushedGardenKeys are the garden notices sent as a push. Watering feedback
// is answered inline.
var pushedGardenKeys = map[string]bool{
	i18n.GardenLevelUp: true,
	i18n.GardenKurma:   true,
}

// Attach subscribes the notifier to bus.
func (n *Notifier) Attach(bus *events.Bus) (detach func()) {
	unsubs := []func(){
		events.Subscribe(bus, func(e events.MilestoneReached) {
			n.enqueue(e.UserID, i18n.Sprintf(i18n.XPMilestone, e.Threshold))
		}),
		events.Subscribe(bus, func(e events.BadgeUnlocked) {
			def, ok := catalog.BadgeByID(e.BadgeID)
			if !ok {
				return
			}
			n.enqueue(e.UserID, i18n.Sprintf(i18n.BadgeUnlocked, def.Icon, def.Name)+"\n/lencana")
		}),
		events.Subscribe(bus, func(e events.GardenNotice) {
			if pushedGardenKeys[e.Key] {
				n.enqueue(e.UserID, "🌳 "+i18n.Sprintf(e.Key, e.Args...))
			}
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (n *Notifier) enqueue(userID int64, text string) {
	select {
	case n.queue <- notification{userID: userID, text: text}:
	default:
		log.Warn().Int64("user_id", userID).Msg("Notification queue full, dropping message")
	}
}

// Run sends queued notifications until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-n.queue:
			n.send(msg)
		}
	}
}

func (n *Notifier) send(msg notification) {
	if _, err := n.sender.Send(&tele.User{ID: msg.userID}, msg.text); err != nil {
		// Users who never opened a private chat cannot be messaged.
		log.Debug().Err(err).Int64("user_id", msg.userID).Msg("Failed to send notification")
	}
}
