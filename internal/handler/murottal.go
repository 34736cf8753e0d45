package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/audio"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// Sender delivers messages to a chat. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// ChatPlayer renders tracks as audio messages in one chat. Telegram clients
// own the actual playback, so pausing and stopping only change what the
// controller reports.
type ChatPlayer struct {
	sender Sender
	chat   tele.Recipient
}

// NewChatPlayer creates a player that posts into chat.
func NewChatPlayer(sender Sender, chat tele.Recipient) *ChatPlayer {
	return &ChatPlayer{sender: sender, chat: chat}
}

// Play sends the recitation of one ayat.
func (p *ChatPlayer) Play(_ context.Context, t audio.Track) error {
	if t.URL == "" {
		return fmt.Errorf("no recitation for qari %s", t.Qari)
	}
	performer, _ := audio.QariName(t.Qari)
	_, err := p.sender.Send(p.chat, &tele.Audio{
		File:      tele.FromURL(t.URL),
		Title:     t.Title(),
		Performer: performer,
		Caption:   fmt.Sprintf("%s\n\n%s", t.Ayat.Arabic, t.Ayat.Text),
	})
	return err
}

func (p *ChatPlayer) Pause() error  { return nil }
func (p *ChatPlayer) Resume() error { return nil }
func (p *ChatPlayer) Stop() error   { return nil }

// AudioHandler drives one playback controller per user.
type AudioHandler struct {
	source  audio.Source
	tracker *service.TrackerService
	sender  Sender

	mu          sync.Mutex
	controllers map[int64]*audio.Controller
}

// NewAudioHandler creates a new AudioHandler.
func NewAudioHandler(source audio.Source, tracker *service.TrackerService, sender Sender) *AudioHandler {
	return &AudioHandler{
		source:      source,
		tracker:     tracker,
		sender:      sender,
		controllers: make(map[int64]*audio.Controller),
	}
}

// Controller returns the user's controller, creating it on first use.
// Playback always goes to the user's private chat.
func (h *AudioHandler) Controller(userID int64) *audio.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.controllers[userID]; ok {
		return c
	}
	c := audio.NewController(
		NewChatPlayer(h.sender, &tele.User{ID: userID}),
		h.source,
		func(surah int) { h.listened(userID, surah) },
	)
	h.controllers[userID] = c
	return c
}

func (h *AudioHandler) listened(userID int64, surah int) {
	ctx, cancel := requestContext()
	defer cancel()
	if _, _, err := h.tracker.MarkListened(ctx, userID, surah); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Int("surah", surah).Msg("Failed to record listened surah")
	}
}

// HandleMurottal handles the /murottal command.
// Format: /murottal <surah> [ayat]
func (h *AudioHandler) HandleMurottal(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) == 0 || len(a) > 2 {
		return c.Reply(fmt.Sprintf("❌ Format: /murottal <surah 1-%d> [ayat]", audio.LastSurah))
	}
	number, err := strconv.Atoi(a[0])
	if err != nil || number < 1 || number > audio.LastSurah {
		return c.Reply(fmt.Sprintf("❌ Nomor surah harus 1-%d", audio.LastSurah))
	}
	start := 0
	if len(a) == 2 {
		if n, err := strconv.Atoi(a[1]); err == nil && n > 0 {
			start = n - 1
		}
	}

	ctx, cancel := requestContext()
	defer cancel()
	surah, err := h.source.Surah(ctx, number)
	if err != nil {
		log.Warn().Err(err).Int("surah", number).Msg("Failed to load surah")
		return c.Reply("❌ Surah tidak dapat dimuat, coba lagi nanti")
	}

	ctrl := h.Controller(p.ID)
	if err := ctrl.PlaySurah(ctx, surah, start); err != nil {
		log.Warn().Err(err).Int64("user_id", p.ID).Msg("Failed to start playback")
		return c.Reply("❌ Audio tidak dapat diputar")
	}
	return c.Reply(renderPlayer(ctrl.Snapshot()), BuildAudioPanel(ctrl.Snapshot()))
}

// HandleQari handles the /qari command.
// Format: /qari <id>
func (h *AudioHandler) HandleQari(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) != 1 {
		msg := "🎙️ Pilih qari dengan /qari <id>:\n"
		for _, q := range audio.Qaris {
			msg += fmt.Sprintf("%s - %s\n", q.ID, q.Name)
		}
		return c.Reply(msg)
	}

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.Controller(p.ID).SetQari(ctx, a[0]); err != nil {
		if errors.Is(err, audio.ErrUnknownQari) {
			return c.Reply("❌ Qari tidak dikenal")
		}
		return c.Reply("❌ Audio tidak dapat diputar")
	}
	name, _ := audio.QariName(a[0])
	return c.Reply("🎙️ Qari: " + name)
}

// HandleAudioCallback handles the player buttons.
func (h *AudioHandler) HandleAudioCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_, payload := callbackData(c)
	ctrl := h.Controller(p.ID)

	ctx, cancel := requestContext()
	defer cancel()

	var err error
	switch action, arg, _ := strings.Cut(payload, "|"); action {
	case AudioPrev:
		err = ctrl.Prev(ctx)
	case AudioNext:
		err = ctrl.Next(ctx)
	case AudioToggle:
		err = ctrl.Toggle()
	case AudioStop:
		err = ctrl.Stop()
	case AudioMode:
		err = ctrl.SetMode(audio.Mode(arg))
	}

	if errors.Is(err, audio.ErrNothingLoaded) {
		return c.Respond(&tele.CallbackResponse{Text: "Belum ada surah, kirim /murottal <surah>"})
	}
	if err != nil {
		log.Warn().Err(err).Int64("user_id", p.ID).Msg("Player action failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Audio tidak dapat diputar"})
	}

	_ = c.Respond()
	snap := ctrl.Snapshot()
	return c.Edit(renderPlayer(snap), BuildAudioPanel(snap))
}

func renderPlayer(s audio.Snapshot) string {
	qari, _ := audio.QariName(s.Qari)
	if s.State == audio.Stopped || s.Surah == 0 {
		return fmt.Sprintf("🎧 Murottal\n⏹ Berhenti\n🎙️ %s", qari)
	}
	state := "▶️ Diputar"
	if s.State == audio.Paused {
		state = "⏸ Dijeda"
	}
	return fmt.Sprintf("🎧 QS. %s (%d)\n%s, ayat %d/%d\n🎙️ %s",
		s.SurahName, s.Surah, state, s.Index+1, s.Total, qari)
}
