package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// TrackerHandler handles the daily worship log and badges.
type TrackerHandler struct {
	tracker *service.TrackerService
}

// NewTrackerHandler creates a new TrackerHandler.
func NewTrackerHandler(tracker *service.TrackerService) *TrackerHandler {
	return &TrackerHandler{tracker: tracker}
}

// HandleIbadah handles the /ibadah command.
// Shows today's checklist as an inline keyboard.
func (h *TrackerHandler) HandleIbadah(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	sum, err := h.tracker.Summary(ctx, p.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(ibadahHeader(sum), BuildIbadahPanel(sum.Today))
}

func ibadahHeader(sum *service.Summary) string {
	return fmt.Sprintf(
		"🕌 Ibadah hari ini: %d/%d (%d%%)\n⭐ %d XP hari ini, total %d XP (Level %d)\n\nKetuk untuk menandai atau membatalkan:",
		len(sum.Today), catalog.ActCount(), sum.Progress, sum.TodayXP, sum.TotalXP, sum.Level,
	)
}

// HandleActCallback toggles one act and redraws the checklist.
func (h *TrackerHandler) HandleActCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_, actID := callbackData(c)
	ctx, cancel := requestContext()
	defer cancel()

	out, err := h.tracker.Toggle(ctx, p.ID, actID)
	if errors.Is(err, ledger.ErrUnknownAct) {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Ibadah tidak dikenal"})
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", p.ID).Str("act", actID).Msg("Failed to toggle act")
		return c.Respond(&tele.CallbackResponse{Text: i18n.Sprintf(i18n.GenericSaveFailure)})
	}

	act, _ := catalog.Act(actID)
	text := fmt.Sprintf("✅ %s +%d XP", act.Name, out.Delta)
	if !out.Added {
		text = fmt.Sprintf("↩️ %s dibatalkan (%d XP)", act.Name, out.Delta)
	}
	_ = c.Respond(&tele.CallbackResponse{Text: text})

	return h.redraw(c, p.ID)
}

// HandleRefreshCallback redraws the checklist.
func (h *TrackerHandler) HandleRefreshCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_ = c.Respond()
	return h.redraw(c, p.ID)
}

func (h *TrackerHandler) redraw(c tele.Context, userID int64) error {
	ctx, cancel := requestContext()
	defer cancel()

	sum, err := h.tracker.Summary(ctx, userID)
	if err != nil {
		return err
	}
	if err := c.Edit(ibadahHeader(sum), BuildIbadahPanel(sum.Today)); err != nil && !errors.Is(err, tele.ErrSameMessageContent) {
		log.Debug().Err(err).Int64("user_id", userID).Msg("Failed to redraw checklist")
	}
	return nil
}

// HandleToday handles the /hari_ini command.
// Shows today's progress, the streak and the week at a glance.
func (h *TrackerHandler) HandleToday(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	sum, err := h.tracker.Summary(ctx, p.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Ringkasan %s\n━━━━━━━━━━━━━━━\n", p.Name())
	fmt.Fprintf(&b, "🕌 Progres: %d%% (%d XP hari ini)\n", sum.Progress, sum.TodayXP)
	fmt.Fprintf(&b, "⭐ Level %d, %d/100 XP menuju level berikutnya\n", sum.Level, sum.XPProgress)
	fmt.Fprintf(&b, "🔥 Streak %d hari, total login %d hari\n", sum.Streak, sum.LoginDays)
	fmt.Fprintf(&b, "🎧 Surah didengar: %d/114\n", sum.Listened)
	fmt.Fprintf(&b, "🌳 Kesehatan kebun: %d\n\n", sum.GardenHealth)
	b.WriteString("📅 7 hari terakhir:\n")
	for _, d := range sum.Weekly {
		fmt.Fprintf(&b, "%s %s %s %d%%\n", d.Day, d.Date, bar(d.Percentage), d.Percentage)
	}
	return c.Reply(b.String())
}

func bar(percent int) string {
	filled := max(0, min(10, percent/10))
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// HandleBadges handles the /lencana command.
func (h *TrackerHandler) HandleBadges(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	views, err := h.tracker.Badges(ctx, p.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	var b strings.Builder
	b.WriteString("🏅 Lencana\n━━━━━━━━━━━━━━━\n")
	unlocked := 0
	for _, v := range views {
		status := "🔒"
		switch {
		case v.Claimed:
			status = "✅"
			unlocked++
		case v.Unlocked:
			status = "🎁"
			unlocked++
		}
		fmt.Fprintf(&b, "%s %s %s: %s\n", status, v.Icon, v.Name, v.Description)
	}
	fmt.Fprintf(&b, "\nTerbuka %d dari %d", unlocked, len(views))

	if markup := BuildBadgePanel(views); markup != nil {
		return c.Reply(b.String(), markup)
	}
	return c.Reply(b.String())
}

// HandleClaimCallback credits a badge bonus.
func (h *TrackerHandler) HandleClaimCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_, badgeID := callbackData(c)
	ctx, cancel := requestContext()
	defer cancel()

	out, err := h.tracker.ClaimBadge(ctx, p.ID, badgeID)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: errorText(err), ShowAlert: true})
	}

	def, _ := catalog.BadgeByID(out.BadgeID)
	_ = c.Respond(&tele.CallbackResponse{Text: i18n.Sprintf(i18n.BadgeClaimed, def.Name, out.Bonus)})

	views, err := h.tracker.Badges(ctx, p.ID)
	if err != nil {
		return nil
	}
	markup := BuildBadgePanel(views)
	if markup == nil {
		markup = &tele.ReplyMarkup{}
	}
	_, err = c.Bot().EditReplyMarkup(c.Message(), markup)
	return err
}
