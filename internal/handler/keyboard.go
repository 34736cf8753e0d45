package handler

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/audio"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// Callback names of inline buttons.
const (
	CallbackAct     = "act"     // act|subuh
	CallbackClaim   = "claim"   // claim|al_hafiz_bronze
	CallbackCity    = "city"    // city|1301|KOTA JAKARTA
	CallbackJoin    = "join"    // join|general
	CallbackAudio   = "audio"   // audio|next
	CallbackRefresh = "refresh" // refresh|ibadah
)

// Audio button actions.
const (
	AudioPrev   = "prev"
	AudioToggle = "toggle"
	AudioNext   = "next"
	AudioStop   = "stop"
	AudioMode   = "mode"
)

// BuildIbadahPanel lists every ritual act, two per row, with today's checks.
func BuildIbadahPanel(today []string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	done := make(map[string]bool, len(today))
	for _, id := range today {
		done[id] = true
	}

	acts := catalog.Acts()
	var rows []tele.Row
	var currentRow []tele.Btn
	for i, act := range acts {
		mark := "⬜"
		if done[act.ID] {
			mark = "✅"
		}
		currentRow = append(currentRow, markup.Data(
			fmt.Sprintf("%s %s (+%d)", mark, act.Name, act.XP),
			CallbackAct, act.ID,
		))
		if len(currentRow) == 2 || i == len(acts)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}
	rows = append(rows, markup.Row(markup.Data("🔄 Muat ulang", CallbackRefresh, "ibadah")))

	markup.Inline(rows...)
	return markup
}

// BuildBadgePanel offers a claim button for every unlocked, unclaimed badge.
// It returns nil when there is nothing to claim.
func BuildBadgePanel(views []service.BadgeView) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, v := range views {
		if !v.Unlocked || v.Claimed {
			continue
		}
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("🎁 Klaim %s %s", v.Icon, v.Name),
			CallbackClaim, v.ID,
		)))
	}
	if len(rows) == 0 {
		return nil
	}
	markup.Inline(rows...)
	return markup
}

// BuildCityPanel lists search results, one city per row.
func BuildCityPanel(cities []prayer.City) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(cities))
	for _, city := range cities {
		rows = append(rows, markup.Row(markup.Data("📍 "+city.Name, CallbackCity, city.ID, city.Name)))
	}
	markup.Inline(rows...)
	return markup
}

// BuildCommunityPanel offers a join button for every public community the
// user is not in yet.
func BuildCommunityPanel(list []*model.Community, userID int64) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, c := range list {
		if c.IsPrivate || c.HasMember(userID) {
			continue
		}
		rows = append(rows, markup.Row(markup.Data("➕ Gabung "+c.Name, CallbackJoin, c.ID)))
	}
	if len(rows) == 0 {
		return nil
	}
	markup.Inline(rows...)
	return markup
}

// BuildAudioPanel renders the player controls.
func BuildAudioPanel(s audio.Snapshot) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	toggle := "⏸"
	if s.State != audio.Playing {
		toggle = "▶️"
	}
	markup.Inline(
		markup.Row(
			markup.Data("⏮", CallbackAudio, AudioPrev),
			markup.Data(toggle, CallbackAudio, AudioToggle),
			markup.Data("⏭", CallbackAudio, AudioNext),
			markup.Data("⏹", CallbackAudio, AudioStop),
		),
		markup.Row(
			markup.Data(modeLabel(audio.ModeSingle, s.Mode), CallbackAudio, AudioMode, string(audio.ModeSingle)),
			markup.Data(modeLabel(audio.ModeAyat, s.Mode), CallbackAudio, AudioMode, string(audio.ModeAyat)),
			markup.Data(modeLabel(audio.ModeSurah, s.Mode), CallbackAudio, AudioMode, string(audio.ModeSurah)),
			markup.Data(modeLabel(audio.ModeContinuous, s.Mode), CallbackAudio, AudioMode, string(audio.ModeContinuous)),
		),
	)
	return markup
}

var modeNames = map[audio.Mode]string{
	audio.ModeSingle:     "Sekali",
	audio.ModeAyat:       "🔂 Ayat",
	audio.ModeSurah:      "🔁 Surah",
	audio.ModeContinuous: "➡️ Lanjut",
}

func modeLabel(m, current audio.Mode) string {
	if m == current {
		return "• " + modeNames[m]
	}
	return modeNames[m]
}
