package handler

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// PrayerHandler handles prayer times and the city picker.
type PrayerHandler struct {
	prayers *service.PrayerService
}

// NewPrayerHandler creates a new PrayerHandler.
func NewPrayerHandler(prayers *service.PrayerService) *PrayerHandler {
	return &PrayerHandler{prayers: prayers}
}

// HandleSchedule handles the /sholat command.
func (h *PrayerHandler) HandleSchedule(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	today, err := h.prayers.Today(ctx, p.ID)
	if errors.Is(err, prayer.ErrCityMissing) {
		cities, _ := h.prayers.SearchCities(ctx, "")
		return c.Reply("📍 Pilih kota terlebih dahulu, atau cari dengan /kota <nama>", BuildCityPanel(cities))
	}
	if err != nil {
		return c.Reply("❌ Jadwal sholat tidak tersedia, coba lagi nanti")
	}
	return c.Reply(RenderSchedule(today))
}

// RenderSchedule formats today's timetable with the countdown.
func RenderSchedule(t *service.PrayerToday) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🕌 Jadwal Sholat %s\n", t.City.Name)
	if t.Schedule.Tanggal != "" {
		fmt.Fprintf(&b, "📅 %s\n", t.Schedule.Tanggal)
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, ev := range t.Schedule.Events() {
		marker := "  "
		if ev.Name == t.Next.Name && !t.Next.Tomorrow {
			marker = "▶️"
		}
		fmt.Fprintf(&b, "%s %-8s %s\n", marker, ev.Name, ev.Time)
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "⏳ %s pukul %s, %s lagi\n", t.Next.Name, t.Next.Time, t.Next.Countdown)
	fmt.Fprintf(&b, "🎨 Waktu %s", t.Theme.Name)
	return b.String()
}

// HandleCity handles the /kota command.
// Format: /kota <nama>. Without a name the popular cities are offered.
func (h *PrayerHandler) HandleCity(c tele.Context) error {
	if Profile(c) == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	cities, err := h.prayers.SearchCities(ctx, c.Message().Payload)
	if err != nil {
		return c.Reply("❌ Pencarian kota gagal, coba lagi nanti")
	}
	if len(cities) == 0 {
		return c.Reply("🔍 Kota tidak ditemukan")
	}
	if len(cities) > 10 {
		cities = cities[:10]
	}
	return c.Reply("📍 Pilih kota:", BuildCityPanel(cities))
}

// HandleCityCallback stores the picked city.
func (h *PrayerHandler) HandleCityCallback(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	_, payload := callbackData(c)
	id, name, _ := strings.Cut(payload, "|")

	ctx, cancel := requestContext()
	defer cancel()
	if err := h.prayers.SelectCity(ctx, p.ID, prayer.City{ID: id, Name: name}); err != nil {
		return c.Respond(&tele.CallbackResponse{Text: errorText(err)})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "✅ " + name})

	today, err := h.prayers.Today(ctx, p.ID)
	if err != nil {
		return c.Edit("✅ Kota dipilih: " + name)
	}
	return c.Edit(RenderSchedule(today))
}
