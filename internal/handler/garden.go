package handler

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// GardenHandler handles the virtual garden.
type GardenHandler struct {
	gardens *service.GardenService
}

// NewGardenHandler creates a new GardenHandler.
func NewGardenHandler(gardens *service.GardenService) *GardenHandler {
	return &GardenHandler{gardens: gardens}
}

// HandleGarden handles the /kebun command. A shared location adds the local
// weather to the view.
func (h *GardenHandler) HandleGarden(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	ctx, cancel := requestContext()
	defer cancel()

	var at *service.Coordinates
	if m := c.Message(); m != nil && m.Location != nil {
		at = &service.Coordinates{Lat: float64(m.Location.Lat), Lon: float64(m.Location.Lng)}
	}
	view, err := h.gardens.View(ctx, p.ID, at)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(RenderGarden(view))
}

// RenderGarden formats a garden view.
func RenderGarden(v *service.GardenView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌳 %s (Level %d)\n", v.StageName, v.TreeLevel)
	fmt.Fprintf(&b, "💧 Kesehatan: %d/%d, %s\n", v.TreeHealth, garden.MaxHealth, i18n.Sprintf(v.HealthKey))
	fmt.Fprintf(&b, "🌱 Jenis: %s\n", speciesName(v.TreeType))

	env := v.Environment
	var effects []string
	if env.Rain {
		effects = append(effects, "🌧️ hujan")
	}
	if env.Butterflies {
		effects = append(effects, "🦋 kupu-kupu")
	}
	if env.Fireflies {
		effects = append(effects, "✨ kunang-kunang")
	}
	if env.GoldenFruit {
		effects = append(effects, "🍎 buah emas")
	}
	if len(effects) > 0 {
		fmt.Fprintf(&b, "🌤️ Suasana: %s\n", strings.Join(effects, ", "))
	}
	if v.Weather != nil {
		fmt.Fprintf(&b, "🌡️ Cuaca: %.0f°C\n", v.Weather.Temperature)
	}
	if len(v.UnlockedSpecies) > 1 {
		fmt.Fprintf(&b, "\nGanti jenis pohon: /pohon <%s>", strings.Join(v.UnlockedSpecies, "|"))
	}
	return b.String()
}

func speciesName(id string) string {
	for _, s := range garden.AllSpecies {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

// HandleTreeType handles the /pohon command.
// Format: /pohon <jenis>
func (h *GardenHandler) HandleTreeType(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	if len(a) != 1 {
		var names []string
		for _, s := range garden.AllSpecies {
			names = append(names, fmt.Sprintf("%s (%s): %s", s.ID, s.Name, s.Requirement))
		}
		return c.Reply("❌ Format: /pohon <jenis>\n\n" + strings.Join(names, "\n"))
	}

	ctx, cancel := requestContext()
	defer cancel()
	err := h.gardens.SetTreeType(ctx, p.ID, a[0])
	switch {
	case errors.Is(err, garden.ErrUnknownSpecies):
		return c.Reply("❌ Jenis pohon tidak dikenal")
	case errors.Is(err, garden.ErrSpeciesLocked):
		return c.Reply("🔒 Jenis pohon ini belum terbuka")
	case err != nil:
		return c.Reply(errorText(err))
	}
	return c.Reply("✅ Kebunmu sekarang ditanami " + speciesName(a[0]))
}

// HandlePrayerStatus handles the /siram command, which waters the garden
// with a prayer performed on time, late or missed.
// Format: /siram <tepat|telat|lewat>
func (h *GardenHandler) HandlePrayerStatus(c tele.Context) error {
	p := Profile(c)
	if p == nil {
		return nil
	}
	a := args(c)
	statuses := map[string]garden.PrayerStatus{
		"tepat": garden.StatusOnTime,
		"telat": garden.StatusLate,
		"lewat": garden.StatusMissed,
	}
	if len(a) != 1 {
		return c.Reply("❌ Format: /siram <tepat|telat|lewat>")
	}
	status, ok := statuses[strings.ToLower(a[0])]
	if !ok {
		return c.Reply("❌ Format: /siram <tepat|telat|lewat>")
	}

	ctx, cancel := requestContext()
	defer cancel()
	notice, health, err := h.gardens.UpdateHealth(ctx, p.ID, status)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(fmt.Sprintf("%s\n💧 Kesehatan: %d/%d",
		notice.Text(i18n.Printer(i18n.Default())), health, garden.MaxHealth))
}
