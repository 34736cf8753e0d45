// Package theme maps the time of day to a prayer period and its colors.
package theme

// Period names.
const (
	Subuh   = "subuh"
	Dhuha   = "dhuha"
	Dzuhur  = "dzuhur"
	Ashar   = "ashar"
	Maghrib = "maghrib"
	Isya    = "isya"
)

// Theme is the color set of a period.
type Theme struct {
	Period       string `json:"period"`
	Name         string `json:"name"`
	Accent       string `json:"accent"`
	AccentLight  string `json:"accent_light"`
	GradientFrom string `json:"gradient_from"`
	GradientTo   string `json:"gradient_to"`
}

var themes = map[string]Theme{
	Subuh:   {Subuh, "Subuh", "#3b82f6", "#93c5fd", "#1e3a5f", "#3b82f6"},
	Dhuha:   {Dhuha, "Dhuha", "#f59e0b", "#fcd34d", "#92400e", "#f59e0b"},
	Dzuhur:  {Dzuhur, "Dzuhur", "#22c55e", "#86efac", "#14532d", "#22c55e"},
	Ashar:   {Ashar, "Ashar", "#f97316", "#fdba74", "#7c2d12", "#f97316"},
	Maghrib: {Maghrib, "Maghrib", "#a855f7", "#d8b4fe", "#581c87", "#a855f7"},
	Isya:    {Isya, "Isya", "#6366f1", "#a5b4fc", "#1e1b4b", "#6366f1"},
}

// Times holds the six boundary events as minutes after midnight.
type Times struct {
	Fajr    int
	Sunrise int
	Dhuhr   int
	Asr     int
	Maghrib int
	Isha    int
}

// PeriodAt returns the period containing minute. Intervals are half open and
// anything outside [Fajr, Isha) falls into isya. A nil timetable yields the
// midday period.
func PeriodAt(t *Times, minute int) string {
	if t == nil {
		return Dzuhur
	}
	switch {
	case minute >= t.Fajr && minute < t.Sunrise:
		return Subuh
	case minute >= t.Sunrise && minute < t.Dhuhr:
		return Dhuha
	case minute >= t.Dhuhr && minute < t.Asr:
		return Dzuhur
	case minute >= t.Asr && minute < t.Maghrib:
		return Ashar
	case minute >= t.Maghrib && minute < t.Isha:
		return Maghrib
	default:
		return Isya
	}
}

// ForPeriod returns the theme of a period, defaulting to dzuhur.
func ForPeriod(period string) Theme {
	if th, ok := themes[period]; ok {
		return th
	}
	return themes[Dzuhur]
}

// At returns the theme for the given minute of day.
func At(t *Times, minute int) Theme {
	return ForPeriod(PeriodAt(t, minute))
}
