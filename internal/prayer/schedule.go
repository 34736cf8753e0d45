// Package prayer fetches daily prayer timetables and computes the countdown
// to the next prayer.
package prayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/theme"
)

// Placeholder is shown when the next event has no known time.
const Placeholder = "--:--:--"

var (
	ErrNoSchedule  = errors.New("no prayer schedule")
	ErrBadClock    = errors.New("invalid clock time")
	ErrCityMissing = errors.New("no city selected")
)

// Schedule is one day of the timetable for a city, as served by the API.
type Schedule struct {
	Tanggal string `json:"tanggal"`
	Date    string `json:"date"`
	Imsak   string `json:"imsak"`
	Subuh   string `json:"subuh"`
	Terbit  string `json:"terbit"`
	Dhuha   string `json:"dhuha"`
	Dzuhur  string `json:"dzuhur"`
	Ashar   string `json:"ashar"`
	Maghrib string `json:"maghrib"`
	Isya    string `json:"isya"`
}

// Event is one named time of day.
type Event struct {
	Name string `json:"name"`
	Time string `json:"time"`
	Icon string `json:"icon"`
}

// Events lists every event of the day in display order.
func (s *Schedule) Events() []Event {
	return []Event{
		{"Imsak", s.Imsak, "🌙"},
		{"Subuh", s.Subuh, "🌅"},
		{"Terbit", s.Terbit, "☀️"},
		{"Dhuha", s.Dhuha, "🌤️"},
		{"Dzuhur", s.Dzuhur, "☀️"},
		{"Ashar", s.Ashar, "🌇"},
		{"Maghrib", s.Maghrib, "🌆"},
		{"Isya", s.Isya, "🌃"},
	}
}

// countdownEvents are the events the countdown considers.
var countdownEvents = map[string]bool{
	"Imsak": true, "Subuh": true, "Dzuhur": true,
	"Ashar": true, "Maghrib": true, "Isya": true,
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return hh*60 + mm, nil
}

func formatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatRemaining renders d as HH:MM:SS.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// Next is the upcoming event and the time left until it.
type Next struct {
	Name      string        `json:"name"`
	Time      string        `json:"time"`
	Countdown string        `json:"countdown"`
	Remaining time.Duration `json:"remaining"`
	Tomorrow  bool          `json:"tomorrow"`
}

// Countdown finds the first countdown event whose minute of day is strictly
// after now's. An event at the current minute counts as passed. When every
// event has passed the result is tomorrow's Subuh with an unknown countdown.
func Countdown(s *Schedule, now time.Time) (Next, error) {
	if s == nil {
		return Next{}, ErrNoSchedule
	}
	current := now.Hour()*60 + now.Minute()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, ev := range s.Events() {
		if !countdownEvents[ev.Name] {
			continue
		}
		at, err := ParseClock(ev.Time)
		if err != nil {
			return Next{}, err
		}
		if at > current {
			left := midnight.Add(time.Duration(at) * time.Minute).Sub(now)
			return Next{
				Name:      ev.Name,
				Time:      ev.Time,
				Countdown: FormatRemaining(left),
				Remaining: left,
			}, nil
		}
	}

	return Next{
		Name:      i18n.Sprintf(i18n.PrayerTomorrow),
		Time:      s.Subuh,
		Countdown: Placeholder,
		Tomorrow:  true,
	}, nil
}

// Adjust returns a copy with every event shifted by minutes and sunrise
// shifted the other way (ihtiyati).
func (s *Schedule) Adjust(minutes int) (*Schedule, error) {
	out := *s
	if minutes == 0 {
		return &out, nil
	}
	fields := []*string{&out.Imsak, &out.Subuh, &out.Dhuha, &out.Dzuhur, &out.Ashar, &out.Maghrib, &out.Isya}
	for _, f := range fields {
		m, err := ParseClock(*f)
		if err != nil {
			return nil, err
		}
		*f = formatClock(m + minutes)
	}
	m, err := ParseClock(out.Terbit)
	if err != nil {
		return nil, err
	}
	out.Terbit = formatClock(m - minutes)
	return &out, nil
}

// ThemeTimes converts the schedule to theme boundaries.
func (s *Schedule) ThemeTimes() (*theme.Times, error) {
	var t theme.Times
	pairs := []struct {
		dst *int
		src string
	}{
		{&t.Fajr, s.Subuh},
		{&t.Sunrise, s.Terbit},
		{&t.Dhuhr, s.Dzuhur},
		{&t.Asr, s.Ashar},
		{&t.Maghrib, s.Maghrib},
		{&t.Isha, s.Isya},
	}
	for _, p := range pairs {
		m, err := ParseClock(p.src)
		if err != nil {
			return nil, err
		}
		*p.dst = m
	}
	return &t, nil
}

// City is a location known to the timetable API.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PopularCities is a shortlist offered before searching.
var PopularCities = []City{
	{"1301", "KOTA JAKARTA"},
	{"1501", "KOTA BANDUNG"},
	{"1201", "KOTA SURABAYA"},
	{"2401", "KOTA SEMARANG"},
	{"1101", "KOTA MEDAN"},
	{"2101", "KOTA MAKASSAR"},
	{"1801", "KOTA YOGYAKARTA"},
	{"1601", "KOTA PALEMBANG"},
	{"2501", "KOTA DENPASAR"},
	{"1401", "KOTA PADANG"},
	{"3201", "KOTA MANADO"},
	{"3101", "KOTA PONTIANAK"},
	{"3301", "KOTA BANJARMASIN"},
	{"1901", "KOTA LAMPUNG"},
	{"0101", "KOTA BANDA ACEH"},
}
