// Package ledger implements the per-day log of completed ritual acts and the
// XP arithmetic derived from it.
package ledger

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
)

// DateLayout is the format of date keys.
const DateLayout = "2006-01-02"

// ErrUnknownAct is returned when an act id is not in the catalog.
var ErrUnknownAct = errors.New("unknown ritual act")

// DateKey returns the calendar date of t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a date key in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, key, loc)
}

// DaysBetween returns the number of calendar days from a to b. Both keys are
// interpreted as civil dates so DST shifts do not matter.
func DaysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DateLayout, a)
	if err != nil {
		return 0, err
	}
	tb, err := time.Parse(DateLayout, b)
	if err != nil {
		return 0, err
	}
	return int(math.Round(tb.Sub(ta).Hours() / 24)), nil
}

// DailyLog maps a date key to the act ids completed that day.
type DailyLog map[string][]string

// Day returns the acts completed on the given date.
func (l DailyLog) Day(key string) []string {
	return l[key]
}

// Contains reports whether act id was completed on the given date.
func (l DailyLog) Contains(key, id string) bool {
	for _, a := range l[key] {
		if a == id {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every id was completed on the given date.
func (l DailyLog) ContainsAll(key string, ids []string) bool {
	for _, id := range ids {
		if !l.Contains(key, id) {
			return false
		}
	}
	return true
}

// Count returns the lifetime number of completions of an act.
func (l DailyLog) Count(id string) int {
	n := 0
	for _, day := range l {
		for _, a := range day {
			if a == id {
				n++
			}
		}
	}
	return n
}

// Counts returns lifetime completions per act id.
func (l DailyLog) Counts() map[string]int {
	out := make(map[string]int)
	for _, day := range l {
		for _, a := range day {
			out[a]++
		}
	}
	return out
}

// Dates returns the recorded date keys in ascending order.
func (l DailyLog) Dates() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the log.
func (l DailyLog) Clone() DailyLog {
	out := make(DailyLog, len(l))
	for k, v := range l {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Level returns the level reached with xp. It is never stored as authoritative.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/100) + 1
}

// Progress returns the share of the catalog completed in acts, as a rounded
// percentage.
func Progress(acts []string) int {
	return int(math.Round(float64(len(acts)) / float64(catalog.ActCount()) * 100))
}

// DayXP returns the XP earned by the acts of one day.
func DayXP(acts []string) int64 {
	var sum int64
	for _, id := range acts {
		if a, ok := catalog.Act(id); ok {
			sum += a.XP
		}
	}
	return sum
}

// CrossedMilestones returns the thresholds passed going from oldXP to newXP.
// Only upward crossings count.
func CrossedMilestones(oldXP, newXP int64, thresholds []int64) []int64 {
	var out []int64
	for _, m := range thresholds {
		if oldXP < m && newXP >= m {
			out = append(out, m)
		}
	}
	return out
}

// Tracker is the mutable ledger state of one user.
type Tracker struct {
	Log     DailyLog
	TotalXP int64
}

// ToggleResult describes the effect of a toggle.
type ToggleResult struct {
	ActID      string
	Added      bool
	OldXP      int64
	NewXP      int64
	Delta      int64
	Level      int
	Progress   int
	Milestones []int64
}

// Toggle flips act id in the log of date key. Adding grants the act's XP and
// removing takes it back, never going below zero.
func (t *Tracker) Toggle(key, id string, milestones []int64) (ToggleResult, error) {
	act, ok := catalog.Act(id)
	if !ok {
		return ToggleResult{}, ErrUnknownAct
	}
	if t.Log == nil {
		t.Log = DailyLog{}
	}

	res := ToggleResult{ActID: id, OldXP: t.TotalXP}

	day := t.Log[key]
	idx := -1
	for i, a := range day {
		if a == id {
			idx = i
			break
		}
	}

	if idx >= 0 {
		t.Log[key] = append(day[:idx:idx], day[idx+1:]...)
		t.TotalXP -= act.XP
		if t.TotalXP < 0 {
			t.TotalXP = 0
		}
	} else {
		t.Log[key] = append(day, id)
		t.TotalXP += act.XP
		res.Added = true
	}

	res.NewXP = t.TotalXP
	res.Delta = res.NewXP - res.OldXP
	res.Level = Level(t.TotalXP)
	res.Progress = Progress(t.Log[key])
	res.Milestones = CrossedMilestones(res.OldXP, res.NewXP, milestones)
	return res, nil
}

// Grant adds a bonus to the XP total and reports the milestones crossed.
func (t *Tracker) Grant(amount int64, milestones []int64) (oldXP, newXP int64, crossed []int64) {
	oldXP = t.TotalXP
	t.TotalXP += amount
	if t.TotalXP < 0 {
		t.TotalXP = 0
	}
	return oldXP, t.TotalXP, CrossedMilestones(oldXP, t.TotalXP, milestones)
}

// DayStat is one entry of the weekly series.
type DayStat struct {
	Day        string `json:"day"`
	Date       string `json:"date"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

var weekdayShort = [...]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}

// Weekly returns the seven days ending today, oldest first.
func (l DailyLog) Weekly(today time.Time) []DayStat {
	out := make([]DayStat, 0, 7)
	for i := 6; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		key := DateKey(d)
		acts := l[key]
		out = append(out, DayStat{
			Day:        weekdayShort[d.Weekday()],
			Date:       key,
			Count:      len(acts),
			Percentage: Progress(acts),
		})
	}
	return out
}
