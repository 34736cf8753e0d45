// Package garden simulates the virtual tree that reflects a user's worship
// discipline.
package garden

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/text/message"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Health bounds.
const (
	MinHealth = 0
	MaxHealth = 100
)

// Discipline penalties.
const (
	PenaltyPerMissedDay  = 80
	PenaltyIncompleteDay = 10
)

// Species identifiers.
const (
	SpeciesBasic  = "basic"
	SpeciesKurma  = "kurma"
	SpeciesMelati = "melati"
	SpeciesZaitun = "zaitun"
)

// KurmaStreak is the login streak that unlocks the date palm.
const KurmaStreak = 30

var (
	ErrUnknownStatus  = errors.New("unknown prayer status")
	ErrSpeciesLocked  = errors.New("species not unlocked")
	ErrUnknownSpecies = errors.New("unknown species")
)

// PrayerStatus is how a prayer was performed.
type PrayerStatus string

const (
	StatusOnTime PrayerStatus = "ontime"
	StatusLate   PrayerStatus = "late"
	StatusMissed PrayerStatus = "missed"
)

var statusDelta = map[PrayerStatus]struct {
	delta int
	key   string
}{
	StatusOnTime: {20, i18n.GardenOnTime},
	StatusLate:   {5, i18n.GardenLate},
	StatusMissed: {-30, i18n.GardenMissed},
}

// Stage is one growth level of the tree.
type Stage struct {
	Level int
	Name  string
	MinXP int64
}

// Stages lists the growth levels in ascending order.
var Stages = []Stage{
	{1, "Benih", 0},
	{2, "Tunas", 200},
	{3, "Pohon Muda", 500},
	{4, "Pohon Dewasa", 1000},
}

// Species is a tree type the user may plant.
type Species struct {
	ID          string
	Name        string
	Requirement string
}

// AllSpecies lists every tree type.
var AllSpecies = []Species{
	{SpeciesBasic, "Tanaman Dasar", "Tidak ada"},
	{SpeciesKurma, "Pohon Kurma", "30 hari login berturut-turut"},
	{SpeciesMelati, "Bunga Melati", "7 Hari Dzikir Pagi Petang"},
	{SpeciesZaitun, "Pohon Zaitun", "Rutin Tilawah"},
}

// Notice is a localisable message produced by a garden transition.
type Notice struct {
	Key  string
	Args []any
}

// Text renders the notice with p.
func (n Notice) Text(p *message.Printer) string {
	return p.Sprintf(n.Key, n.Args...)
}

func clamp(h int) int {
	return max(MinHealth, min(MaxHealth, h))
}

// StageName returns the display name of a tree level.
func StageName(level int) string {
	for _, s := range Stages {
		if s.Level == level {
			return s.Name
		}
	}
	return "Tanaman Misterius"
}

// StageFor returns the level earned by xp.
func StageFor(xp int64) int {
	level := 1
	for _, s := range Stages {
		if xp >= s.MinXP {
			level = s.Level
		}
	}
	return level
}

// HealthKey returns the i18n key of the health label.
func HealthKey(health int) string {
	switch {
	case health > 80:
		return i18n.GardenSegarBugar
	case health > 50:
		return i18n.GardenSehat
	case health > 20:
		return i18n.GardenDahaga
	default:
		return i18n.GardenLayu
	}
}

// DisciplineResult describes a maintenance pass.
type DisciplineResult struct {
	Applied      bool
	Penalty      int
	MissedDays   int
	Incomplete   bool
	HealthBefore int
}

// MonitorDiscipline applies the once-per-day maintenance penalty. The first
// ever pass only stamps today. Later passes on the same day are no-ops.
func MonitorDiscipline(g model.GardenState, log ledger.DailyLog, today string) (model.GardenState, DisciplineResult, error) {
	res := DisciplineResult{HealthBefore: g.TreeHealth}
	last := g.LastMaintenanceDate
	if last == today {
		return g, res, nil
	}

	g = g.Clone()
	if last == "" {
		g.LastMaintenanceDate = today
		res.Applied = true
		return g, res, nil
	}

	days, err := ledger.DaysBetween(last, today)
	if err != nil {
		return g, res, fmt.Errorf("failed to compare maintenance dates: %w", err)
	}
	if days > 1 {
		res.MissedDays = days - 1
		res.Penalty += res.MissedDays * PenaltyPerMissedDay
	}
	if !log.ContainsAll(last, catalog.MandatoryPrayers) {
		res.Incomplete = true
		res.Penalty += PenaltyIncompleteDay
	}

	g.TreeHealth = clamp(g.TreeHealth - res.Penalty)
	g.LastMaintenanceDate = today
	res.Applied = true
	return g, res, nil
}

// UpdateHealth applies the delta for a prayer status.
func UpdateHealth(g model.GardenState, status PrayerStatus) (model.GardenState, Notice, error) {
	d, ok := statusDelta[status]
	if !ok {
		return g, Notice{}, ErrUnknownStatus
	}
	g = g.Clone()
	g.TreeHealth = clamp(g.TreeHealth + d.delta)
	return g, Notice{Key: d.key}, nil
}

// CheckLevelUp raises the tree level to the stage earned by xp. The level
// never decreases.
func CheckLevelUp(g model.GardenState, xp int64) (model.GardenState, *Notice) {
	next := StageFor(xp)
	if next <= g.TreeLevel {
		return g, nil
	}
	g = g.Clone()
	g.TreeLevel = next
	return g, &Notice{Key: i18n.GardenLevelUp, Args: []any{StageName(next)}}
}

// CheckSpeciesUnlock adds species earned by the current streak.
func CheckSpeciesUnlock(g model.GardenState, streak int) (model.GardenState, *Notice) {
	if streak < KurmaStreak || slices.Contains(g.UnlockedSpecies, SpeciesKurma) {
		return g, nil
	}
	g = g.Clone()
	g.UnlockedSpecies = append(g.UnlockedSpecies, SpeciesKurma)
	return g, &Notice{Key: i18n.GardenKurma}
}

// SetTreeType switches the planted species.
func SetTreeType(g model.GardenState, species string) (model.GardenState, error) {
	if !slices.ContainsFunc(AllSpecies, func(s Species) bool { return s.ID == species }) {
		return g, ErrUnknownSpecies
	}
	if !slices.Contains(g.UnlockedSpecies, species) {
		return g, ErrSpeciesLocked
	}
	g = g.Clone()
	g.TreeType = species
	return g, nil
}

// EnvironmentInput is what the ambient flags are derived from.
type EnvironmentInput struct {
	Today    []string
	Streak   int
	Hour     int
	Progress int
	// Raining overrides the streak rule when real weather is known.
	Raining *bool
}

// EvaluateEnvironment recomputes the ambient flags.
func EvaluateEnvironment(in EnvironmentInput) model.Environment {
	env := model.Environment{
		Rain:        in.Streak >= 3,
		Butterflies: slices.Contains(in.Today, catalog.ActSedekah),
		Fireflies:   (in.Hour >= 19 || in.Hour <= 4) && slices.Contains(in.Today, catalog.ActTahajjud),
		GoldenFruit: in.Progress >= 100,
	}
	if in.Raining != nil {
		env.Rain = *in.Raining
	}
	return env
}

// PrayerHealth is the profile's garden_health figure: the share of today's
// mandatory prayers completed, as a percentage.
func PrayerHealth(today []string) int {
	n := 0
	for _, id := range today {
		if catalog.IsMandatoryPrayer(id) {
			n++
		}
	}
	return n * 100 / len(catalog.MandatoryPrayers)
}
