// Package i18n holds the localised feedback strings shown to users.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	GardenOnTime       = "garden.ontime"
	GardenLate         = "garden.late"
	GardenMissed       = "garden.missed"
	GardenLevelUp      = "garden.levelup"
	GardenKurma        = "garden.species.kurma"
	GardenSegarBugar   = "garden.health.segar_bugar"
	GardenSehat        = "garden.health.sehat"
	GardenDahaga       = "garden.health.dahaga"
	GardenLayu         = "garden.health.layu"
	XPMilestone        = "xp.milestone"
	BadgeUnlocked      = "badge.unlocked"
	BadgeClaimed       = "badge.claimed"
	StreakContinued    = "streak.continued"
	PrayerTomorrow     = "prayer.tomorrow"
	CommunityWelcome   = "community.welcome"
	BroadcastSubject   = "broadcast.subject"
	AnonymousName      = "user.anonymous"
	PermissionDenied   = "error.permission_denied"
	GenericSaveFailure = "error.save_failed"
)

var (
	// Indonesian is the primary language of the application.
	Indonesian = language.Indonesian
	English    = language.English
)

var supportedTags = []language.Tag{Indonesian, English}

var tagMatcher = language.NewMatcher(supportedTags)

// Default returns the default language tag.
func Default() language.Tag {
	return Indonesian
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Parse resolves a locale or Accept-Language value to a supported tag,
// falling back to the default.
func Parse(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, idx, conf := tagMatcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// Sprintf formats key in the default language.
func Sprintf(key string, args ...any) string {
	return Printer(Default()).Sprintf(key, args...)
}
