// Package badge decides which achievements a user has earned and handles
// claiming them.
package badge

import (
	"errors"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// DefaultClaimBonus is the XP granted when a badge is claimed.
const DefaultClaimBonus int64 = 50

// Errors returned by Claim.
var (
	ErrNotUnlocked    = errors.New("badge not unlocked")
	ErrAlreadyClaimed = errors.New("badge already claimed")
)

// Input is everything the rules look at.
type Input struct {
	Counts         map[string]int
	Streak         int
	Level          int
	MinutesActive  int
	ListenedSurahs int
}

// Rule is a static threshold predicate for one badge.
type Rule struct {
	BadgeID string
	Met     func(Input) bool
}

// Rules lists the unlock predicates in evaluation order.
var Rules = []Rule{
	{catalog.BadgeAlHafizBronze, func(in Input) bool { return in.Counts[catalog.ActTilawah] >= 3 }},
	{catalog.BadgeAlHafizSilver, func(in Input) bool { return in.Counts[catalog.ActTilawah] >= 15 }},
	{catalog.BadgeAlHafizGold, func(in Input) bool { return in.Streak >= 30 }},
	{catalog.BadgeGuardianBronze, func(in Input) bool {
		return in.Counts[catalog.ActSubuh]+in.Counts[catalog.ActDzuhur] >= 10
	}},
	{catalog.BadgeGuardianSilver, func(in Input) bool { return in.Counts[catalog.ActTahajjud] >= 3 }},
	{catalog.BadgePhilanthropistBronze, func(in Input) bool { return in.Counts[catalog.ActSedekah] >= 5 }},
	{catalog.BadgeScholarSilver, func(in Input) bool { return in.Level >= 10 }},
	{catalog.BadgeScholarGold, func(in Input) bool { return in.Level >= 20 }},
	{catalog.BadgePecintaKebun, func(in Input) bool { return in.MinutesActive >= 100 }},
	{catalog.BadgePendengarSetia, func(in Input) bool { return in.ListenedSurahs >= 10 }},
	{catalog.BadgePecintaQuran, func(in Input) bool { return in.ListenedSurahs >= 35 }},
	{catalog.BadgeKhatamSami, func(in Input) bool { return in.ListenedSurahs >= 114 }},
}

// Evaluate returns the badges that are eligible but not yet unlocked, in rule
// order. It never reports an already unlocked badge.
func Evaluate(in Input, unlocked []model.UnlockedBadge) []string {
	have := make(map[string]bool, len(unlocked))
	for _, u := range unlocked {
		have[u.BadgeID] = true
	}

	var out []string
	for _, r := range Rules {
		if have[r.BadgeID] {
			continue
		}
		if r.Met(in) {
			out = append(out, r.BadgeID)
		}
	}
	return out
}

// Unlock appends unlock records for ids. Ids already present are skipped.
func Unlock(list []model.UnlockedBadge, ids []string, now time.Time) []model.UnlockedBadge {
	for _, id := range ids {
		if Find(list, id) >= 0 {
			continue
		}
		list = append(list, model.UnlockedBadge{BadgeID: id, UnlockedAt: now})
	}
	return list
}

// Find returns the index of the unlock record for id, or -1.
func Find(list []model.UnlockedBadge, id string) int {
	for i, u := range list {
		if u.BadgeID == id {
			return i
		}
	}
	return -1
}

// Status reports whether a badge is unlocked and claimed.
func Status(list []model.UnlockedBadge, id string) (unlocked, claimed bool) {
	i := Find(list, id)
	if i < 0 {
		return false, false
	}
	return true, list[i].ClaimedAt != nil
}

// Claim marks the badge claimed. The returned slice is a copy; list is not
// modified. Claiming a badge that is locked or already claimed returns the
// matching sentinel error and leaves the state as it was.
func Claim(list []model.UnlockedBadge, id string, now time.Time) ([]model.UnlockedBadge, error) {
	i := Find(list, id)
	if i < 0 {
		return list, ErrNotUnlocked
	}
	if list[i].ClaimedAt != nil {
		return list, ErrAlreadyClaimed
	}

	out := Clone(list)
	claimedAt := now
	out[i].ClaimedAt = &claimedAt
	return out, nil
}

// Clone returns a deep copy of the unlock records.
func Clone(list []model.UnlockedBadge) []model.UnlockedBadge {
	out := make([]model.UnlockedBadge, len(list))
	for i, u := range list {
		out[i] = u
		if u.ClaimedAt != nil {
			c := *u.ClaimedAt
			out[i].ClaimedAt = &c
		}
	}
	return out
}
