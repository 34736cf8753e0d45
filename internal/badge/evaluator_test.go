package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestEvaluate_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want []string
	}{
		{"nothing", Input{Level: 1}, nil},
		{"tilawah bronze", Input{Counts: map[string]int{catalog.ActTilawah: 3}}, []string{catalog.BadgeAlHafizBronze}},
		{"tilawah silver", Input{Counts: map[string]int{catalog.ActTilawah: 15}}, []string{catalog.BadgeAlHafizBronze, catalog.BadgeAlHafizSilver}},
		{"streak", Input{Streak: 30}, []string{catalog.BadgeAlHafizGold}},
		{"guardian", Input{Counts: map[string]int{catalog.ActSubuh: 6, catalog.ActDzuhur: 4}}, []string{catalog.BadgeGuardianBronze}},
		{"level 20", Input{Level: 20}, []string{catalog.BadgeScholarSilver, catalog.BadgeScholarGold}},
		{"minutes", Input{MinutesActive: 100}, []string{catalog.BadgePecintaKebun}},
		{"khatam", Input{ListenedSurahs: 114}, []string{catalog.BadgePendengarSetia, catalog.BadgePecintaQuran, catalog.BadgeKhatamSami}},
		{"just below", Input{Counts: map[string]int{catalog.ActTahajjud: 2, catalog.ActSedekah: 4}, Level: 9, MinutesActive: 99, ListenedSurahs: 9}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.in, nil))
		})
	}
}

func TestEvaluate_SkipsUnlocked(t *testing.T) {
	unlocked := []model.UnlockedBadge{{BadgeID: catalog.BadgeScholarSilver, UnlockedAt: now}}
	got := Evaluate(Input{Level: 25}, unlocked)
	assert.Equal(t, []string{catalog.BadgeScholarGold}, got)
}

func TestUnlock_Idempotent(t *testing.T) {
	list := Unlock(nil, []string{catalog.BadgeScholarGold}, now)
	list = Unlock(list, []string{catalog.BadgeScholarGold, catalog.BadgeAlHafizGold}, now.Add(time.Hour))
	require.Len(t, list, 2)
	assert.Equal(t, now, list[0].UnlockedAt)
}

func TestClaim(t *testing.T) {
	list := Unlock(nil, []string{catalog.BadgeGuardianBronze}, now)

	_, err := Claim(list, catalog.BadgeAlHafizGold, now)
	assert.ErrorIs(t, err, ErrNotUnlocked)

	claimed, err := Claim(list, catalog.BadgeGuardianBronze, now)
	require.NoError(t, err)
	unlocked, isClaimed := Status(claimed, catalog.BadgeGuardianBronze)
	assert.True(t, unlocked)
	assert.True(t, isClaimed)

	// The input list is untouched.
	_, isClaimed = Status(list, catalog.BadgeGuardianBronze)
	assert.False(t, isClaimed)

	again, err := Claim(claimed, catalog.BadgeGuardianBronze, now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, claimed, again)
}

func TestEffectsOf(t *testing.T) {
	list := Unlock(nil, []string{catalog.BadgeAlHafizBronze, catalog.BadgePecintaKebun}, now)
	e := EffectsOf(list)
	assert.True(t, e.Dew)
	assert.True(t, e.Aura)
	assert.False(t, e.StrongTrunk)
	assert.False(t, e.NewSeeds)

	// Listener badges belong to no decorated family.
	assert.Equal(t, Effects{}, EffectsOf(Unlock(nil, []string{catalog.BadgePendengarSetia}, now)))
}

// TestEvaluateNeverRepeatsProperty checks that re-running evaluation after
// unlocking its result yields nothing new and that claimed records survive.
func TestEvaluateNeverRepeatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := Input{
			Counts: map[string]int{
				catalog.ActTilawah:  rapid.IntRange(0, 20).Draw(t, "tilawah"),
				catalog.ActSubuh:    rapid.IntRange(0, 10).Draw(t, "subuh"),
				catalog.ActDzuhur:   rapid.IntRange(0, 10).Draw(t, "dzuhur"),
				catalog.ActTahajjud: rapid.IntRange(0, 5).Draw(t, "tahajjud"),
				catalog.ActSedekah:  rapid.IntRange(0, 8).Draw(t, "sedekah"),
			},
			Streak:         rapid.IntRange(0, 40).Draw(t, "streak"),
			Level:          rapid.IntRange(1, 25).Draw(t, "level"),
			MinutesActive:  rapid.IntRange(0, 200).Draw(t, "minutes"),
			ListenedSurahs: rapid.IntRange(0, 114).Draw(t, "listened"),
		}

		first := Evaluate(in, nil)
		list := Unlock(nil, first, now)
		if again := Evaluate(in, list); len(again) != 0 {
			t.Fatalf("second evaluation unlocked %v", again)
		}
		if len(list) != len(first) {
			t.Fatalf("unlock produced %d records for %d ids", len(list), len(first))
		}
	})
}

// TestClaimOnlyOnceProperty checks that claim is a no-op on locked or claimed
// badges.
func TestClaimOnlyOnceProperty(t *testing.T) {
	ids := make([]string, 0)
	for _, b := range catalog.Badges() {
		ids = append(ids, b.ID)
	}
	rapid.Check(t, func(t *rapid.T) {
		unlockedIDs := rapid.SliceOfNDistinct(rapid.SampledFrom(ids), 0, len(ids), func(s string) string { return s }).Draw(t, "unlocked")
		target := rapid.SampledFrom(ids).Draw(t, "target")

		list := Unlock(nil, unlockedIDs, now)
		out, err := Claim(list, target, now)
		if Find(list, target) < 0 {
			if err == nil {
				t.Fatalf("claimed locked badge %s", target)
			}
			return
		}
		if err != nil {
			t.Fatalf("claim %s: %v", target, err)
		}
		if _, err := Claim(out, target, now); err == nil {
			t.Fatalf("second claim of %s succeeded", target)
		}
	})
}
