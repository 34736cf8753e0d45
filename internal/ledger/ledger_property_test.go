package ledger

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
)

func actIDs() []string {
	ids := make([]string, 0, catalog.ActCount())
	for _, a := range catalog.Acts() {
		ids = append(ids, a.ID)
	}
	return ids
}

// TestToggleXPMatchesLogProperty checks that, starting from an empty ledger,
// the XP total after any toggle sequence equals the XP of the acts present.
func TestToggleXPMatchesLogProperty(t *testing.T) {
	ids := actIDs()
	rapid.Check(t, func(t *rapid.T) {
		seq := rapid.SliceOfN(rapid.SampledFrom(ids), 0, 60).Draw(t, "toggles")

		tr := &Tracker{}
		for _, id := range seq {
			res, err := tr.Toggle("2024-05-01", id, []int64{100, 250})
			if err != nil {
				t.Fatalf("toggle %s: %v", id, err)
			}
			if res.Level != Level(tr.TotalXP) {
				t.Fatalf("level %d does not match xp %d", res.Level, tr.TotalXP)
			}
			if tr.TotalXP < 0 {
				t.Fatalf("negative xp %d", tr.TotalXP)
			}
		}

		if want := DayXP(tr.Log.Day("2024-05-01")); tr.TotalXP != want {
			t.Fatalf("xp %d, sum of present acts %d", tr.TotalXP, want)
		}
	})
}

// TestDoubleToggleIsIdentityProperty checks that toggling the same act twice
// restores both the log and the XP total.
func TestDoubleToggleIsIdentityProperty(t *testing.T) {
	ids := actIDs()
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.SliceOfN(rapid.SampledFrom(ids), 0, 20).Draw(t, "prefix")
		id := rapid.SampledFrom(ids).Draw(t, "id")

		tr := &Tracker{}
		for _, p := range prefix {
			_, _ = tr.Toggle("d", p, nil)
		}
		before := tr.TotalXP
		present := tr.Log.Contains("d", id)

		_, _ = tr.Toggle("d", id, nil)
		_, _ = tr.Toggle("d", id, nil)

		if tr.TotalXP != before {
			t.Fatalf("xp changed from %d to %d", before, tr.TotalXP)
		}
		if tr.Log.Contains("d", id) != present {
			t.Fatalf("membership of %s changed", id)
		}
	})
}

// TestMilestoneFiresOncePerCrossingProperty checks the edge trigger.
func TestMilestoneFiresOncePerCrossingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		oldXP := rapid.Int64Range(0, 1000).Draw(t, "old")
		newXP := rapid.Int64Range(0, 1000).Draw(t, "new")
		thresholds := []int64{100, 250}

		crossed := CrossedMilestones(oldXP, newXP, thresholds)
		for _, m := range thresholds {
			want := oldXP < m && newXP >= m
			got := false
			for _, c := range crossed {
				if c == m {
					got = true
				}
			}
			if got != want {
				t.Fatalf("old=%d new=%d milestone=%d: got %v want %v", oldXP, newXP, m, got, want)
			}
		}
	})
}
