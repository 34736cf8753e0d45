package badge

import (
	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// Effects are garden decorations earned by owning badges of a family.
type Effects struct {
	Dew             bool `json:"dew"`
	StrongTrunk     bool `json:"strong_trunk"`
	RareButterflies bool `json:"rare_butterflies"`
	NewSeeds        bool `json:"new_seeds"`
	Aura            bool `json:"aura"`
}

// EffectsOf derives the decorations from the unlock records.
func EffectsOf(list []model.UnlockedBadge) Effects {
	var e Effects
	for _, u := range list {
		switch {
		case catalog.HasPrefix(u.BadgeID, catalog.BadgeAlHafiz):
			e.Dew = true
		case catalog.HasPrefix(u.BadgeID, catalog.BadgeGuardian):
			e.StrongTrunk = true
		case catalog.HasPrefix(u.BadgeID, catalog.BadgePhilanthropist):
			e.RareButterflies = true
		case catalog.HasPrefix(u.BadgeID, catalog.BadgeScholar):
			e.NewSeeds = true
		}
		if u.BadgeID == catalog.BadgePecintaKebun {
			e.Aura = true
		}
	}
	return e
}
