// Package catalog holds the static ritual-act and badge definitions shared by
// all users.
package catalog

// ActCategory groups ritual acts for display.
type ActCategory string

// Act categories.
const (
	CategoryShalat ActCategory = "shalat"
	CategorySunnah ActCategory = "sunnah"
	CategoryQuran  ActCategory = "quran"
	CategoryDzikir ActCategory = "dzikir"
	CategoryAmal   ActCategory = "amal"
	CategoryPuasa  ActCategory = "puasa"
)

// Ritual act identifiers.
const (
	ActSubuh       = "subuh"
	ActDzuhur      = "dzuhur"
	ActAshar       = "ashar"
	ActMaghrib     = "maghrib"
	ActIsya        = "isya"
	ActTahajjud    = "tahajjud"
	ActDhuha       = "dhuha"
	ActRawatib     = "rawatib"
	ActTilawah     = "tilawah"
	ActDzikirPagi  = "dzikir_pagi"
	ActDzikirSore  = "dzikir_sore"
	ActSedekah     = "sedekah"
	ActPuasaSunnah = "puasa_sunnah"
	ActIstighfar   = "istighfar"
)

// RitualAct is one trackable act of worship.
type RitualAct struct {
	ID       string
	Name     string
	XP       int64
	Category ActCategory
}

var acts = map[string]RitualAct{
	ActSubuh:       {ID: ActSubuh, Name: "Shalat Subuh", XP: 20, Category: CategoryShalat},
	ActDzuhur:      {ID: ActDzuhur, Name: "Shalat Dzuhur", XP: 20, Category: CategoryShalat},
	ActAshar:       {ID: ActAshar, Name: "Shalat Ashar", XP: 20, Category: CategoryShalat},
	ActMaghrib:     {ID: ActMaghrib, Name: "Shalat Maghrib", XP: 20, Category: CategoryShalat},
	ActIsya:        {ID: ActIsya, Name: "Shalat Isya", XP: 20, Category: CategoryShalat},
	ActTahajjud:    {ID: ActTahajjud, Name: "Shalat Tahajud", XP: 30, Category: CategorySunnah},
	ActDhuha:       {ID: ActDhuha, Name: "Shalat Dhuha", XP: 15, Category: CategorySunnah},
	ActRawatib:     {ID: ActRawatib, Name: "Shalat Rawatib", XP: 15, Category: CategorySunnah},
	ActTilawah:     {ID: ActTilawah, Name: "Tilawah Al-Quran", XP: 25, Category: CategoryQuran},
	ActDzikirPagi:  {ID: ActDzikirPagi, Name: "Dzikir Pagi", XP: 10, Category: CategoryDzikir},
	ActDzikirSore:  {ID: ActDzikirSore, Name: "Dzikir Sore", XP: 10, Category: CategoryDzikir},
	ActSedekah:     {ID: ActSedekah, Name: "Sedekah", XP: 20, Category: CategoryAmal},
	ActPuasaSunnah: {ID: ActPuasaSunnah, Name: "Puasa Sunnah", XP: 30, Category: CategoryPuasa},
	ActIstighfar:   {ID: ActIstighfar, Name: "Istighfar 100x", XP: 10, Category: CategoryDzikir},
}

var actOrder = []string{
	ActSubuh, ActDzuhur, ActAshar, ActMaghrib, ActIsya,
	ActTahajjud, ActDhuha, ActRawatib,
	ActTilawah,
	ActDzikirPagi, ActDzikirSore,
	ActSedekah,
	ActPuasaSunnah,
	ActIstighfar,
}

// MandatoryPrayers are the five daily obligatory prayers.
var MandatoryPrayers = []string{ActSubuh, ActDzuhur, ActAshar, ActMaghrib, ActIsya}

// Acts returns all ritual acts in display order.
func Acts() []RitualAct {
	out := make([]RitualAct, 0, len(actOrder))
	for _, id := range actOrder {
		out = append(out, acts[id])
	}
	return out
}

// Act returns the ritual act with the given id.
func Act(id string) (RitualAct, bool) {
	a, ok := acts[id]
	return a, ok
}

// ActCount is the size of the catalog, the denominator of daily progress.
func ActCount() int {
	return len(actOrder)
}

// IsMandatoryPrayer reports whether id is one of the five daily prayers.
func IsMandatoryPrayer(id string) bool {
	for _, p := range MandatoryPrayers {
		if p == id {
			return true
		}
	}
	return false
}
