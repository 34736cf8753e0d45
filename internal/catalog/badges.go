package catalog

import "strings"

// BadgeCategory is the family a badge belongs to. Unlocked effects in the
// garden are keyed by category.
type BadgeCategory string

// Badge categories.
const (
	BadgeAlHafiz        BadgeCategory = "al_hafiz"
	BadgeGuardian       BadgeCategory = "guardian"
	BadgePhilanthropist BadgeCategory = "philanthropist"
	BadgeScholar        BadgeCategory = "scholar"
)

// Tier is the rank of a badge within its category.
type Tier string

// Badge tiers.
const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Badge identifiers.
const (
	BadgeAlHafizBronze        = "al_hafiz_bronze"
	BadgeAlHafizSilver        = "al_hafiz_silver"
	BadgeAlHafizGold          = "al_hafiz_gold"
	BadgeGuardianBronze       = "guardian_bronze"
	BadgeGuardianSilver       = "guardian_silver"
	BadgeGuardianGold         = "guardian_gold"
	BadgePhilanthropistBronze = "philanthropist_bronze"
	BadgePhilanthropistSilver = "philanthropist_silver"
	BadgePhilanthropistGold   = "philanthropist_gold"
	BadgeScholarBronze        = "scholar_bronze"
	BadgeScholarSilver        = "scholar_silver"
	BadgeScholarGold          = "scholar_gold"
	BadgePecintaKebun         = "pecinta_kebun"
	BadgePendengarSetia       = "pendengar_setia"
	BadgePecintaQuran         = "pecinta_quran"
	BadgeKhatamSami           = "khatam_sami"
)

// Badge is the static definition of an achievement.
type Badge struct {
	ID          string
	Name        string
	Description string
	Category    BadgeCategory
	Tier        Tier
	Icon        string
}

var badges = []Badge{
	{BadgeAlHafizBronze, "Cahaya Pagi", "Membaca Al-Qur'an sebelum pukul 07.00", BadgeAlHafiz, TierBronze, "🌅"},
	{BadgeAlHafizSilver, "Khatam Explorer", "Selesaikan satu juz dalam seminggu", BadgeAlHafiz, TierSilver, "📖"},
	{BadgeAlHafizGold, "Istiqomah Tilawah", "30 hari tanpa absen membaca Al-Qur'an", BadgeAlHafiz, TierGold, "👑"},
	{BadgeGuardianBronze, "First Responder", "5x Sholat tepat waktu berturut-turut", BadgeGuardian, TierBronze, "🛡️"},
	{BadgeGuardianSilver, "Midnight Warrior", "3x Tahajjud dalam seminggu", BadgeGuardian, TierSilver, "⚔️"},
	{BadgeGuardianGold, "Jumat Barokah", "Lengkapi semua amalan sunnah Jumat", BadgeGuardian, TierGold, "🕌"},
	{BadgePhilanthropistBronze, "Helping Hand", "5x mencatat sedekah dalam sebulan", BadgePhilanthropist, TierBronze, "🤝"},
	{BadgePhilanthropistSilver, "Secret Donor", "Sedekah subuh selama 7 hari", BadgePhilanthropist, TierSilver, "🤫"},
	{BadgePhilanthropistGold, "Golden Heart", "Menjadi donatur aktif komunitas", BadgePhilanthropist, TierGold, "💛"},
	{BadgeScholarBronze, "Qibla Master", "Kalibrasi kiblat di 3 lokasi berbeda", BadgeScholar, TierBronze, "🧭"},
	{BadgeScholarSilver, "Dzikir Master", "10 hari Dzikir Pagi & Petang tanpa terlewat", BadgeScholar, TierSilver, "📿"},
	{BadgeScholarGold, "Al-Hakim", "Mencapai Level 20", BadgeScholar, TierGold, "🎓"},
	{BadgePecintaKebun, "Pecinta Kebun", "Aktif di aplikasi selama 100 menit", BadgeScholar, TierBronze, "⏱️"},
	{BadgePendengarSetia, "Pendengar Setia", "Dengarkan 10 Surah hingga selesai", BadgeAlHafiz, TierBronze, "🎧"},
	{BadgePecintaQuran, "Pecinta Al-Qur'an", "Dengarkan 35 Surah hingga selesai", BadgeAlHafiz, TierSilver, "🔉"},
	{BadgeKhatamSami, "Khatam Sam'i", "Dengarkan 114 Surah (Khatam)", BadgeAlHafiz, TierGold, "🏆"},
}

var badgeIndex = func() map[string]Badge {
	m := make(map[string]Badge, len(badges))
	for _, b := range badges {
		m[b.ID] = b
	}
	return m
}()

// Badges returns every badge definition in display order.
func Badges() []Badge {
	return append([]Badge(nil), badges...)
}

// BadgeByID returns the definition of a badge.
func BadgeByID(id string) (Badge, bool) {
	b, ok := badgeIndex[id]
	return b, ok
}

// HasPrefix reports whether the badge id belongs to the given category family.
func HasPrefix(badgeID string, category BadgeCategory) bool {
	return strings.HasPrefix(badgeID, string(category))
}
