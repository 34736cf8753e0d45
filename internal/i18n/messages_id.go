package i18n

import "golang.org/x/text/message"

func init() {
	lang := Indonesian

	message.SetString(lang, GardenOnTime, "Alhamdulillah! Pohonmu semakin segar.")
	message.SetString(lang, GardenLate, "Lebih baik terlambat daripada tidak, tapi pohonmu butuh lebih banyak air.")
	message.SetString(lang, GardenMissed, "Astaghfirullah, pohonmu mulai layu. Segera siram dengan sholat!")
	message.SetString(lang, GardenLevelUp, "Maa Shaa Allah! Tanamanmu tumbuh menjadi %s!")
	message.SetString(lang, GardenKurma, "Selamat! Anda membuka bibit Pohon Kurma!")
	message.SetString(lang, GardenSegarBugar, "Segar Bugar")
	message.SetString(lang, GardenSehat, "Sehat")
	message.SetString(lang, GardenDahaga, "Dahaga")
	message.SetString(lang, GardenLayu, "Layu")

	message.SetString(lang, XPMilestone, "🎉 Maa Shaa Allah! Kamu telah mencapai %d XP!")
	message.SetString(lang, BadgeUnlocked, "🏅 Lencana baru terbuka: %s %s")
	message.SetString(lang, BadgeClaimed, "✨ Lencana %s diklaim! +%d XP")
	message.SetString(lang, StreakContinued, "🔥 Streak login: %d hari")

	message.SetString(lang, PrayerTomorrow, "Subuh (besok)")
	message.SetString(lang, CommunityWelcome, "Selamat datang di komunitas %s!")
	message.SetString(lang, BroadcastSubject, "✨ Ada kabar baru dari Admin Cool! (v%s)")
	message.SetString(lang, AnonymousName, "Hamba Allah")
	message.SetString(lang, PermissionDenied, "⛔ Anda tidak memiliki izin untuk melakukan ini")
	message.SetString(lang, GenericSaveFailure, "❌ Gagal menyimpan, silakan coba lagi")
}
