package i18n

import "golang.org/x/text/message"

func init() {
	lang := English

	message.SetString(lang, GardenOnTime, "Alhamdulillah! Your tree is getting fresher.")
	message.SetString(lang, GardenLate, "Better late than never, but your tree needs more water.")
	message.SetString(lang, GardenMissed, "Astaghfirullah, your tree is starting to wilt. Water it with prayer soon!")
	message.SetString(lang, GardenLevelUp, "Maa Shaa Allah! Your plant grew into %s!")
	message.SetString(lang, GardenKurma, "Congratulations! You unlocked the Date Palm seed!")
	message.SetString(lang, GardenSegarBugar, "Thriving")
	message.SetString(lang, GardenSehat, "Healthy")
	message.SetString(lang, GardenDahaga, "Thirsty")
	message.SetString(lang, GardenLayu, "Wilted")

	message.SetString(lang, XPMilestone, "🎉 Maa Shaa Allah! You reached %d XP!")
	message.SetString(lang, BadgeUnlocked, "🏅 New badge unlocked: %s %s")
	message.SetString(lang, BadgeClaimed, "✨ Badge %s claimed! +%d XP")
	message.SetString(lang, StreakContinued, "🔥 Login streak: %d days")

	message.SetString(lang, PrayerTomorrow, "Subuh (tomorrow)")
	message.SetString(lang, CommunityWelcome, "Welcome to the %s community!")
	message.SetString(lang, BroadcastSubject, "✨ News from Admin Cool! (v%s)")
	message.SetString(lang, AnonymousName, "Hamba Allah")
	message.SetString(lang, PermissionDenied, "⛔ You are not allowed to do this")
	message.SetString(lang, GenericSaveFailure, "❌ Saving failed, please try again")
}
