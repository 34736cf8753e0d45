// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/audio"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/handler"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accounts *service.AccountService
	tracker  *service.TrackerService

	// Handlers
	accountHandler   *handler.AccountHandler
	trackerHandler   *handler.TrackerHandler
	gardenHandler    *handler.GardenHandler
	prayerHandler    *handler.PrayerHandler
	rankingHandler   *handler.RankingHandler
	communityHandler *handler.CommunityHandler
	audioHandler     *handler.AudioHandler
	adminHandler     *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config           *config.Config
	AccountService   *service.AccountService
	TrackerService   *service.TrackerService
	GardenService    *service.GardenService
	PrayerService    *service.PrayerService
	RankingService   *service.RankingService
	CommunityService *service.CommunityService
	AdminService     *service.AdminService
	BroadcastService *service.BroadcastService
	AudioSource      audio.Source
	Issuer           *auth.Issuer
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			e := log.Error().Err(err)
			if c != nil && c.Sender() != nil {
				e = e.Int64("user_id", c.Sender().ID)
			}
			e.Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:      teleBot,
		cfg:      deps.Config,
		accounts: deps.AccountService,
		tracker:  deps.TrackerService,
	}

	// Initialize handlers
	b.accountHandler = handler.NewAccountHandler(deps.AccountService, deps.TrackerService, deps.Issuer, deps.Config.Mail.AppURL)
	b.trackerHandler = handler.NewTrackerHandler(deps.TrackerService)
	b.gardenHandler = handler.NewGardenHandler(deps.GardenService)
	b.prayerHandler = handler.NewPrayerHandler(deps.PrayerService)
	b.rankingHandler = handler.NewRankingHandler(deps.RankingService)
	b.communityHandler = handler.NewCommunityHandler(deps.CommunityService)
	b.audioHandler = handler.NewAudioHandler(deps.AudioSource, deps.TrackerService, teleBot)
	b.adminHandler = handler.NewAdminHandler(deps.AdminService, deps.BroadcastService)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(AccountMiddleware(b.accounts, b.tracker))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	// Account
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/bantuan", b.accountHandler.HandleHelp)
	b.bot.Handle("/profil", b.accountHandler.HandleProfile)
	b.bot.Handle("/email", b.accountHandler.HandleEmail)
	b.bot.Handle("/web", b.accountHandler.HandleWeb)

	// Worship log and badges
	b.bot.Handle("/ibadah", b.trackerHandler.HandleIbadah)
	b.bot.Handle("/hari_ini", b.trackerHandler.HandleToday)
	b.bot.Handle("/lencana", b.trackerHandler.HandleBadges)

	// Garden
	b.bot.Handle("/kebun", b.gardenHandler.HandleGarden)
	b.bot.Handle(tele.OnLocation, b.gardenHandler.HandleGarden)
	b.bot.Handle("/pohon", b.gardenHandler.HandleTreeType)
	b.bot.Handle("/siram", b.gardenHandler.HandlePrayerStatus)

	// Prayer times
	b.bot.Handle("/sholat", b.prayerHandler.HandleSchedule)
	b.bot.Handle("/kota", b.prayerHandler.HandleCity)

	b.bot.Handle("/peringkat", b.rankingHandler.HandleTop)

	// Community
	b.bot.Handle("/komunitas", b.communityHandler.HandleList)
	b.bot.Handle("/gabung", b.communityHandler.HandleJoin)
	b.bot.Handle("/kirim", b.communityHandler.HandleSend)
	b.bot.Handle("/riwayat", b.communityHandler.HandleHistory)
	b.bot.Handle("/ajukan", b.communityHandler.HandleRequest)

	// Murottal
	b.bot.Handle("/murottal", b.audioHandler.HandleMurottal)
	b.bot.Handle("/qari", b.audioHandler.HandleQari)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.accounts))
	adminGroup.Handle("/admin_stats", b.adminHandler.HandleStats)
	adminGroup.Handle("/admin_pengguna", b.adminHandler.HandleUsers)
	adminGroup.Handle("/admin_poin", b.adminHandler.HandleSetPoints)
	adminGroup.Handle("/admin_peran", b.adminHandler.HandleSetRole)
	adminGroup.Handle("/admin_blokir", b.adminHandler.HandleBlock(true))
	adminGroup.Handle("/admin_buka", b.adminHandler.HandleBlock(false))
	adminGroup.Handle("/admin_hapus", b.adminHandler.HandleSoftDelete)
	adminGroup.Handle("/admin_hapus_permanen", b.adminHandler.HandleHardDelete)
	adminGroup.Handle("/admin_permintaan", b.adminHandler.HandleRequests)
	adminGroup.Handle("/admin_setujui", b.adminHandler.HandleApprove)
	adminGroup.Handle("/admin_tolak", b.adminHandler.HandleReject)
	adminGroup.Handle("/admin_undang", b.adminHandler.HandleInvite)
	adminGroup.Handle("/admin_hapus_pesan", b.adminHandler.HandleDeleteMessage)
	adminGroup.Handle("/admin_bersihkan", b.adminHandler.HandleClear)
	adminGroup.Handle("/admin_rilis", b.adminHandler.HandleRelease)

	// Generic callback handler for inline buttons
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	unique := CallbackName(c.Callback())
	log.Debug().Str("callback", unique).Msg("Callback received")

	switch unique {
	case handler.CallbackAct:
		return b.trackerHandler.HandleActCallback(c)
	case handler.CallbackRefresh:
		return b.trackerHandler.HandleRefreshCallback(c)
	case handler.CallbackClaim:
		return b.trackerHandler.HandleClaimCallback(c)
	case handler.CallbackCity:
		return b.prayerHandler.HandleCityCallback(c)
	case handler.CallbackJoin:
		return b.communityHandler.HandleJoinCallback(c)
	case handler.CallbackAudio:
		return b.audioHandler.HandleAudioCallback(c)
	}
	return c.Respond()
}

// CallbackName returns the unique name of an inline button press. Telebot v3
// adds a \f prefix to callback data.
func CallbackName(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	data := cb.Data
	if len(data) > 0 && data[0] == '\f' {
		data = data[1:]
	}
	for i := 0; i < len(data); i++ {
		if data[i] == '|' {
			return data[:i]
		}
	}
	return data
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}
