package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/audio"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/bot"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/content"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/httpapi"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/metrics"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/notify"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/relay"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/weather"
)

const flushTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the HTTP API and the background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closer, err := loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("timezone", cfg.App.Timezone).Msg("Configuration loaded successfully")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	m := metrics.New(a.queue.Len)
	detachMetrics := m.Attach(a.bus)
	defer detachMetrics()

	// Services
	gc := cfg.Gamification
	var weatherSrc service.WeatherSource
	if cfg.Weather.Enabled {
		weatherSrc = weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, a.cache, cfg.Weather.CacheTTL)
	}

	prayerCache, err := prayer.OpenCache(ctx, cfg.Prayer.CachePath)
	if err != nil {
		return err
	}
	defer prayerCache.Close()
	timetables := prayer.NewProvider(prayer.NewClient(cfg.Prayer.BaseURL, cfg.Prayer.Timeout), prayerCache, cfg.Prayer.IhtiyatiMinutes)

	accounts := service.NewAccountService(a.profiles, a.states, cfg.IsAdmin)
	tracker := service.NewTrackerService(a.states, gc.Milestones, gc.ClaimBonus)
	gardens := service.NewGardenService(a.states, weatherSrc)
	prayers := service.NewPrayerService(a.profiles, a.states, timetables)
	ranking := service.NewRankingService(a.profiles, time.Now, a.loc, gc.LeaderboardLimit)
	community := service.NewCommunityService(a.communities, a.requests, a.states)
	admin := service.NewAdminService(a.profiles, community, accounts, a.states)
	broadcast, err := a.broadcastService()
	if err != nil {
		return err
	}

	if err := community.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("failed to create default communities: %w", err)
	}

	issuer, err := auth.NewIssuer(cfg.HTTP.JWTSecret, cfg.HTTP.JWTIssuer, cfg.HTTP.TokenTTL, nil)
	if err != nil {
		return err
	}

	var transcriber *relay.Transcriber
	if cfg.Transcribe.Token != "" {
		transcriber = relay.NewTranscriber(cfg.Transcribe)
	} else {
		log.Warn().Msg("Transcription token not configured, /api/transcribe will answer 500")
	}

	api := httpapi.New(httpapi.Deps{
		Config:      cfg,
		Issuer:      issuer,
		Accounts:    accounts,
		Tracker:     tracker,
		Gardens:     gardens,
		Prayers:     prayers,
		Ranking:     ranking,
		Community:   community,
		Admin:       admin,
		Broadcast:   broadcast,
		Content:     content.NewAggregator(cfg.Content, a.cache),
		Weather:     weatherSrc,
		Transcriber: transcriber,
		Metrics:     m,
		Bus:         a.bus,
		Health:      a.pool.HealthCheck,
	})

	var telegram *bot.Bot
	if cfg.Bot.Token != "" {
		telegram, err = bot.New(&bot.Dependencies{
			Config:           cfg,
			AccountService:   accounts,
			TrackerService:   tracker,
			GardenService:    gardens,
			PrayerService:    prayers,
			RankingService:   ranking,
			CommunityService: community,
			AdminService:     admin,
			BroadcastService: broadcast,
			AudioSource:      audio.NewEquranSource(cfg.Audio.BaseURL, cfg.Audio.Timeout),
			Issuer:           issuer,
		})
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
	} else {
		log.Warn().Msg("Bot token not configured, running the HTTP API only")
	}

	// The queue outlives the front ends so their last writes can drain.
	queueCtx, stopQueue := context.WithCancel(context.Background())
	queueDone := make(chan error, 1)
	go func() { queueDone <- a.queue.Run(queueCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(gctx) })

	if telegram != nil {
		notifier := notify.New(telegram.GetBot(), 0)
		detachNotifier := notifier.Attach(a.bus)
		defer detachNotifier()

		g.Go(func() error { return notifier.Run(gctx) })
		g.Go(func() error {
			log.Info().Msg("Bot is starting...")
			telegram.Start()
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			telegram.Stop()
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		log.Error().Err(err).Msg("Shutting down after error")
	} else {
		log.Info().Msg("Received shutdown signal")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if ferr := a.queue.Flush(flushCtx); ferr != nil {
		log.Error().Err(ferr).Int("pending", a.queue.Len()).Msg("Write queue did not drain")
	}
	stopQueue()
	<-queueDone

	log.Info().Msg("Stopped gracefully")
	return err
}
