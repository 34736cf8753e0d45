package root

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/cache"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/db"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/writequeue"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/relay"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// app holds the storage layer shared by the commands that touch the
// database.
type app struct {
	cfg   *config.Config
	loc   *time.Location
	pool  *db.Pool
	cache cache.Cache
	bus   *events.Bus
	queue *writequeue.Queue

	profiles    *repository.ProfileRepository
	communities *repository.CommunityRepository
	requests    *repository.RequestRepository
	metadata    *repository.MetadataRepository
	states      *service.States
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, err
	}

	c, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		loc:         loc,
		pool:        pool,
		cache:       c,
		bus:         events.New(),
		profiles:    repository.NewProfileRepository(pool.Pool),
		communities: repository.NewCommunityRepository(pool.Pool),
		requests:    repository.NewRequestRepository(pool.Pool),
		metadata:    repository.NewMetadataRepository(pool.Pool),
	}

	var states *service.States
	a.queue = writequeue.New(cfg.Queue, func(key string, err error) {
		states.OnPersistFailed(key, err)
	})
	states = service.NewStates(service.StateDeps{
		Profiles: a.profiles,
		Logs:     repository.NewDailyLogRepository(pool.Pool),
		Badges:   repository.NewBadgeRepository(pool.Pool),
		Gardens:  repository.NewGardenRepository(pool.Pool),
		XP:       repository.NewXPEventRepository(pool.Pool),
	}, a.queue, a.bus, loc, time.Now)
	a.states = states

	return a, nil
}

// broadcastService returns nil when SMTP is not configured.
func (a *app) broadcastService() (*service.BroadcastService, error) {
	if a.cfg.Mail.Host == "" {
		log.Warn().Msg("SMTP host not configured, version broadcasts are disabled")
		return nil, nil
	}
	mailer, err := relay.NewMailer(a.cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}
	return service.NewBroadcastService(a.metadata, a.profiles, mailer, a.states), nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close cache")
	}
	a.pool.Close()
}
