package prayer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
)

// Fetcher is the remote side of the provider.
type Fetcher interface {
	SearchCities(ctx context.Context, keyword string) ([]City, error)
	Schedule(ctx context.Context, cityID string, date time.Time) (*Schedule, error)
}

// Provider serves timetables from the cache, fetching on a miss.
type Provider struct {
	fetcher  Fetcher
	cache    *Cache
	ihtiyati int
}

// NewProvider creates a provider. cache may be nil.
func NewProvider(fetcher Fetcher, cache *Cache, ihtiyatiMinutes int) *Provider {
	return &Provider{fetcher: fetcher, cache: cache, ihtiyati: ihtiyatiMinutes}
}

// SearchCities proxies the city lookup.
func (p *Provider) SearchCities(ctx context.Context, keyword string) ([]City, error) {
	return p.fetcher.SearchCities(ctx, keyword)
}

// ForDate returns the timetable of cityID on the calendar date of day. A
// cache hit skips the network.
func (p *Provider) ForDate(ctx context.Context, cityID string, day time.Time) (*Schedule, error) {
	if cityID == "" {
		return nil, ErrCityMissing
	}
	key := ledger.DateKey(day)

	if p.cache != nil {
		s, err := p.cache.Get(ctx, cityID, key)
		if err != nil {
			log.Warn().Err(err).Str("city", cityID).Msg("prayer cache read failed")
		} else if s != nil {
			return p.adjust(s)
		}
	}

	s, err := p.fetcher.Schedule(ctx, cityID, day)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, cityID, key, s); err != nil {
			log.Warn().Err(err).Str("city", cityID).Msg("prayer cache write failed")
		}
		if n, err := p.cache.Prune(ctx, key); err == nil && n > 0 {
			log.Debug().Int64("removed", n).Msg("pruned stale prayer schedules")
		}
	}
	return p.adjust(s)
}

func (p *Provider) adjust(s *Schedule) (*Schedule, error) {
	if p.ihtiyati == 0 {
		return s, nil
	}
	return s.Adjust(p.ihtiyati)
}

// Watch calls fn with a fresh countdown once per second until ctx is done.
// A new timetable is fetched when the date changes.
func (p *Provider) Watch(ctx context.Context, cityID string, now func() time.Time, fn func(Next)) error {
	day := ledger.DateKey(now())
	s, err := p.ForDate(ctx, cityID, now())
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		t := now()
		if k := ledger.DateKey(t); k != day {
			day = k
			if fresh, err := p.ForDate(ctx, cityID, t); err == nil {
				s = fresh
			} else {
				log.Warn().Err(err).Str("city", cityID).Msg("failed to refresh prayer schedule")
			}
		}
		next, err := Countdown(s, t)
		if err != nil {
			return err
		}
		fn(next)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
