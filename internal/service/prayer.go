package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/theme"
)

// Timetables serves prayer schedules.
type Timetables interface {
	SearchCities(ctx context.Context, keyword string) ([]prayer.City, error)
	ForDate(ctx context.Context, cityID string, day time.Time) (*prayer.Schedule, error)
}

// PrayerService answers schedule, countdown and theme questions for the
// user's selected city.
type PrayerService struct {
	profiles ProfileStore
	states   *States
	source   Timetables
}

// NewPrayerService creates a new PrayerService instance.
func NewPrayerService(profiles ProfileStore, states *States, source Timetables) *PrayerService {
	return &PrayerService{profiles: profiles, states: states, source: source}
}

// SearchCities looks up cities by name. An empty keyword returns the popular
// cities.
func (s *PrayerService) SearchCities(ctx context.Context, keyword string) ([]prayer.City, error) {
	if strings.TrimSpace(keyword) == "" {
		return prayer.PopularCities, nil
	}
	cities, err := s.source.SearchCities(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to search cities: %w", err)
	}
	return cities, nil
}

// SelectCity stores the user's city.
func (s *PrayerService) SelectCity(ctx context.Context, userID int64, city prayer.City) error {
	if city.ID == "" {
		return prayer.ErrCityMissing
	}
	if err := s.profiles.SetLocation(ctx, userID, city.ID, city.Name); err != nil {
		return fmt.Errorf("failed to set location: %w", err)
	}
	return s.states.With(ctx, userID, func(st *UserState) error {
		st.Profile.CityID, st.Profile.CityName = city.ID, city.Name
		return nil
	})
}

// PrayerToday is today's timetable with the next event and the matching
// theme.
type PrayerToday struct {
	City     prayer.City      `json:"city"`
	Schedule *prayer.Schedule `json:"schedule"`
	Next     prayer.Next      `json:"next"`
	Theme    theme.Theme      `json:"theme"`
}

// Today returns the timetable of the user's city.
func (s *PrayerService) Today(ctx context.Context, userID int64) (*PrayerToday, error) {
	city, err := s.city(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.states.Now()
	sched, err := s.source.ForDate(ctx, city.ID, now)
	if err != nil {
		return nil, err
	}
	return s.build(city, sched, now)
}

// Theme returns the theme for now. Without a city or timetable the default
// midday theme is used.
func (s *PrayerService) Theme(ctx context.Context, userID int64) theme.Theme {
	now := s.states.Now()
	minute := now.Hour()*60 + now.Minute()

	city, err := s.city(ctx, userID)
	if err != nil {
		return theme.At(nil, minute)
	}
	sched, err := s.source.ForDate(ctx, city.ID, now)
	if err != nil {
		return theme.At(nil, minute)
	}
	times, err := sched.ThemeTimes()
	if err != nil {
		return theme.At(nil, minute)
	}
	return theme.At(times, minute)
}

// Watch calls fn with a fresh view once per second until ctx is done. The
// timetable is refetched when the date changes.
func (s *PrayerService) Watch(ctx context.Context, userID int64, fn func(*PrayerToday)) error {
	city, err := s.city(ctx, userID)
	if err != nil {
		return err
	}

	now := s.states.Now()
	day := now.YearDay()
	sched, err := s.source.ForDate(ctx, city.ID, now)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if now.YearDay() != day {
			if fresh, err := s.source.ForDate(ctx, city.ID, now); err == nil {
				sched, day = fresh, now.YearDay()
			}
		}
		view, err := s.build(city, sched, now)
		if err != nil {
			return err
		}
		fn(view)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now = s.states.Now()
		}
	}
}

func (s *PrayerService) build(city prayer.City, sched *prayer.Schedule, now time.Time) (*PrayerToday, error) {
	next, err := prayer.Countdown(sched, now)
	if err != nil {
		return nil, err
	}
	view := &PrayerToday{City: city, Schedule: sched, Next: next}
	minute := now.Hour()*60 + now.Minute()
	if times, err := sched.ThemeTimes(); err == nil {
		view.Theme = theme.At(times, minute)
	} else {
		view.Theme = theme.At(nil, minute)
	}
	return view, nil
}

func (s *PrayerService) city(ctx context.Context, userID int64) (prayer.City, error) {
	st, err := s.states.Snapshot(ctx, userID)
	if err != nil {
		return prayer.City{}, err
	}
	if st.Profile.CityID == "" {
		return prayer.City{}, prayer.ErrCityMissing
	}
	return prayer.City{ID: st.Profile.CityID, Name: st.Profile.CityName}, nil
}
