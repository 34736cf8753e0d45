package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/ledger"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/weather"
)

// WeatherSource reports current conditions at a coordinate.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (weather.Report, error)
}

// Coordinates is an optional position used for the weather overlay.
type Coordinates struct {
	Lat float64
	Lon float64
}

// GardenService exposes the virtual garden.
type GardenService struct {
	states  *States
	weather WeatherSource
}

// NewGardenService creates a new GardenService instance. weather may be nil.
func NewGardenService(states *States, weather WeatherSource) *GardenService {
	return &GardenService{states: states, weather: weather}
}

// GardenView is the garden as shown to the user.
type GardenView struct {
	model.GardenState
	StageName string          `json:"stage_name"`
	HealthKey string          `json:"health_key"`
	Weather   *weather.Report `json:"weather,omitempty"`
}

// View returns the garden with freshly evaluated environment flags. When at
// is given and weather is configured, real rain replaces the streak rule.
func (s *GardenService) View(ctx context.Context, userID int64, at *Coordinates) (*GardenView, error) {
	var report *weather.Report
	if at != nil && s.weather != nil {
		r, err := s.weather.Current(ctx, at.Lat, at.Lon)
		if err != nil {
			log.Warn().Err(err).Msg("Weather unavailable, using streak rule")
		} else {
			report = &r
		}
	}

	st, err := s.states.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.states.Now()
	today := st.Log.Day(ledger.DateKey(now))
	in := garden.EnvironmentInput{
		Today:    today,
		Streak:   st.Profile.CurrentStreak,
		Hour:     now.Hour(),
		Progress: ledger.Progress(today),
	}
	if report != nil {
		raining := report.Raining()
		in.Raining = &raining
	}

	g := st.Garden
	g.Environment = garden.EvaluateEnvironment(in)
	return &GardenView{
		GardenState: g,
		StageName:   garden.StageName(g.TreeLevel),
		HealthKey:   garden.HealthKey(g.TreeHealth),
		Weather:     report,
	}, nil
}

// UpdateHealth applies the health change for a prayer performed with status.
func (s *GardenService) UpdateHealth(ctx context.Context, userID int64, status garden.PrayerStatus) (*garden.Notice, int, error) {
	var notice garden.Notice
	var health int
	err := s.states.With(ctx, userID, func(st *UserState) error {
		g, n, err := garden.UpdateHealth(st.Garden, status)
		if err != nil {
			return err
		}
		st.Garden = g
		notice, health = n, g.TreeHealth
		s.states.persistGarden(st)
		s.states.Publish(events.GardenNotice{UserID: userID, Key: n.Key, Args: n.Args})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &notice, health, nil
}

// SetTreeType plants an unlocked species.
func (s *GardenService) SetTreeType(ctx context.Context, userID int64, species string) error {
	return s.states.With(ctx, userID, func(st *UserState) error {
		g, err := garden.SetTreeType(st.Garden, species)
		if err != nil {
			return err
		}
		st.Garden = g
		s.states.persistGarden(st)
		return nil
	})
}
