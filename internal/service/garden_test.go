package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/catalog"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/weather"
)

type fakeWeather struct {
	report weather.Report
	err    error
}

func (f fakeWeather) Current(context.Context, float64, float64) (weather.Report, error) {
	return f.report, f.err
}

func TestGardenView_Environment(t *testing.T) {
	env := newTestEnv(t)
	p := env.addUser(1, "ahmad")
	p.CurrentStreak = 5
	env.profiles.put(p)
	env.now = time.Date(2024, 5, 1, 20, 0, 0, 0, env.loc)
	ctx := context.Background()

	tracker := NewTrackerService(env.states, nil, 0)
	_, err := tracker.Toggle(ctx, 1, catalog.ActSedekah)
	require.NoError(t, err)
	_, err = tracker.Toggle(ctx, 1, catalog.ActTahajjud)
	require.NoError(t, err)

	svc := NewGardenService(env.states, nil)
	v, err := svc.View(ctx, 1, &Coordinates{Lat: -6.2, Lon: 106.8})
	require.NoError(t, err)
	assert.True(t, v.Environment.Rain)
	assert.True(t, v.Environment.Butterflies)
	assert.True(t, v.Environment.Fireflies)
	assert.False(t, v.Environment.GoldenFruit)
	assert.Equal(t, "Benih", v.StageName)
	assert.Nil(t, v.Weather)

	dry := NewGardenService(env.states, fakeWeather{report: weather.Report{Precipitation: weather.None}})
	v, err = dry.View(ctx, 1, &Coordinates{Lat: -6.2, Lon: 106.8})
	require.NoError(t, err)
	assert.False(t, v.Environment.Rain)
	require.NotNil(t, v.Weather)

	broken := NewGardenService(env.states, fakeWeather{err: errors.New("timeout")})
	v, err = broken.View(ctx, 1, &Coordinates{})
	require.NoError(t, err)
	assert.True(t, v.Environment.Rain)
}

func TestGardenUpdateHealthAndSpecies(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "ahmad")
	svc := NewGardenService(env.states, nil)
	ctx := context.Background()

	n, health, err := svc.UpdateHealth(ctx, 1, garden.StatusMissed)
	require.NoError(t, err)
	assert.Equal(t, i18n.GardenMissed, n.Key)
	assert.Equal(t, 70, health)
	assert.Equal(t, 70, env.gardens.data[1].TreeHealth)

	_, _, err = svc.UpdateHealth(ctx, 1, "forgot")
	assert.ErrorIs(t, err, garden.ErrUnknownStatus)

	assert.ErrorIs(t, svc.SetTreeType(ctx, 1, garden.SpeciesKurma), garden.ErrSpeciesLocked)
	assert.ErrorIs(t, svc.SetTreeType(ctx, 1, "bonsai"), garden.ErrUnknownSpecies)
	require.NoError(t, svc.SetTreeType(ctx, 1, garden.SpeciesBasic))
}
