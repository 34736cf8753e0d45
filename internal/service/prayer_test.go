package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/theme"
)

type fakeTimetables struct {
	schedule *prayer.Schedule
	calls    int
}

func (f *fakeTimetables) SearchCities(_ context.Context, keyword string) ([]prayer.City, error) {
	return []prayer.City{{ID: "1301", Name: "KOTA " + keyword}}, nil
}

func (f *fakeTimetables) ForDate(_ context.Context, cityID string, _ time.Time) (*prayer.Schedule, error) {
	f.calls++
	if cityID == "" {
		return nil, prayer.ErrCityMissing
	}
	return f.schedule, nil
}

var jakartaToday = &prayer.Schedule{
	Date: "2024-05-01", Imsak: "04:25", Subuh: "04:35", Terbit: "05:52", Dhuha: "06:20",
	Dzuhur: "11:55", Ashar: "15:15", Maghrib: "17:52", Isya: "19:04",
}

func TestPrayerService(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "ahmad")
	src := &fakeTimetables{schedule: jakartaToday}
	svc := NewPrayerService(env.profiles, env.states, src)
	ctx := context.Background()

	popular, err := svc.SearchCities(ctx, " ")
	require.NoError(t, err)
	assert.Equal(t, prayer.PopularCities, popular)

	_, err = svc.Today(ctx, 1)
	assert.ErrorIs(t, err, prayer.ErrCityMissing)
	assert.Equal(t, theme.Dzuhur, svc.Theme(ctx, 1).Period)

	require.NoError(t, svc.SelectCity(ctx, 1, prayer.City{ID: "1301", Name: "KOTA JAKARTA"}))
	p, err := env.profiles.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1301", p.CityID)

	today, err := svc.Today(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dzuhur", today.Next.Name)
	assert.Equal(t, theme.Dhuha, today.Theme.Period)

	env.now = time.Date(2024, 5, 1, 18, 0, 0, 0, env.loc)
	assert.Equal(t, theme.Maghrib, svc.Theme(ctx, 1).Period)
}

func TestPrayerWatch_StopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(1, "ahmad")
	svc := NewPrayerService(env.profiles, env.states, &fakeTimetables{schedule: jakartaToday})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.SelectCity(ctx, 1, prayer.City{ID: "1301", Name: "KOTA JAKARTA"}))

	var got []*PrayerToday
	err := svc.Watch(ctx, 1, func(v *PrayerToday) {
		got = append(got, v)
		cancel()
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "KOTA JAKARTA", got[0].City.Name)
}
