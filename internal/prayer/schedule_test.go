package prayer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var jakarta = &Schedule{
	Tanggal: "Rabu, 01/05/2024",
	Date:    "2024-05-01",
	Imsak:   "04:25",
	Subuh:   "04:35",
	Terbit:  "05:52",
	Dhuha:   "06:20",
	Dzuhur:  "11:55",
	Ashar:   "15:15",
	Maghrib: "17:52",
	Isya:    "19:04",
}

func at(h, m, s int) time.Time {
	return time.Date(2024, 5, 1, h, m, s, 0, time.UTC)
}

func TestCountdown(t *testing.T) {
	next, err := Countdown(jakarta, at(10, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "Dzuhur", next.Name)
	assert.Equal(t, "01:55:00", next.Countdown)

	next, err = Countdown(jakarta, at(11, 54, 59))
	require.NoError(t, err)
	assert.Equal(t, "Dzuhur", next.Name)
	assert.Equal(t, "00:00:01", next.Countdown)
}

func TestCountdown_EventAtCurrentMinuteHasPassed(t *testing.T) {
	next, err := Countdown(jakarta, at(11, 55, 0))
	require.NoError(t, err)
	assert.Equal(t, "Ashar", next.Name)
}

func TestCountdown_SkipsTerbitAndDhuha(t *testing.T) {
	next, err := Countdown(jakarta, at(5, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "Dzuhur", next.Name)
}

func TestCountdown_WrapsToTomorrow(t *testing.T) {
	next, err := Countdown(jakarta, at(19, 4, 30))
	require.NoError(t, err)
	assert.True(t, next.Tomorrow)
	assert.Equal(t, "Subuh (besok)", next.Name)
	assert.Equal(t, "04:35", next.Time)
	assert.Equal(t, Placeholder, next.Countdown)
}

func TestCountdown_Errors(t *testing.T) {
	_, err := Countdown(nil, at(1, 0, 0))
	assert.ErrorIs(t, err, ErrNoSchedule)

	bad := *jakarta
	bad.Imsak = "4.25"
	_, err = Countdown(&bad, at(1, 0, 0))
	assert.ErrorIs(t, err, ErrBadClock)
}

func TestAdjust(t *testing.T) {
	adj, err := jakarta.Adjust(2)
	require.NoError(t, err)
	assert.Equal(t, "04:37", adj.Subuh)
	assert.Equal(t, "05:50", adj.Terbit)
	assert.Equal(t, "19:06", adj.Isya)
	assert.Equal(t, "04:35", jakarta.Subuh)
}

func TestThemeTimes(t *testing.T) {
	tt, err := jakarta.ThemeTimes()
	require.NoError(t, err)
	assert.Equal(t, 4*60+35, tt.Fajr)
	assert.Equal(t, 19*60+4, tt.Isha)
}

// TestCountdownStrictlyAfterProperty checks that the chosen event is always
// the first candidate strictly after the current minute.
func TestCountdownStrictlyAfterProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := at(0, 0, 0).Add(time.Duration(rapid.IntRange(0, 86399).Draw(t, "second")) * time.Second)
		next, err := Countdown(jakarta, now)
		if err != nil {
			t.Fatal(err)
		}
		current := now.Hour()*60 + now.Minute()
		if next.Tomorrow {
			isya, _ := ParseClock(jakarta.Isya)
			if current < isya {
				t.Fatalf("wrapped to tomorrow at %s", now.Format("15:04:05"))
			}
			return
		}
		m, _ := ParseClock(next.Time)
		if m <= current {
			t.Fatalf("next %s at %s is not after %s", next.Name, next.Time, now.Format("15:04"))
		}
		if next.Remaining <= 0 || next.Remaining > 24*time.Hour {
			t.Fatalf("remaining %v out of range", next.Remaining)
		}
	})
}
