package audio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakePlayer struct {
	played []Track
	stops  int
}

func (p *fakePlayer) Play(_ context.Context, t Track) error {
	p.played = append(p.played, t)
	return nil
}
func (p *fakePlayer) Pause() error  { return nil }
func (p *fakePlayer) Resume() error { return nil }
func (p *fakePlayer) Stop() error {
	p.stops++
	return nil
}

type fakeSource struct {
	fail bool
}

func (s fakeSource) Surah(_ context.Context, n int) (*Surah, error) {
	if s.fail {
		return nil, errors.New("offline")
	}
	return makeSurah(n, 2), nil
}

func makeSurah(n, verses int) *Surah {
	s := &Surah{Number: n, NameLatin: fmt.Sprintf("Surah %d", n)}
	for i := 1; i <= verses; i++ {
		s.Ayat = append(s.Ayat, Ayat{
			Number: i,
			Audio:  map[string]string{"01": fmt.Sprintf("https://cdn/01/%03d%03d.mp3", n, i), "05": fmt.Sprintf("https://cdn/05/%03d%03d.mp3", n, i)},
		})
	}
	return s
}

func newController(src Source) (*Controller, *fakePlayer, *[]int) {
	p := &fakePlayer{}
	var listened []int
	c := NewController(p, src, func(n int) { listened = append(listened, n) })
	return c, p, &listened
}

func TestSingleModeStopsAfterTrack(t *testing.T) {
	ctx := context.Background()
	c, p, _ := newController(fakeSource{})
	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 7), 0))

	require.NoError(t, c.Ended(ctx))
	assert.Equal(t, Stopped, c.Snapshot().State)
	assert.Len(t, p.played, 1)
}

func TestAyatModeRepeats(t *testing.T) {
	ctx := context.Background()
	c, p, _ := newController(fakeSource{})
	require.NoError(t, c.SetMode(ModeAyat))
	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 7), 3))

	require.NoError(t, c.Ended(ctx))
	require.NoError(t, c.Ended(ctx))
	require.Len(t, p.played, 3)
	for _, tr := range p.played {
		assert.Equal(t, 3, tr.Index)
	}
}

func TestSurahModeLoopsAndMarksListened(t *testing.T) {
	ctx := context.Background()
	c, p, listened := newController(fakeSource{})
	require.NoError(t, c.SetMode(ModeSurah))
	require.NoError(t, c.PlaySurah(ctx, makeSurah(112, 2), 0))

	require.NoError(t, c.Ended(ctx))
	require.NoError(t, c.Ended(ctx))

	assert.Equal(t, []int{112}, *listened)
	assert.Equal(t, 0, p.played[len(p.played)-1].Index)
	assert.Equal(t, Playing, c.Snapshot().State)
}

func TestContinuousModeFetchesNextSurah(t *testing.T) {
	ctx := context.Background()
	c, _, listened := newController(fakeSource{})
	require.NoError(t, c.SetMode(ModeContinuous))
	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 1), 0))

	require.NoError(t, c.Ended(ctx))
	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Surah)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, []int{1}, *listened)
}

func TestContinuousModeStopsAtLastSurah(t *testing.T) {
	ctx := context.Background()
	c, p, listened := newController(fakeSource{})
	require.NoError(t, c.SetMode(ModeContinuous))
	require.NoError(t, c.PlaySurah(ctx, makeSurah(114, 1), 0))

	require.NoError(t, c.Ended(ctx))
	assert.Equal(t, Stopped, c.Snapshot().State)
	assert.Equal(t, []int{114}, *listened)
	assert.Equal(t, 1, p.stops)
}

func TestContinuousModeStopsOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(fakeSource{fail: true})
	require.NoError(t, c.SetMode(ModeContinuous))
	require.NoError(t, c.PlaySurah(ctx, makeSurah(5, 1), 0))

	require.NoError(t, c.Ended(ctx))
	assert.Equal(t, Stopped, c.Snapshot().State)
	assert.Equal(t, -1, c.Snapshot().Index)
}

func TestSetQariRestartsCurrentItem(t *testing.T) {
	ctx := context.Background()
	c, p, _ := newController(fakeSource{})
	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 7), 2))

	require.NoError(t, c.SetQari(ctx, "05"))
	last := p.played[len(p.played)-1]
	assert.Equal(t, 2, last.Index)
	assert.Equal(t, "https://cdn/05/001003.mp3", last.URL)

	assert.ErrorIs(t, c.SetQari(ctx, "99"), ErrUnknownQari)
}

func TestToggleAndStop(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(fakeSource{})
	assert.ErrorIs(t, c.Toggle(), ErrNothingLoaded)

	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 7), 0))
	require.NoError(t, c.Toggle())
	assert.Equal(t, Paused, c.Snapshot().State)
	require.NoError(t, c.Toggle())
	assert.Equal(t, Playing, c.Snapshot().State)

	require.NoError(t, c.Stop())
	assert.Equal(t, Stopped, c.Snapshot().State)
	assert.ErrorIs(t, c.SetMode("shuffle"), ErrUnknownMode)
}

func TestPlayAyatOutOfRangeStops(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(fakeSource{})
	require.NoError(t, c.PlaySurah(ctx, makeSurah(1, 7), 0))
	require.NoError(t, c.PlayAyat(ctx, 7))
	assert.Equal(t, Stopped, c.Snapshot().State)
}

// TestControllerInvariantsProperty drives the controller with random events
// and checks that a playing controller always points at a valid ayat.
func TestControllerInvariantsProperty(t *testing.T) {
	modes := []Mode{ModeSingle, ModeAyat, ModeSurah, ModeContinuous}
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		c, _, listened := newController(fakeSource{fail: rapid.Bool().Draw(t, "fail")})
		_ = c.SetMode(rapid.SampledFrom(modes).Draw(t, "mode"))
		start := rapid.IntRange(100, 114).Draw(t, "surah")
		_ = c.PlaySurah(ctx, makeSurah(start, rapid.IntRange(1, 4).Draw(t, "verses")), 0)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = c.Ended(ctx)
			case 1:
				_ = c.Next(ctx)
			case 2:
				_ = c.Prev(ctx)
			case 3:
				_ = c.Toggle()
			}
			snap := c.Snapshot()
			if snap.State != Stopped && (snap.Index < 0 || snap.Index >= snap.Total) {
				t.Fatalf("state %s with index %d of %d", snap.State, snap.Index, snap.Total)
			}
			if snap.Surah > LastSurah {
				t.Fatalf("advanced past the last surah: %d", snap.Surah)
			}
		}
		for i := 1; i < len(*listened); i++ {
			if (*listened)[i] < (*listened)[i-1] {
				t.Fatalf("listened order went backwards: %v", *listened)
			}
		}
	})
}

func TestEquranSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/surat/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"nomor":1,"namaLatin":"Al-Fatihah","ayat":[
			{"nomorAyat":1,"teksArab":"بِسْمِ","audio":{"01":"https://cdn/01/001001.mp3"}}]}}`))
	}))
	defer srv.Close()

	src := NewEquranSource(srv.URL, 5*time.Second)
	s, err := src.Surah(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Al-Fatihah", s.NameLatin)
	assert.Equal(t, "https://cdn/01/001001.mp3", s.Ayat[0].Audio["01"])

	_, err = src.Surah(context.Background(), 2)
	assert.Error(t, err)
	_, err = src.Surah(context.Background(), 115)
	assert.Error(t, err)
}
