package prayer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sholat/kota/cari/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"data":[{"id":"1301","lokasi":"KOTA JAKARTA"}]}`))
	})
	mux.HandleFunc("/sholat/jadwal/1301/2024/5/1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":true,"data":{"id":1301,"lokasi":"KOTA JAKARTA","jadwal":{
			"tanggal":"Rabu, 01/05/2024","imsak":"04:25","subuh":"04:35","terbit":"05:52","dhuha":"06:20",
			"dzuhur":"11:55","ashar":"15:15","maghrib":"17:52","isya":"19:04","date":"2024-05-01"}}}`))
	})
	mux.HandleFunc("/sholat/jadwal/9999/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false,"message":"not found"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	var hits atomic.Int32
	srv := newAPI(t, &hits)
	c := NewClient(srv.URL+"/", 5*time.Second)
	ctx := context.Background()

	cities, err := c.SearchCities(ctx, "jakarta")
	require.NoError(t, err)
	assert.Equal(t, []City{{ID: "1301", Name: "KOTA JAKARTA"}}, cities)

	s, err := c.Schedule(ctx, "1301", at(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "11:55", s.Dzuhur)

	_, err = c.Schedule(ctx, "9999", at(8, 0, 0))
	assert.ErrorIs(t, err, ErrUpstream)

	_, err = c.Schedule(ctx, "", at(8, 0, 0))
	assert.ErrorIs(t, err, ErrCityMissing)
}

func TestProvider_CacheHitSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := newAPI(t, &hits)
	ctx := context.Background()

	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "prayer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	p := NewProvider(NewClient(srv.URL, 5*time.Second), cache, 0)
	for i := 0; i < 3; i++ {
		s, err := p.ForDate(ctx, "1301", at(8, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, "04:35", s.Subuh)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestProvider_Ihtiyati(t *testing.T) {
	var hits atomic.Int32
	srv := newAPI(t, &hits)

	p := NewProvider(NewClient(srv.URL, 5*time.Second), nil, 3)
	s, err := p.ForDate(context.Background(), "1301", at(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "11:58", s.Dzuhur)
	assert.Equal(t, "05:49", s.Terbit)
}

func TestCachePrune(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "prayer.db"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, "1301", "2024-04-30", jakarta))
	require.NoError(t, cache.Put(ctx, "1301", "2024-05-01", jakarta))

	n, err := cache.Prune(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := cache.Get(ctx, "1301", "2024-04-30")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = cache.Get(ctx, "1301", "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, jakarta.Isya, s.Isya)
}

func TestWatch_StopsWithContext(t *testing.T) {
	var hits atomic.Int32
	srv := newAPI(t, &hits)
	p := NewProvider(NewClient(srv.URL, 5*time.Second), nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	var got []Next
	err := p.Watch(ctx, "1301", func() time.Time { return at(10, 0, 0) }, func(n Next) {
		got = append(got, n)
		cancel()
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dzuhur", got[0].Name)
}
