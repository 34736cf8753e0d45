// Package weather reads current conditions from open-meteo and reduces them
// to a precipitation level for the garden's rain overlay.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/cache"
)

// Precipitation is a coarse rain intensity.
type Precipitation string

// Precipitation levels.
const (
	None     Precipitation = "none"
	Light    Precipitation = "light"
	Moderate Precipitation = "moderate"
	Heavy    Precipitation = "heavy"
)

// Report is the reduced current weather at a location.
type Report struct {
	Code          int           `json:"code"`
	Precipitation Precipitation `json:"precipitation"`
	Temperature   float64       `json:"temperature"`
	ObservedAt    string        `json:"observed_at"`
}

// Raining reports whether any precipitation is falling.
func (r Report) Raining() bool {
	return r.Precipitation != None
}

// Classify maps a WMO weather code to a precipitation level.
func Classify(code int) Precipitation {
	switch code {
	case 51, 53, 56, 61, 66, 71, 77, 80, 85:
		return Light
	case 55, 57, 63, 73, 81, 86:
		return Moderate
	case 65, 67, 75, 82, 95, 96, 99:
		return Heavy
	default:
		return None
	}
}

// Client fetches reports and caches them per rounded coordinate.
type Client struct {
	baseURL string
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
}

// NewClient creates a client for baseURL, e.g.
// https://api.open-meteo.com/v1/forecast.
func NewClient(baseURL string, timeout time.Duration, c cache.Cache, ttl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   c,
		ttl:     ttl,
	}
}

// Current returns the weather at lat/lon, served from cache for the
// configured time to live.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Report, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Report{}, fmt.Errorf("invalid coordinates %f,%f", lat, lon)
	}
	key := fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
	return cache.GetOrLoad(ctx, c.cache, key, c.ttl, func(ctx context.Context) (Report, error) {
		return c.fetch(ctx, lat, lon)
	})
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (Report, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("failed to call weather api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var body struct {
		Current *struct {
			Temperature float64 `json:"temperature"`
			WeatherCode int     `json:"weathercode"`
			Time        string  `json:"time"`
		} `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if body.Current == nil {
		return Report{}, fmt.Errorf("weather response has no current_weather")
	}
	return Report{
		Code:          body.Current.WeatherCode,
		Precipitation: Classify(body.Current.WeatherCode),
		Temperature:   body.Current.Temperature,
		ObservedAt:    body.Current.Time,
	}, nil
}
