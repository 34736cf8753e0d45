package prayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUpstream is returned when the timetable API answers without data.
var ErrUpstream = errors.New("prayer api returned no data")

// Client talks to the myquran v2 timetable API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL, e.g. https://api.myquran.com/v2.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope[T any] struct {
	Status bool `json:"status"`
	Data   T    `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call prayer api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode prayer api response: %w", err)
	}
	return nil
}

// SearchCities looks up cities whose name contains keyword.
func (c *Client) SearchCities(ctx context.Context, keyword string) ([]City, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	var body envelope[[]struct {
		ID     string `json:"id"`
		Lokasi string `json:"lokasi"`
	}]
	if err := c.get(ctx, "/sholat/kota/cari/"+url.PathEscape(keyword), &body); err != nil {
		return nil, err
	}
	if !body.Status {
		return nil, nil
	}

	cities := make([]City, 0, len(body.Data))
	for _, d := range body.Data {
		cities = append(cities, City{ID: d.ID, Name: d.Lokasi})
	}
	return cities, nil
}

// Schedule fetches the timetable of cityID on date.
func (c *Client) Schedule(ctx context.Context, cityID string, date time.Time) (*Schedule, error) {
	if cityID == "" {
		return nil, ErrCityMissing
	}

	var body envelope[struct {
		Jadwal *Schedule `json:"jadwal"`
	}]
	path := fmt.Sprintf("/sholat/jadwal/%s/%d/%d/%d", url.PathEscape(cityID), date.Year(), int(date.Month()), date.Day())
	if err := c.get(ctx, path, &body); err != nil {
		return nil, err
	}
	if !body.Status || body.Data.Jadwal == nil {
		return nil, ErrUpstream
	}
	return body.Data.Jadwal, nil
}
