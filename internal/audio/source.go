package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// EquranSource loads surahs from the equran.id v2 API.
type EquranSource struct {
	baseURL string
	http    *http.Client
}

// NewEquranSource creates a source for baseURL, e.g. https://equran.id/api/v2.
func NewEquranSource(baseURL string, timeout time.Duration) *EquranSource {
	return &EquranSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Surah fetches one surah with its verses.
func (s *EquranSource) Surah(ctx context.Context, number int) (*Surah, error) {
	if number < 1 || number > LastSurah {
		return nil, fmt.Errorf("surah %d out of range", number)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/surat/%d", s.baseURL, number), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch surah %d: %w", number, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch surah %d: status %d", number, resp.StatusCode)
	}

	var body struct {
		Data *Surah `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode surah %d: %w", number, err)
	}
	if body.Data == nil || len(body.Data.Ayat) == 0 {
		return nil, fmt.Errorf("surah %d has no verses", number)
	}
	return body.Data, nil
}
