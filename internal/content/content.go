// Package content aggregates the public Islamic reference lists shown in the
// app: surahs, asmaul husna, daily prayers and prayer intentions.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/pkg/cache"
)

// ExcludedDoa is left out of the daily prayer list.
const ExcludedDoa = "Doa niat mandi junub"

// Section names used as cache keys and in Bundle.Errors.
const (
	SectionSurah        = "surah"
	SectionAsmaulHusna  = "asmaul_husna"
	SectionDoaHarian    = "doa_harian"
	SectionSholatWajib  = "sholat_wajib"
	SectionSholatSunnah = "sholat_sunnah"
)

// Surah is one entry of the surah index.
type Surah struct {
	Nomor       int    `json:"nomor"`
	Nama        string `json:"nama"`
	NamaLatin   string `json:"namaLatin"`
	Arti        string `json:"arti"`
	JumlahAyat  int    `json:"jumlahAyat"`
	TempatTurun string `json:"tempatTurun"`
}

// Item is an upstream record passed through unchanged.
type Item = map[string]any

// Bundle is the aggregated content. A section that failed to load is nil
// and its error is listed in Errors.
type Bundle struct {
	Surah        []Surah           `json:"surah"`
	AsmaulHusna  []Item            `json:"asmaulHusna"`
	DoaHarian    []Item            `json:"doaHarian"`
	SholatWajib  []Item            `json:"sholatWajib"`
	SholatSunnah []Item            `json:"sholatSunnah"`
	Errors       map[string]string `json:"errors,omitempty"`
}

// Aggregator fetches every section in parallel.
type Aggregator struct {
	cfg   config.ContentConfig
	http  *http.Client
	cache cache.Cache
}

// NewAggregator creates an aggregator over the configured endpoints.
func NewAggregator(cfg config.ContentConfig, c cache.Cache) *Aggregator {
	return &Aggregator{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: c,
	}
}

// Fetch loads all sections. One failing section does not affect the others.
func (a *Aggregator) Fetch(ctx context.Context) *Bundle {
	b := &Bundle{}
	var mu sync.Mutex
	fail := func(section string, err error) {
		log.Warn().Err(err).Str("section", section).Msg("Failed to load content")
		mu.Lock()
		defer mu.Unlock()
		if b.Errors == nil {
			b.Errors = make(map[string]string)
		}
		b.Errors[section] = err.Error()
	}

	var g errgroup.Group
	g.Go(func() error {
		v, err := load(ctx, a, SectionSurah, a.surahs)
		if err != nil {
			fail(SectionSurah, err)
			return nil
		}
		b.Surah = v
		return nil
	})
	items := []struct {
		section string
		url     string
		dst     *[]Item
		filter  func([]Item) []Item
	}{
		{SectionAsmaulHusna, a.cfg.AsmaulHusnaURL, &b.AsmaulHusna, nil},
		{SectionDoaHarian, a.cfg.DoaURL, &b.DoaHarian, FilterDoa},
		{SectionSholatWajib, a.cfg.NiatWajibURL, &b.SholatWajib, nil},
		{SectionSholatSunnah, a.cfg.NiatSunnahURL, &b.SholatSunnah, nil},
	}
	for _, it := range items {
		it := it
		g.Go(func() error {
			v, err := load(ctx, a, it.section, func(ctx context.Context) ([]Item, error) {
				list, err := a.items(ctx, it.url)
				if err != nil || it.filter == nil {
					return list, err
				}
				return it.filter(list), nil
			})
			if err != nil {
				fail(it.section, err)
				return nil
			}
			*it.dst = v
			return nil
		})
	}
	_ = g.Wait()
	return b
}

func load[T any](ctx context.Context, a *Aggregator, section string, fn func(context.Context) (T, error)) (T, error) {
	return cache.GetOrLoad(ctx, a.cache, "content:"+section, a.cfg.CacheTTL, fn)
}

// FilterDoa drops the excluded entry and renumbers the rest from 1.
func FilterDoa(list []Item) []Item {
	out := make([]Item, 0, len(list))
	for _, item := range list {
		if name, _ := item["namaDoa"].(string); name == ExcludedDoa {
			continue
		}
		copied := make(Item, len(item)+1)
		for k, v := range item {
			copied[k] = v
		}
		copied["urutan"] = len(out) + 1
		out = append(out, copied)
	}
	return out
}

func (a *Aggregator) surahs(ctx context.Context) ([]Surah, error) {
	var body struct {
		Data []struct {
			Number                 int    `json:"number"`
			Name                   string `json:"name"`
			EnglishName            string `json:"englishName"`
			EnglishNameTranslation string `json:"englishNameTranslation"`
			NumberOfAyahs          int    `json:"numberOfAyahs"`
			RevelationType         string `json:"revelationType"`
		} `json:"data"`
	}
	if err := a.get(ctx, a.cfg.SurahURL, &body); err != nil {
		return nil, err
	}

	out := make([]Surah, 0, len(body.Data))
	for _, s := range body.Data {
		place := "Madaniyah"
		if s.RevelationType == "Meccan" {
			place = "Makkiyah"
		}
		out = append(out, Surah{
			Nomor:       s.Number,
			Nama:        s.Name,
			NamaLatin:   s.EnglishName,
			Arti:        s.EnglishNameTranslation,
			JumlahAyat:  s.NumberOfAyahs,
			TempatTurun: place,
		})
	}
	return out, nil
}

func (a *Aggregator) items(ctx context.Context, url string) ([]Item, error) {
	var body struct {
		Data []Item `json:"data"`
	}
	if err := a.get(ctx, url, &body); err != nil {
		return nil, err
	}
	return body.Data, nil
}

func (a *Aggregator) get(ctx context.Context, url string, out any) error {
	if url == "" {
		return fmt.Errorf("endpoint not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, orDefault(a.cfg.Timeout, 10*time.Second))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
