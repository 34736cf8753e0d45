// Package audio sequences Qur'an recitation clips.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// LastSurah is the final surah number of the continuous sequence.
const LastSurah = 114

// State is the playback state.
type State string

const (
	Stopped State = "stopped"
	Playing State = "playing"
	Paused  State = "paused"
)

// Mode decides what happens when a track ends.
type Mode string

const (
	// ModeSingle stops after the current ayat.
	ModeSingle Mode = "single"
	// ModeAyat repeats the current ayat.
	ModeAyat Mode = "ayat"
	// ModeSurah plays the surah to the end and loops it.
	ModeSurah Mode = "surah"
	// ModeContinuous plays the surah then moves on to the next one.
	ModeContinuous Mode = "continuous"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSingle, ModeAyat, ModeSurah, ModeContinuous:
		return true
	}
	return false
}

var (
	ErrNothingLoaded = errors.New("no surah loaded")
	ErrUnknownQari   = errors.New("unknown qari")
	ErrUnknownMode   = errors.New("unknown playback mode")
)

// Qari is a reciter.
type Qari struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Qaris lists the available reciters.
var Qaris = []Qari{
	{"01", "Abdullah Al-Juhany"},
	{"02", "Abdul-Muhsin Al-Qasim"},
	{"03", "Abdurrahman As-Sudais"},
	{"04", "Ibrahim Al-Dossari"},
	{"05", "Misyari Rasyid Al-Afasi"},
	{"06", "Akram Al-Alaqmi"},
}

// DefaultQari is the reciter used until one is picked.
const DefaultQari = "01"

// QariName returns the reciter's name.
func QariName(id string) (string, bool) {
	for _, q := range Qaris {
		if q.ID == id {
			return q.Name, true
		}
	}
	return "", false
}

// Ayat is one verse with its recitation URLs keyed by qari id.
type Ayat struct {
	Number int               `json:"nomorAyat"`
	Arabic string            `json:"teksArab"`
	Latin  string            `json:"teksLatin"`
	Text   string            `json:"teksIndonesia"`
	Audio  map[string]string `json:"audio"`
}

// Surah is a chapter with its verses.
type Surah struct {
	Number    int    `json:"nomor"`
	NameLatin string `json:"namaLatin"`
	Ayat      []Ayat `json:"ayat"`
}

// Track is what the player is asked to play.
type Track struct {
	Surah     int
	SurahName string
	Index     int
	Ayat      Ayat
	Qari      string
	URL       string
}

// Title is the media title of the track.
func (t Track) Title() string {
	return fmt.Sprintf("QS. %s [Ayat %d]", t.SurahName, t.Index+1)
}

// Player renders tracks.
type Player interface {
	Play(ctx context.Context, t Track) error
	Pause() error
	Resume() error
	Stop() error
}

// Source loads surahs by number.
type Source interface {
	Surah(ctx context.Context, number int) (*Surah, error)
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	State     State  `json:"state"`
	Mode      Mode   `json:"mode"`
	Qari      string `json:"qari"`
	Surah     int    `json:"surah"`
	SurahName string `json:"surah_name"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
}

// Controller is the playback state machine of one listener.
type Controller struct {
	mu sync.Mutex

	player Player
	source Source
	// onListened is called with the surah number whenever a surah plays to
	// its end.
	onListened func(surah int)

	state State
	mode  Mode
	qari  string
	surah *Surah
	index int
}

// NewController creates a stopped controller in single mode.
func NewController(player Player, source Source, onListened func(int)) *Controller {
	if onListened == nil {
		onListened = func(int) {}
	}
	return &Controller{
		player:     player,
		source:     source,
		onListened: onListened,
		state:      Stopped,
		mode:       ModeSingle,
		qari:       DefaultQari,
		index:      -1,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{State: c.state, Mode: c.mode, Qari: c.qari, Index: c.index}
	if c.surah != nil {
		s.Surah = c.surah.Number
		s.SurahName = c.surah.NameLatin
		s.Total = len(c.surah.Ayat)
	}
	return s
}

// SetMode changes the end-of-track behaviour.
func (c *Controller) SetMode(m Mode) error {
	if !m.Valid() {
		return ErrUnknownMode
	}
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
	return nil
}

// SetQari switches reciter. A playing track restarts with the new voice.
func (c *Controller) SetQari(ctx context.Context, id string) error {
	if _, ok := QariName(id); !ok {
		return ErrUnknownQari
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.qari = id
	if c.state == Playing && c.index >= 0 {
		return c.playAt(ctx, c.index)
	}
	return nil
}

// PlaySurah loads s and starts at ayat index start.
func (c *Controller) PlaySurah(ctx context.Context, s *Surah, start int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.surah = s
	return c.playAt(ctx, start)
}

// PlayAyat jumps to ayat index i of the loaded surah. An index out of range
// stops playback.
func (c *Controller) PlayAyat(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playAt(ctx, i)
}

// Toggle pauses a playing track or resumes a paused one.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		if err := c.player.Pause(); err != nil {
			return err
		}
		c.state = Paused
	case Paused:
		if err := c.player.Resume(); err != nil {
			return err
		}
		c.state = Playing
	default:
		return ErrNothingLoaded
	}
	return nil
}

// Stop halts playback and forgets the position.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop()
}

// Next skips to the following ayat, behaving like a track end when at the
// last one.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surah == nil {
		return ErrNothingLoaded
	}
	if c.index < len(c.surah.Ayat)-1 {
		return c.playAt(ctx, c.index+1)
	}
	return c.ended(ctx)
}

// Prev goes back one ayat.
func (c *Controller) Prev(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surah == nil {
		return ErrNothingLoaded
	}
	if c.index > 0 {
		return c.playAt(ctx, c.index-1)
	}
	return nil
}

// Ended handles the end of the current track according to the mode.
func (c *Controller) Ended(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended(ctx)
}

func (c *Controller) ended(ctx context.Context) error {
	if c.surah == nil || c.state == Stopped {
		return nil
	}

	switch c.mode {
	case ModeSingle:
		c.state = Stopped
		return nil
	case ModeAyat:
		return c.playAt(ctx, c.index)
	}

	if c.index < len(c.surah.Ayat)-1 {
		return c.playAt(ctx, c.index+1)
	}

	c.onListened(c.surah.Number)

	if c.mode == ModeSurah {
		return c.playAt(ctx, 0)
	}

	if c.surah.Number >= LastSurah {
		return c.stop()
	}
	next, err := c.source.Surah(ctx, c.surah.Number+1)
	if err != nil {
		log.Warn().Err(err).Int("surah", c.surah.Number+1).Msg("failed to load next surah")
		return c.stop()
	}
	c.surah = next
	return c.playAt(ctx, 0)
}

func (c *Controller) playAt(ctx context.Context, i int) error {
	if c.surah == nil {
		return ErrNothingLoaded
	}
	if i < 0 || i >= len(c.surah.Ayat) {
		return c.stop()
	}

	ayat := c.surah.Ayat[i]
	t := Track{
		Surah:     c.surah.Number,
		SurahName: c.surah.NameLatin,
		Index:     i,
		Ayat:      ayat,
		Qari:      c.qari,
		URL:       ayat.Audio[c.qari],
	}
	c.index = i
	if err := c.player.Play(ctx, t); err != nil {
		c.state = Stopped
		return fmt.Errorf("failed to play %s: %w", t.Title(), err)
	}
	c.state = Playing
	return nil
}

func (c *Controller) stop() error {
	c.state = Stopped
	c.index = -1
	return c.player.Stop()
}
