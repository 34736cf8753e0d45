// Package relay holds the two outbound relays: the speech recognition proxy
// and the release announcement mailer.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
)

// Transcription errors.
var (
	ErrNoToken       = errors.New("server configuration error: API token not found")
	ErrNoAudio       = errors.New("no audio data received")
	ErrAudioTooShort = errors.New("audio too short, please record longer")
	ErrAudioTooLarge = errors.New("audio too large")
	ErrBadModel      = errors.New("invalid model name")
)

// Transcription defaults.
const (
	DefaultModel         = "tarteel-ai/whisper-base-ar-quran"
	DefaultContentType   = "audio/webm"
	DefaultMinBytes      = 1000
	DefaultEstimatedTime = 30
)

// Each segment starts with a letter or digit, so "." and ".." never match.
var modelName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*(/[A-Za-z0-9][A-Za-z0-9_.-]*)?$`)

// UpstreamError is a non-success answer from the inference API.
type UpstreamError struct {
	Status  int
	Message string
	// EstimatedTime is set when the model is still loading.
	EstimatedTime int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("inference api status %d: %s", e.Status, e.Message)
}

// Loading reports whether the model was cold and the caller should retry.
func (e *UpstreamError) Loading() bool {
	return e.Status == http.StatusServiceUnavailable
}

// Transcriber forwards recorded audio to the inference API.
type Transcriber struct {
	cfg  config.TranscribeConfig
	http *http.Client
}

// NewTranscriber creates a transcriber.
func NewTranscriber(cfg config.TranscribeConfig) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Transcriber{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// MaxBytes is the largest accepted upload, zero meaning unlimited.
func (t *Transcriber) MaxBytes() int64 {
	return t.cfg.MaxBytes
}

// Transcribe sends audio to model, or the configured model when empty, and
// returns the upstream JSON unchanged.
func (t *Transcriber) Transcribe(ctx context.Context, model, contentType string, audio []byte) (json.RawMessage, error) {
	if t.cfg.Token == "" {
		return nil, ErrNoToken
	}
	if len(audio) == 0 {
		return nil, ErrNoAudio
	}
	if len(audio) < t.cfg.MinBytes {
		return nil, ErrAudioTooShort
	}
	if t.cfg.MaxBytes > 0 && int64(len(audio)) > t.cfg.MaxBytes {
		return nil, ErrAudioTooLarge
	}
	if model == "" {
		model = t.cfg.Model
	}
	if !modelName.MatchString(model) {
		return nil, ErrBadModel
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	segments := strings.Split(model, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	target, err := url.JoinPath(t.cfg.Endpoint, segments...)
	if err != nil {
		return nil, fmt.Errorf("failed to build inference url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)
	req.Header.Set("Content-Type", contentType)

	log.Debug().Int("bytes", len(audio)).Str("model", model).Msg("Forwarding audio for transcription")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inference api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	var parsed struct {
		Error         string  `json:"error"`
		EstimatedTime float64 `json:"estimated_time"`
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		_ = json.Unmarshal(body, &parsed)
		eta := DefaultEstimatedTime
		if parsed.EstimatedTime > 0 {
			eta = int(math.Ceil(parsed.EstimatedTime))
		}
		return nil, &UpstreamError{
			Status:        resp.StatusCode,
			Message:       fmt.Sprintf("Model sedang dipersiapkan (~%d detik). Coba lagi nanti.", eta),
			EstimatedTime: eta,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(body, &parsed)
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("Inference API error (%d)", resp.StatusCode)
		}
		log.Warn().Int("status", resp.StatusCode).Str("error", msg).Msg("Inference API error")
		return nil, &UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("inference api returned invalid json")
	}
	return body, nil
}
