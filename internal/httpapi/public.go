package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/relay"
)

// handleTranscribe relays recorded audio to the speech recognition model.
func (s *Server) handleTranscribe(c *gin.Context) {
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", "POST, OPTIONS")
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed. Use POST."})
		return
	}
	if s.deps.Transcriber == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": relay.ErrNoToken.Error()})
		return
	}

	body := io.Reader(c.Request.Body)
	if limit := s.deps.Transcriber.MaxBytes(); limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	audio, err := io.ReadAll(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read audio"})
		return
	}

	result, err := s.deps.Transcriber.Transcribe(c.Request.Context(), c.Query("model"), c.ContentType(), audio)
	var upstream *relay.UpstreamError
	switch {
	case err == nil:
		c.Data(http.StatusOK, "application/json; charset=utf-8", result)
	case errors.Is(err, relay.ErrNoToken):
		log.Error().Msg("Transcription token is not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, relay.ErrNoAudio),
		errors.Is(err, relay.ErrAudioTooShort),
		errors.Is(err, relay.ErrBadModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, relay.ErrAudioTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.As(err, &upstream):
		if upstream.Loading() {
			c.Header("Retry-After", strconv.Itoa(upstream.EstimatedTime))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":          upstream.Message,
				"estimated_time": upstream.EstimatedTime,
			})
			return
		}
		c.JSON(upstream.Status, gin.H{"error": upstream.Message, "status": upstream.Status})
	default:
		log.Error().Err(err).Msg("Transcription failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error during transcription.",
			"details": err.Error(),
		})
	}
}

func (s *Server) handleContent(c *gin.Context) {
	if s.deps.Content == nil {
		fail(c, errUnavailable)
		return
	}
	c.JSON(http.StatusOK, s.deps.Content.Fetch(c.Request.Context()))
}

func (s *Server) handleWeather(c *gin.Context) {
	if s.deps.Weather == nil {
		fail(c, errUnavailable)
		return
	}
	at, ok := coordinates(c)
	if !ok || at == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon are required"})
		return
	}
	report, err := s.deps.Weather.Current(c.Request.Context(), at.Lat, at.Lon)
	if err != nil {
		log.Warn().Err(err).Msg("Weather lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weather": report, "raining": report.Raining()})
}
