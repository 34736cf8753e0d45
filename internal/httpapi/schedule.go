package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/prayer"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

func (s *Server) handlePrayerToday(c *gin.Context) {
	today, err := s.deps.Prayers.Today(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, today)
}

func (s *Server) handleCities(c *gin.Context) {
	cities, err := s.deps.Prayers.SearchCities(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}

type cityRequest struct {
	ID   string `json:"id" validate:"required,max=16"`
	Name string `json:"name" validate:"required,max=100"`
}

func (s *Server) handleSelectCity(c *gin.Context) {
	var req cityRequest
	if !bind(c, &req) {
		return
	}
	city := prayer.City{ID: req.ID, Name: req.Name}
	if err := s.deps.Prayers.SelectCity(c.Request.Context(), profile(c).ID, city); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"city": city})
}

// handleCountdown streams the next prayer as server-sent events, one per
// second, until the client goes away.
func (s *Server) handleCountdown(c *gin.Context) {
	userID := profile(c).ID
	started := false

	err := s.deps.Prayers.Watch(c.Request.Context(), userID, func(view *service.PrayerToday) {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
			started = true
		}
		c.SSEvent("countdown", gin.H{
			"city":  view.City,
			"next":  view.Next,
			"theme": view.Theme,
		})
		c.Writer.Flush()
	})
	if err == nil {
		return
	}
	if !started {
		fail(c, err)
		return
	}
	log.Warn().Err(err).Int64("user_id", userID).Msg("Countdown stream ended")
}

func (s *Server) handleTheme(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Prayers.Theme(c.Request.Context(), profile(c).ID))
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	kind := c.DefaultQuery("kind", model.LeaderboardAllTime)
	if kind != model.LeaderboardAllTime && kind != model.LeaderboardWeekly {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown leaderboard kind"})
		return
	}
	entries, err := s.deps.Ranking.Leaderboard(c.Request.Context(), kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"entries": entries,
		"rank":    service.UserRank(entries, profile(c).ID),
	})
}
