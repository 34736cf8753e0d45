package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/message"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/garden"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/i18n"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// printer localises feedback for the caller's Accept-Language.
func printer(c *gin.Context) *message.Printer {
	return i18n.Printer(i18n.Parse(c.GetHeader("Accept-Language")))
}

func noticeText(c *gin.Context, n *garden.Notice) string {
	if n == nil || n.Key == "" {
		return ""
	}
	return printer(c).Sprintf(n.Key, n.Args...)
}

func (s *Server) handleMe(c *gin.Context) {
	p, err := s.deps.Accounts.Profile(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p, "is_admin": s.deps.Accounts.IsAdmin(p)})
}

type emailRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
}

func (s *Server) handleSetEmail(c *gin.Context) {
	var req emailRequest
	if !bind(c, &req) {
		return
	}
	if err := s.deps.Accounts.SetEmail(c.Request.Context(), profile(c).ID, req.Email); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSession(c *gin.Context) {
	out, err := s.deps.Tracker.StartSession(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	notices := make([]string, 0, len(out.Notices))
	for i := range out.Notices {
		notices = append(notices, noticeText(c, &out.Notices[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"streak":         out.Streak.Current,
		"login_days":     out.Streak.TotalDays,
		"streak_reset":   out.Streak.Reset,
		"unlocked":       out.Unlocked,
		"health_penalty": out.Discipline.Penalty,
		"notices":        notices,
	})
}

func (s *Server) handleMinute(c *gin.Context) {
	minutes, unlocked, err := s.deps.Tracker.AccrueMinute(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minutes_active": minutes, "unlocked": unlocked})
}

func (s *Server) handleSummary(c *gin.Context) {
	sum, err := s.deps.Tracker.Summary(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleToggle(c *gin.Context) {
	out, err := s.deps.Tracker.Toggle(c.Request.Context(), profile(c).ID, c.Param("act"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"act":        out.ActID,
		"added":      out.Added,
		"xp":         out.NewXP,
		"delta":      out.Delta,
		"level":      out.Level,
		"progress":   out.Progress,
		"milestones": out.Milestones,
		"unlocked":   out.Unlocked,
		"garden":     noticeText(c, out.Garden),
	})
}

type listenedRequest struct {
	Surah int `json:"surah" validate:"required,min=1,max=114"`
}

func (s *Server) handleListened(c *gin.Context) {
	var req listenedRequest
	if !bind(c, &req) {
		return
	}
	added, unlocked, err := s.deps.Tracker.MarkListened(c.Request.Context(), profile(c).ID, req.Surah)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "unlocked": unlocked})
}

func (s *Server) handleBadges(c *gin.Context) {
	views, err := s.deps.Tracker.Badges(c.Request.Context(), profile(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": views})
}

func (s *Server) handleClaim(c *gin.Context) {
	out, err := s.deps.Tracker.ClaimBadge(c.Request.Context(), profile(c).ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"badge":      out.BadgeID,
		"bonus":      out.Bonus,
		"xp":         out.NewXP,
		"level":      out.Level,
		"milestones": out.Milestones,
		"unlocked":   out.Unlocked,
	})
}

// coordinates parses optional lat/lon query parameters.
func coordinates(c *gin.Context) (*service.Coordinates, bool) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" && lonStr == "" {
		return nil, true
	}
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, false
	}
	return &service.Coordinates{Lat: lat, Lon: lon}, true
}

func (s *Server) handleGarden(c *gin.Context) {
	at, ok := coordinates(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return
	}
	view, err := s.deps.Gardens.View(c.Request.Context(), profile(c).ID, at)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"garden":        view,
		"health_status": printer(c).Sprintf(view.HealthKey),
	})
}

type healthRequest struct {
	Status string `json:"status" validate:"required,oneof=ontime late missed"`
}

func (s *Server) handleGardenHealth(c *gin.Context) {
	var req healthRequest
	if !bind(c, &req) {
		return
	}
	notice, health, err := s.deps.Gardens.UpdateHealth(c.Request.Context(), profile(c).ID, garden.PrayerStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree_health": health, "message": noticeText(c, notice)})
}

type treeRequest struct {
	Species string `json:"species" validate:"required"`
}

func (s *Server) handleTreeType(c *gin.Context) {
	var req treeRequest
	if !bind(c, &req) {
		return
	}
	if err := s.deps.Gardens.SetTreeType(c.Request.Context(), profile(c).ID, req.Species); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
