package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
)

func (s *Server) handleCommunities(c *gin.Context) {
	order := c.DefaultQuery("order", repository.OrderNewest)
	if order != repository.OrderNewest && order != repository.OrderPopular {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order must be newest or popular"})
		return
	}
	list, err := s.deps.Community.List(c.Request.Context(), order, 0)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": list})
}

func (s *Server) handleJoin(c *gin.Context) {
	if err := s.deps.Community.Join(c.Request.Context(), c.Param("id"), profile(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseBefore reads the history cursor. An absent cursor means the latest
// page.
func parseBefore(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Server) handleHistory(c *gin.Context) {
	before, ok := parseBefore(c.Query("before"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
		return
	}
	msgs, err := s.deps.Community.History(c.Request.Context(), c.Param("id"), profile(c).ID, before)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendRequest struct {
	Content string `json:"content" validate:"required"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if !bind(c, &req) {
		return
	}
	msg, err := s.deps.Community.Send(c.Request.Context(), c.Param("id"), profile(c), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

type communityRequestBody struct {
	Name        string `json:"name" validate:"required,max=60"`
	Description string `json:"description" validate:"max=500"`
}

func (s *Server) handleCommunityRequest(c *gin.Context) {
	var req communityRequestBody
	if !bind(c, &req) {
		return
	}
	created, err := s.deps.Community.RequestCommunity(c.Request.Context(), profile(c), req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
