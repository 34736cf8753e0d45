package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
)

// userParam parses the :id path parameter.
func userParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleAdminStats(c *gin.Context) {
	stats, err := s.deps.Admin.Stats(c.Request.Context(), profile(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleAdminUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	users, err := s.deps.Admin.Users(c.Request.Context(), profile(c), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type pointsRequest struct {
	Points *int64 `json:"points" validate:"required,min=0"`
}

func (s *Server) handleAdminPoints(c *gin.Context) {
	id, ok := userParam(c)
	if !ok {
		return
	}
	var req pointsRequest
	if !bind(c, &req) {
		return
	}
	if err := s.deps.Admin.SetPoints(c.Request.Context(), profile(c), id, *req.Points); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (s *Server) handleAdminRole(c *gin.Context) {
	id, ok := userParam(c)
	if !ok {
		return
	}
	var req roleRequest
	if !bind(c, &req) {
		return
	}
	if err := s.deps.Admin.SetRole(c.Request.Context(), profile(c), id, model.Role(req.Role)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminBlock(blocked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userParam(c)
		if !ok {
			return
		}
		if err := s.deps.Admin.SetBlocked(c.Request.Context(), profile(c), id, blocked); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleAdminDelete soft deletes a user, or removes everything with
// ?hard=true.
func (s *Server) handleAdminDelete(c *gin.Context) {
	id, ok := userParam(c)
	if !ok {
		return
	}
	var err error
	if hard, _ := strconv.ParseBool(c.Query("hard")); hard {
		err = s.deps.Admin.HardDelete(c.Request.Context(), profile(c), id)
	} else {
		err = s.deps.Admin.SoftDelete(c.Request.Context(), profile(c), id)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminRequests(c *gin.Context) {
	reqs, err := s.deps.Admin.PendingRequests(c.Request.Context(), profile(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

func (s *Server) handleAdminApprove(c *gin.Context) {
	created, err := s.deps.Admin.ApproveRequest(c.Request.Context(), profile(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) handleAdminReject(c *gin.Context) {
	if err := s.deps.Admin.RejectRequest(c.Request.Context(), profile(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type inviteRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (s *Server) handleAdminInvite(c *gin.Context) {
	var req inviteRequest
	if !bind(c, &req) {
		return
	}
	if err := s.deps.Admin.Invite(c.Request.Context(), profile(c), c.Param("id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminDeleteMessage(c *gin.Context) {
	if err := s.deps.Admin.DeleteMessage(c.Request.Context(), profile(c), c.Param("id"), c.Param("msg")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminClear(c *gin.Context) {
	n, err := s.deps.Admin.ClearMessages(c.Request.Context(), profile(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

type broadcastRequest struct {
	Version string `json:"version" validate:"required,max=32"`
}

func (s *Server) handleAdminBroadcast(c *gin.Context) {
	if s.deps.Broadcast == nil {
		fail(c, errUnavailable)
		return
	}
	var req broadcastRequest
	if !bind(c, &req) {
		return
	}
	res, err := s.deps.Broadcast.Publish(c.Request.Context(), req.Version)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
