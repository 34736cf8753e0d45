package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/model"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/repository"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

const profileKey = "profile"

var validate = validator.New()

// bind decodes the JSON body into req and validates its `validate` tags.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("Recovered from panic in HTTP handler")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for clients that cannot set headers (WebSocket,
// EventSource).
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// requireAuth validates the JWT and loads the caller's active profile.
func requireAuth(issuer *auth.Issuer, accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		claims, err := issuer.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		p, err := accounts.Authorize(c.Request.Context(), claims.UserID)
		switch {
		case errors.Is(err, service.ErrAccountDisabled):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is blocked or deleted"})
			return
		case errors.Is(err, repository.ErrUserNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		case err != nil:
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to authorize request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(profileKey, p)
		c.Next()
	}
}

// requireAdmin must run after requireAuth.
func requireAdmin(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := profile(c)
		if !accounts.IsAdmin(p) {
			if p != nil {
				log.Warn().Int64("user_id", p.ID).Str("path", c.Request.URL.Path).Msg("Non-admin attempted admin request")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func profile(c *gin.Context) *model.UserProfile {
	v, ok := c.Get(profileKey)
	if !ok {
		return nil
	}
	p, _ := v.(*model.UserProfile)
	return p
}
