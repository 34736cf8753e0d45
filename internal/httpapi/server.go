// Package httpapi serves the JSON, SSE and WebSocket API used by the web
// client, plus the transcription relay.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PDUUR/Super-Muslim-Assistant/internal/auth"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/config"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/content"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/events"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/metrics"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/relay"
	"github.com/PDUUR/Super-Muslim-Assistant/internal/service"
)

// ContentSource returns the aggregated reference content.
type ContentSource interface {
	Fetch(ctx context.Context) *content.Bundle
}

// Deps holds everything the routes need. Optional parts may be nil and their
// routes answer 503.
type Deps struct {
	Config      *config.Config
	Issuer      *auth.Issuer
	Accounts    *service.AccountService
	Tracker     *service.TrackerService
	Gardens     *service.GardenService
	Prayers     *service.PrayerService
	Ranking     *service.RankingService
	Community   *service.CommunityService
	Admin       *service.AdminService
	Broadcast   *service.BroadcastService
	Content     ContentSource
	Weather     service.WeatherSource
	Transcriber *relay.Transcriber
	Metrics     *metrics.Metrics
	Bus         *events.Bus
	Health      func(ctx context.Context) error
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	engine *gin.Engine
	chat   *chatHub
	detach func()
}

// New builds the router.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	s := &Server{deps: deps, engine: r, chat: newChatHub()}
	if deps.Bus != nil {
		s.detach = s.chat.attach(deps.Bus)
	}

	r.Use(recovery())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.RequestLogger())
	}
	r.Use(requestLogger())
	r.Use(cors.New(corsConfig(deps.Config.HTTP.CORSOrigins)))

	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.GET("/metrics", s.deps.Metrics.Handler())
	}

	// Public
	r.Any("/api/transcribe", s.handleTranscribe)
	r.GET("/api/content", s.handleContent)
	r.GET("/api/weather", s.handleWeather)

	api := r.Group("/api")
	api.Use(requireAuth(s.deps.Issuer, s.deps.Accounts))
	{
		api.GET("/me", s.handleMe)
		api.PUT("/me/email", s.handleSetEmail)
		api.POST("/me/session", s.handleSession)
		api.POST("/me/minute", s.handleMinute)

		api.GET("/summary", s.handleSummary)
		api.POST("/acts/:act/toggle", s.handleToggle)
		api.POST("/listened", s.handleListened)
		api.GET("/badges", s.handleBadges)
		api.POST("/badges/:id/claim", s.handleClaim)

		api.GET("/garden", s.handleGarden)
		api.POST("/garden/health", s.handleGardenHealth)
		api.PUT("/garden/tree", s.handleTreeType)

		api.GET("/prayer/today", s.handlePrayerToday)
		api.GET("/prayer/cities", s.handleCities)
		api.PUT("/prayer/city", s.handleSelectCity)
		api.GET("/prayer/countdown", s.handleCountdown)
		api.GET("/theme", s.handleTheme)

		api.GET("/leaderboard", s.handleLeaderboard)

		api.GET("/communities", s.handleCommunities)
		api.POST("/communities/:id/join", s.handleJoin)
		api.GET("/communities/:id/messages", s.handleHistory)
		api.POST("/communities/:id/messages", s.handleSend)
		api.POST("/community-requests", s.handleCommunityRequest)
		api.GET("/chat", s.handleChat)

		admin := api.Group("/admin")
		admin.Use(requireAdmin(s.deps.Accounts))
		{
			admin.GET("/stats", s.handleAdminStats)
			admin.GET("/users", s.handleAdminUsers)
			admin.PUT("/users/:id/points", s.handleAdminPoints)
			admin.PUT("/users/:id/role", s.handleAdminRole)
			admin.POST("/users/:id/block", s.handleAdminBlock(true))
			admin.POST("/users/:id/unblock", s.handleAdminBlock(false))
			admin.DELETE("/users/:id", s.handleAdminDelete)
			admin.GET("/requests", s.handleAdminRequests)
			admin.POST("/requests/:id/approve", s.handleAdminApprove)
			admin.POST("/requests/:id/reject", s.handleAdminReject)
			admin.POST("/communities/:id/invite", s.handleAdminInvite)
			admin.DELETE("/communities/:id/messages/:msg", s.handleAdminDeleteMessage)
			admin.DELETE("/communities/:id/messages", s.handleAdminClear)
			admin.POST("/broadcast", s.handleAdminBroadcast)
		}
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.deps.Config.HTTP
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info().Msg("Shutting down HTTP API...")
	s.Close()
	return srv.Shutdown(shutdownCtx)
}

// Close detaches the chat hub from the event bus and disconnects its peers.
func (s *Server) Close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	s.chat.closeAll()
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now().UTC()}
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "connected"
	}
	c.JSON(http.StatusOK, status)
}
