package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nexus-backend/internal/auth"
	"nexus-backend/internal/config"
	"nexus-backend/internal/market"
	"nexus-backend/internal/nexus"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes the journal, decision engine and auth over HTTP.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	authSvc  *auth.Service
	decision *nexus.DecisionService
	journal  *nexus.Journal
	behavior *nexus.BehaviorService
	sessions *nexus.SessionService
	candles  market.CandleSource
}

// NewServer builds the router with all routes registered.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	authSvc *auth.Service,
	decision *nexus.DecisionService,
	journal *nexus.Journal,
	behavior *nexus.BehaviorService,
	sessions *nexus.SessionService,
	candles market.CandleSource,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	if len(cfg.Server.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		authSvc:  authSvc,
		decision: decision,
		journal:  journal,
		behavior: behavior,
		sessions: sessions,
		candles:  candles,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Chart data for the frontend; public like the rest of the market surface.
	s.router.GET("/api/market/candles", s.handleCandles)

	authGroup := s.router.Group("/api/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	api := s.router.Group("/api")
	api.Use(auth.Middleware(s.authSvc))
	{
		api.GET("/session", s.handleSession)
		api.POST("/nexus/check-trade", s.handleCheckTrade)
		api.POST("/trades/open", s.handleOpenTrade)
		api.POST("/trades/close", s.handleCloseTrade)
		api.GET("/trades", s.handleListTrades)
		api.GET("/reports/daily", s.handleDailyReport)
		api.GET("/reports/weekly", s.handleWeeklyReport)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("HTTP server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Authorization", "Content-Type"}

	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
