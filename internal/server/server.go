// Package server exposes the read-only operational HTTP shell: health,
// metrics, and the analytics dashboard snapshots. The real presentation
// layer lives outside this repository.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/config"
	"github.com/openexec/krakencore/internal/session"
)

// Server wraps the HTTP shell around one trading session.
type Server struct {
	logger *zap.Logger
	sess   *session.Session
	http   *http.Server
}

// New builds the server and its routes.
func New(logger *zap.Logger, cfg config.ServerConfig, sess *session.Session) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		logger: logger,
		sess:   sess,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", s.handleDashboard)
		v1.GET("/report", s.handleReport)
		v1.GET("/orders/stats", s.handleOrderStats)
		v1.GET("/fills/stats", s.handleFillStats)
		v1.GET("/system/health", s.handleSystemHealth)
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http shell listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.Engine.GetRealTimeDashboard())
}

func (s *Server) handleReport(c *gin.Context) {
	lookback := time.Hour
	if raw := c.Query("lookback"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lookback duration"})
			return
		}
		lookback = d
	}
	c.JSON(http.StatusOK, s.sess.Engine.GetPerformanceReport(lookback))
}

func (s *Server) handleOrderStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.Manager.Statistics())
}

func (s *Server) handleFillStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.Processor.GetSystemStatistics())
}

func (s *Server) handleSystemHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.sess.Engine.GetSystemHealth())
}
