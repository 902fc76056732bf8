// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nocturnalismee/server-monitoring-dashboard/internal/config"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/database"
	"github.com/nocturnalismee/server-monitoring-dashboard/internal/metrics"
)

const apiVersion = "2.0"

type Server struct {
	config    *config.Config
	store     database.Store
	metrics   *metrics.Collector
	router    *gin.Engine
	wsClients map[*WSClient]bool
	wsMu      sync.Mutex
	server    *http.Server
}

func NewServer(cfg *config.Config, store database.Store, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(securityHeaders())

	server := &Server{
		config:    cfg,
		store:     store,
		metrics:   metricsCollector,
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	server.setupRoutes()
	return server
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	// Keep the online/offline gauges moving between queries
	go s.updateMetricsRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	// Dashboard page
	s.router.GET("/", s.serveDashboard)

	api := s.router.Group("/api")
	{
		ingestLimiter := newRateLimiter(rate.Limit(s.config.Server.IngestRPS), s.config.Server.IngestBurst)
		api.Any("/receiver", ingestLimiter.middleware(), s.receiveMetrics)

		api.GET("/status", s.getStatus)
		api.GET("/health", s.healthCheck)

		api.GET("/servers", s.getServers)
		api.GET("/servers/:id", s.getServer)
		api.POST("/servers", s.createServer)
		api.PUT("/servers/:id", s.updateServer)
		api.DELETE("/servers/:id", s.deleteServer)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Prometheus metrics
	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) serveDashboard(c *gin.Context) {
	c.Header("Content-Type", "text/html")
	c.Status(http.StatusOK)
	c.File(s.config.Web.Root)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"api_version": apiVersion,
	})
}

// storageContext bounds every store call made on behalf of a request so
// a wedged database surfaces as a StorageError instead of a hung caller.
func (s *Server) storageContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.config.Dashboard.StorageTimeout)
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, s.config.Dashboard.StorageTimeout)
			if err := s.metrics.UpdateSystemMetrics(opCtx); err != nil {
				logrus.WithError(err).Error("Failed to update system metrics")
			}
			cancel()
		}
	}
}
