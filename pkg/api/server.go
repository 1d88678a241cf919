package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coordinador/pkg/api/middleware"
	"coordinador/pkg/coordinator"
	"coordinador/pkg/ws"
)

// Server encapsulates the HTTP surface of the coordination service: the
// websocket upgrade route, the health endpoint and prometheus metrics.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	coord      *coordinator.Coordinator
	log        *zap.Logger
}

// Config holds API server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Coordinator    *coordinator.Coordinator
	Logger         *zap.Logger
}

// NewServer creates the server with all routes registered.
func NewServer(cfg Config) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware stack (order matters)
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())
	router.Use(requestLogger(cfg.Logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	s := &Server{
		router: router,
		coord:  cfg.Coordinator,
		log:    cfg.Logger,
	}

	s.registerRoutes(cfg.AllowedOrigins)

	// No read/write timeouts on the server itself: /ws connections are
	// long-lived and manage their own deadlines in pkg/ws.
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     router,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests and websocket upgrades.
func (s *Server) Start() error {
	s.log.Info("servidor escuchando", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server. Open websocket connections are
// closed by their own pumps once the listener goes away.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("apagando servidor")
	return s.httpServer.Shutdown(ctx)
}

// registerRoutes sets up all endpoints.
func (s *Server) registerRoutes(allowedOrigins []string) {
	s.router.GET("/health", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/ws", ws.Handler(s.coord, allowedOrigins, s.log))
}

// health reports a point-in-time snapshot of connections and open papeletas.
func (s *Server) health(c *gin.Context) {
	st := s.coord.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"connections": gin.H{
			"total":    st.Total,
			"jurado":   st.Jurado,
			"votacion": st.Votacion,
		},
		"papeletasActivas": st.PapeletasActivas,
	})
}

// requestLogger logs HTTP requests. The /ws route is logged at debug: every
// terminal connection would otherwise add an info line with a meaningless
// latency (the handler returns right after the upgrade).
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if path == "/ws" {
			log.Debug("http request", fields...)
		} else {
			log.Info("http request", fields...)
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST"}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
