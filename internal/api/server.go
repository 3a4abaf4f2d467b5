package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"facestream/internal/api/handlers"
	"facestream/internal/api/middleware"
	"facestream/internal/config"
	"facestream/internal/services/encoding"
)

// Dependencies are the runtime components the admin API reads from.
type Dependencies struct {
	Frames   handlers.FrameStore
	Streams  handlers.StreamCounter
	Encoder  encoding.FrameEncoder
	Format   encoding.Format
	Gatherer prometheus.Gatherer
}

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	gatherer prometheus.Gatherer

	healthHandler *handlers.HealthHandler
	systemHandler *handlers.SystemHandler
	frameHandler  *handlers.FrameHandler
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		gatherer:      deps.Gatherer,
		healthHandler: handlers.NewHealthHandler(cfg, deps.Frames),
		systemHandler: handlers.NewSystemHandler(cfg.InstanceID, deps.Frames, deps.Streams),
		frameHandler:  handlers.NewFrameHandler(deps.Frames, deps.Encoder, deps.Format),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:    net.JoinHostPort(cfg.AdminHost, strconv.Itoa(cfg.AdminPort)),
		Handler: s.router,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving the admin API until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting admin API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping admin API")
	return s.server.Shutdown(ctx)
}
