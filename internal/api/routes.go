package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.Info)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/stats", s.systemHandler.GetStats)
	s.router.GET("/snapshot", s.frameHandler.Snapshot)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}
