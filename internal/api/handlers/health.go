package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facestream/internal/config"
)

type HealthHandler struct {
	cfg    *config.Config
	frames FrameStore
}

func NewHealthHandler(cfg *config.Config, frames FrameStore) *HealthHandler {
	return &HealthHandler{cfg: cfg, frames: frames}
}

type HealthResponse struct {
	Status        string     `json:"status"`
	InstanceID    string     `json:"instance_id"`
	LastFrameAt   *time.Time `json:"last_frame_at,omitempty"`
	StaleAfterSec float64    `json:"stale_after_seconds"`
}

type InfoResponse struct {
	InstanceID   string   `json:"instance_id"`
	Status       string   `json:"status"`
	Version      string   `json:"version"`
	Environment  string   `json:"environment"`
	StreamAddr   string   `json:"stream_addr"`
	StreamPath   string   `json:"stream_path"`
	ImageFormat  string   `json:"image_format"`
	Capabilities []string `json:"capabilities"`
}

// HealthCheck answers 200 while frames keep arriving and 503 once the latest
// one is older than the stale threshold.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:        "healthy",
		InstanceID:    h.cfg.InstanceID,
		StaleAfterSec: h.cfg.FrameStaleThreshold.Seconds(),
	}
	if last := h.frames.LastPublished(); !last.IsZero() {
		resp.LastFrameAt = &last
	}

	if h.frames.Stale(h.cfg.FrameStaleThreshold) {
		resp.Status = "stale"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		InstanceID:  h.cfg.InstanceID,
		Status:      "running",
		Version:     h.cfg.Version,
		Environment: h.cfg.Environment,
		StreamAddr:  h.cfg.StreamAddr,
		StreamPath:  h.cfg.StreamPath,
		ImageFormat: h.cfg.ImageFormat,
		Capabilities: []string{
			"face_detection",
			"eye_detection",
			"multipart_stream",
		},
	})
}
