package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler reports pipeline and stream statistics
type SystemHandler struct {
	InstanceID string
	frames     FrameStore
	streams    StreamCounter
	started    time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(instanceID string, frames FrameStore, streams StreamCounter) *SystemHandler {
	return &SystemHandler{
		InstanceID: instanceID,
		frames:     frames,
		streams:    streams,
		started:    time.Now(),
	}
}

type FrameStats struct {
	Published  uint64     `json:"published"`
	LastSeq    uint64     `json:"last_seq"`
	LastAt     *time.Time `json:"last_at,omitempty"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Faces      int        `json:"faces"`
	Eyes       int        `json:"eyes"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

type StatsResponse struct {
	InstanceID    string     `json:"instance_id"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Frames        FrameStats `json:"frames"`
	ActiveStreams int64      `json:"active_streams"`
	MemoryMB      uint64     `json:"memory_mb"`
	Goroutines    int        `json:"goroutines"`
	GoVersion     string     `json:"go_version"`
	Timestamp     int64      `json:"timestamp"`
}

func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	frames := FrameStats{Published: h.frames.Published()}
	if last := h.frames.LastPublished(); !last.IsZero() {
		frames.LastAt = &last
	}
	if f, ok := h.frames.Current(); ok {
		frames.LastSeq = f.Seq
		frames.Faces = len(f.Regions)
		frames.Eyes = f.EyeCount()
		if f.Image != nil {
			frames.Width = f.Width()
			frames.Height = f.Height()
		}
		if !f.CapturedAt.IsZero() {
			captured := f.CapturedAt
			frames.CapturedAt = &captured
		}
	}

	c.JSON(http.StatusOK, StatsResponse{
		InstanceID:    h.InstanceID,
		UptimeSeconds: time.Since(h.started).Seconds(),
		Frames:        frames,
		ActiveStreams: h.streams.ActiveStreams(),
		MemoryMB:      m.Alloc / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		Timestamp:     time.Now().Unix(),
	})
}
