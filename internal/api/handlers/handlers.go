package handlers

import (
	"time"

	"facestream/internal/models"
)

// FrameStore is the read side of the frame slot.
type FrameStore interface {
	Current() (*models.Frame, bool)
	Published() uint64
	LastPublished() time.Time
	Stale(threshold time.Duration) bool
}

// StreamCounter reports how many clients are watching the live stream.
type StreamCounter interface {
	ActiveStreams() int64
}

type ErrorResponse struct {
	Error string `json:"error"`
}
