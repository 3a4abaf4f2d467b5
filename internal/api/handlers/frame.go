package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"facestream/internal/logging"
	"facestream/internal/services/encoding"
)

type FrameHandler struct {
	frames  FrameStore
	encoder encoding.FrameEncoder
	format  encoding.Format
}

func NewFrameHandler(frames FrameStore, encoder encoding.FrameEncoder, format encoding.Format) *FrameHandler {
	return &FrameHandler{frames: frames, encoder: encoder, format: format}
}

// Snapshot returns the latest annotated frame as a single image.
func (h *FrameHandler) Snapshot(c *gin.Context) {
	frame, ok := h.frames.Current()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no frame available yet"})
		return
	}

	data, err := h.encoder.Encode(frame, h.format)
	if err != nil {
		logging.Error(c).Err(err).Uint64("seq", frame.Seq).Msg("Failed to encode snapshot")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to encode frame"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Header("X-Frame-Seq", strconv.FormatUint(frame.Seq, 10))
	c.Data(http.StatusOK, h.format.ContentType(), data)
}
