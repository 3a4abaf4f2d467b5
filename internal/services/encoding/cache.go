package encoding

import (
	"sync/atomic"

	"facestream/internal/models"
)

// FrameEncoder encodes a frame into the requested format.
type FrameEncoder interface {
	Encode(f *models.Frame, format Format) ([]byte, error)
}

type cacheEntry struct {
	frame  *models.Frame
	format Format
	data   []byte
}

// Cached remembers the last encoded frame so concurrent streams re-sending the
// same frame share one encode. Returned slices are shared and read-only.
type Cached struct {
	next FrameEncoder
	last atomic.Pointer[cacheEntry]
}

// NewCached wraps next.
func NewCached(next FrameEncoder) *Cached {
	return &Cached{next: next}
}

func (c *Cached) Encode(f *models.Frame, format Format) ([]byte, error) {
	if e := c.last.Load(); e != nil && e.frame == f && e.format == format {
		return e.data, nil
	}
	data, err := c.next.Encode(f, format)
	if err != nil {
		return nil, err
	}
	c.last.Store(&cacheEntry{frame: f, format: format, data: data})
	return data, nil
}
