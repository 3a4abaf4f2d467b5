// Package frameslot holds the most recently annotated frame.
//
// A Slot has exactly one writer (the annotation pipeline) and any number of
// readers (stream connections, the admin API). Publish swaps a pointer, so a
// reader sees either the previous frame or the new one, never a mix, and no
// reader can slow the writer down. There is no history: a reader that polls
// slower than the publish rate skips frames.
package frameslot

import (
	"sync/atomic"
	"time"

	"facestream/internal/models"
)

// Slot is a single-value, latest-wins publication point. The zero value is an
// empty slot ready for use.
type Slot struct {
	current   atomic.Pointer[models.Frame]
	published atomic.Uint64
	lastNanos atomic.Int64
}

// New returns an empty slot.
func New() *Slot {
	return &Slot{}
}

// Publish replaces the held frame. The caller hands over ownership: f must
// not be modified afterwards.
func (s *Slot) Publish(f *models.Frame) {
	if f == nil {
		return
	}
	s.current.Store(f)
	s.published.Add(1)
	s.lastNanos.Store(time.Now().UnixNano())
}

// Current returns the latest frame, or false if nothing was published yet.
func (s *Slot) Current() (*models.Frame, bool) {
	f := s.current.Load()
	return f, f != nil
}

// Published returns how many frames have been published since start.
func (s *Slot) Published() uint64 {
	return s.published.Load()
}

// LastPublished returns the wall time of the latest publish, or the zero time.
func (s *Slot) LastPublished() time.Time {
	n := s.lastNanos.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Stale reports whether the slot is empty or its latest publish is older than threshold.
func (s *Slot) Stale(threshold time.Duration) bool {
	last := s.LastPublished()
	return last.IsZero() || time.Since(last) > threshold
}
