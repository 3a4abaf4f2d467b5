package models

import (
	"errors"
	"image"
	"time"
)

// ErrNoFrame is returned by a frame source that has nothing to deliver this cycle.
var ErrNoFrame = errors.New("no frame available")

// RawFrame represents a frame as delivered by the video source
type RawFrame struct {
	Image      image.Image
	CapturedAt time.Time
}

// Frame is one annotated image. Once handed to the frame slot it must not be mutated.
type Frame struct {
	Seq        uint64
	Image      *image.RGBA
	CapturedAt time.Time
	Regions    []Region // Outer detections, children in frame coordinates
}

// Width returns the frame width in pixels
func (f *Frame) Width() int {
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels
func (f *Frame) Height() int {
	return f.Image.Bounds().Dy()
}

// EyeCount returns the number of nested regions across all outer regions
func (f *Frame) EyeCount() int {
	n := 0
	for _, r := range f.Regions {
		n += len(r.Children)
	}
	return n
}
