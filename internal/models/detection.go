package models

import (
	"image"
	"time"
)

// Region is an axis-aligned detection with optional nested detections
type Region struct {
	Rect     image.Rectangle
	Children []Region
}

// BoundingBox is the wire representation of a region
type BoundingBox struct {
	X        int           `json:"x"`
	Y        int           `json:"y"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Children []BoundingBox `json:"children,omitempty"`
}

// ToBoundingBox converts a region tree to its wire form
func (r Region) ToBoundingBox() BoundingBox {
	box := BoundingBox{
		X:      r.Rect.Min.X,
		Y:      r.Rect.Min.Y,
		Width:  r.Rect.Dx(),
		Height: r.Rect.Dy(),
	}
	for _, c := range r.Children {
		box.Children = append(box.Children, c.ToBoundingBox())
	}
	return box
}

// DetectionEvent is published to the message bus when faces are visible
type DetectionEvent struct {
	InstanceID string        `json:"instance_id"`
	FrameSeq   uint64        `json:"frame_seq"`
	CapturedAt time.Time     `json:"captured_at"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Faces      []BoundingBox `json:"faces"`
}

// NewDetectionEvent builds the event payload for a published frame
func NewDetectionEvent(instanceID string, f *Frame) DetectionEvent {
	ev := DetectionEvent{
		InstanceID: instanceID,
		FrameSeq:   f.Seq,
		CapturedAt: f.CapturedAt,
		Width:      f.Width(),
		Height:     f.Height(),
		Faces:      make([]BoundingBox, 0, len(f.Regions)),
	}
	for _, r := range f.Regions {
		ev.Faces = append(ev.Faces, r.ToBoundingBox())
	}
	return ev
}
