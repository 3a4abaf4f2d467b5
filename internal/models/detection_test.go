package models

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetectionEvent(t *testing.T) {
	captured := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	frame := &Frame{
		Seq:        7,
		Image:      image.NewRGBA(image.Rect(0, 0, 320, 240)),
		CapturedAt: captured,
		Regions: []Region{
			{
				Rect: image.Rect(10, 20, 110, 140),
				Children: []Region{
					{Rect: image.Rect(30, 50, 50, 70)},
					{Rect: image.Rect(70, 50, 90, 70)},
				},
			},
		},
	}

	ev := NewDetectionEvent("cam-a", frame)

	assert.Equal(t, "cam-a", ev.InstanceID)
	assert.Equal(t, uint64(7), ev.FrameSeq)
	assert.Equal(t, 320, ev.Width)
	assert.Equal(t, 240, ev.Height)
	require.Len(t, ev.Faces, 1)
	assert.Equal(t, BoundingBox{X: 10, Y: 20, Width: 100, Height: 120, Children: []BoundingBox{
		{X: 30, Y: 50, Width: 20, Height: 20},
		{X: 70, Y: 50, Width: 20, Height: 20},
	}}, ev.Faces[0])
	assert.Equal(t, 2, frame.EyeCount())

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"frame_seq":7`)
}

func TestNewDetectionEventWithoutFaces(t *testing.T) {
	frame := &Frame{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}

	ev := NewDetectionEvent("cam-a", frame)

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"faces":[]`)
}
