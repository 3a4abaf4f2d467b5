// Package encoding turns frames into image bytes.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"

	"facestream/internal/models"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// ErrEmptyFrame is returned when asked to encode a frame without pixels.
var ErrEmptyFrame = errors.New("frame has no image")

// Native encodes frames with the Go image codecs.
type Native struct {
	Quality int
}

// NewNative returns a Native encoder; quality outside 1-100 means DefaultQuality.
func NewNative(quality int) *Native {
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	return &Native{Quality: quality}
}

func (n *Native) Encode(f *models.Frame, format Format) ([]byte, error) {
	if f == nil || f.Image == nil {
		return nil, ErrEmptyFrame
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: n.Quality})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		err = enc.Encode(&buf, f.Image)
	case FormatBMP:
		err = bmp.Encode(&buf, f.Image)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d as %s: %w", f.Seq, format, err)
	}
	return buf.Bytes(), nil
}
