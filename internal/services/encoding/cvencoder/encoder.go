// Package cvencoder encodes frames with OpenCV's imencode.
package cvencoder

import (
	"fmt"

	"gocv.io/x/gocv"

	"facestream/internal/models"
	"facestream/internal/services/encoding"
)

type Encoder struct {
	quality int
}

func New(quality int) *Encoder {
	if quality < 1 || quality > 100 {
		quality = encoding.DefaultQuality
	}
	return &Encoder{quality: quality}
}

func (e *Encoder) Encode(f *models.Frame, format encoding.Format) ([]byte, error) {
	if f == nil || f.Image == nil {
		return nil, encoding.ErrEmptyFrame
	}

	var params []int
	switch format {
	case encoding.FormatJPEG:
		params = []int{gocv.IMWriteJpegQuality, e.quality}
	case encoding.FormatPNG:
		params = []int{gocv.IMWritePngCompression, 1}
	case encoding.FormatBMP:
	default:
		return nil, fmt.Errorf("%w: %q", encoding.ErrUnsupportedFormat, format)
	}

	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame %d: %w", f.Seq, err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.FileExt(format.Ext()), mat, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame %d as %s: %w", f.Seq, format, err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
