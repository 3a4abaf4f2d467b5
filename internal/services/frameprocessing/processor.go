package frameprocessing

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"facestream/internal/metrics"
	"facestream/internal/models"
)

// RegionDetector finds regions of interest in a luminance image. Returned
// rectangles are relative to the image origin; the image always starts at (0,0).
type RegionDetector interface {
	Detect(img *image.Gray) ([]image.Rectangle, error)
}

// Annotator draws region markers onto the frame canvas in place.
type Annotator interface {
	Annotate(img *image.RGBA, regions []models.Region) error
}

// FrameProcessor turns a raw capture into an annotated frame: grayscale
// normalisation, outer detection, inner detection per outer region, markers.
type FrameProcessor struct {
	outer     RegionDetector
	inner     RegionDetector
	annotator Annotator
	logger    zerolog.Logger
}

func NewFrameProcessor(outer, inner RegionDetector, annotator Annotator, logger zerolog.Logger) *FrameProcessor {
	return &FrameProcessor{outer: outer, inner: inner, annotator: annotator, logger: logger}
}

// ProcessFrame annotates raw. The returned frame owns a fresh pixel buffer;
// raw.Image is never written to. Seq is left for the caller to assign.
func (fp *FrameProcessor) ProcessFrame(raw *models.RawFrame) (*models.Frame, error) {
	if raw == nil || raw.Image == nil {
		return nil, models.ErrNoFrame
	}

	canvas, gray := normalize(raw.Image)

	faces, err := fp.outer.Detect(gray)
	if err != nil {
		return nil, fmt.Errorf("outer detection failed: %w", err)
	}

	regions := make([]models.Region, 0, len(faces))
	eyes := 0
	for _, face := range faces {
		face = face.Intersect(gray.Bounds())
		if face.Empty() {
			continue
		}
		region := models.Region{Rect: face}

		if fp.inner != nil {
			found, err := fp.inner.Detect(crop(gray, face))
			if err != nil {
				// The face is still worth drawing without its children.
				fp.logger.Warn().Err(err).Str("face", face.String()).Msg("Inner detection failed")
			}
			for _, r := range found {
				region.Children = append(region.Children, models.Region{Rect: r.Add(face.Min)})
			}
			eyes += len(found)
		}
		regions = append(regions, region)
	}

	metrics.RecordRegions("outer", len(regions))
	metrics.RecordRegions("inner", eyes)

	if err := fp.annotator.Annotate(canvas, regions); err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}

	return &models.Frame{
		Image:      canvas,
		CapturedAt: raw.CapturedAt,
		Regions:    regions,
	}, nil
}

// normalize copies src into a zero-origin RGBA canvas and derives its luminance image.
func normalize(src image.Image) (*image.RGBA, *image.Gray) {
	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	gray := image.NewGray(canvas.Bounds())
	draw.Draw(gray, gray.Bounds(), canvas, image.Point{}, draw.Src)
	return canvas, gray
}

// crop copies r out of gray into a new zero-origin image.
func crop(gray *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), gray, r.Min, draw.Src)
	return out
}
