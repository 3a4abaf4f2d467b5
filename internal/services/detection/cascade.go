package detection

import (
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// CascadeDetector finds regions with an OpenCV Haar/LBP cascade. A classifier
// is not safe for concurrent use; the annotation pipeline owns it.
type CascadeDetector struct {
	name       string
	classifier gocv.CascadeClassifier
}

// NewCascadeDetector loads the cascade definition at path.
func NewCascadeDetector(name, path string) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load %s cascade from %s", name, path)
	}

	log.Info().Str("detector", name).Str("path", path).Msg("Cascade classifier loaded")
	return &CascadeDetector{name: name, classifier: classifier}, nil
}

// Detect returns rectangles relative to img's origin.
func (d *CascadeDetector) Detect(img *image.Gray) ([]image.Rectangle, error) {
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to convert image: %w", d.name, err)
	}
	defer mat.Close()

	return d.classifier.DetectMultiScale(mat), nil
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
