// Package overlay draws detection markers onto frames with OpenCV.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"facestream/internal/models"
)

var (
	// FaceColor outlines outer regions.
	FaceColor = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	// EyeColor outlines nested regions.
	EyeColor = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

const (
	faceThickness = 1
	eyeThickness  = 4
)

// Annotator draws every outer region as an ellipse inscribed in its rectangle
// and every child as a circle centred on the child rectangle.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

// Annotate draws regions onto img in place.
func (a *Annotator) Annotate(img *image.RGBA, regions []models.Region) error {
	if len(regions) == 0 {
		return nil
	}

	mat, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return fmt.Errorf("failed to create Mat from frame: %w", err)
	}
	defer mat.Close()

	for _, face := range regions {
		center, axes := FaceMarker(face.Rect)
		gocv.Ellipse(&mat, center, axes, 0, 0, 360, FaceColor, faceThickness)
		for _, eye := range face.Children {
			c, radius := EyeMarker(eye.Rect)
			gocv.Circle(&mat, c, radius, EyeColor, eyeThickness)
		}
	}

	out, err := mat.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert annotated Mat: %w", err)
	}
	draw.Draw(img, img.Bounds(), out, out.Bounds().Min, draw.Src)
	return nil
}

// FaceMarker returns the centre and semi-axes of the ellipse inscribed in r.
func FaceMarker(r image.Rectangle) (center, axes image.Point) {
	axes = image.Pt(r.Dx()/2, r.Dy()/2)
	return r.Min.Add(axes), axes
}

// EyeMarker returns the centre of r and a radius of a quarter of its width plus height.
func EyeMarker(r image.Rectangle) (center image.Point, radius int) {
	center = r.Min.Add(image.Pt(r.Dx()/2, r.Dy()/2))
	return center, int(math.Round(float64(r.Dx()+r.Dy()) * 0.25))
}
