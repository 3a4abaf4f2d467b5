package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facestream/internal/models"
)

func TestFaceMarker(t *testing.T) {
	center, axes := FaceMarker(image.Rect(40, 40, 140, 160))

	assert.Equal(t, image.Pt(90, 100), center)
	assert.Equal(t, image.Pt(50, 60), axes)
}

func TestEyeMarker(t *testing.T) {
	center, radius := EyeMarker(image.Rect(60, 70, 80, 90))
	assert.Equal(t, image.Pt(70, 80), center)
	assert.Equal(t, 10, radius)

	// (7+6)/4 = 3.25
	_, radius = EyeMarker(image.Rect(0, 0, 7, 6))
	assert.Equal(t, 3, radius)
}

func TestAnnotateDrawsFacesAndEyes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	regions := []models.Region{
		{
			Rect: image.Rect(40, 40, 140, 160),
			Children: []models.Region{
				{Rect: image.Rect(60, 70, 80, 90)},
			},
		},
	}

	require.NoError(t, NewAnnotator().Annotate(img, regions))

	// face ellipse: centre (90,100), semi-axes (50,60)
	assert.Equal(t, FaceColor, img.RGBAAt(140, 100))
	assert.Equal(t, FaceColor, img.RGBAAt(90, 40))
	// eye circle: centre (70,80), radius 10
	assert.Equal(t, EyeColor, img.RGBAAt(80, 80))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(70, 80), "interior stays untouched")
	assert.Equal(t, color.RGBA{}, img.RGBAAt(5, 5))
}

func TestAnnotateWithoutRegionsLeavesImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	before := append([]uint8(nil), img.Pix...)

	require.NoError(t, NewAnnotator().Annotate(img, nil))
	assert.Equal(t, before, img.Pix)
}
