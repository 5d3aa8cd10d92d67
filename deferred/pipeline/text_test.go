package pipeline

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/deferred/raster"
)

func TestTextRendererDrawsOntoFrame(t *testing.T) {
	tr, err := NewDefaultTextRenderer(14)
	require.NoError(t, err)
	require.Contains(t, tr.Glyphs, 'L')

	img := raster.NewImage(200, 40)
	img.Fill(mgl32.Vec4{0, 0, 0, 1})
	tr.Draw(img, []TextItem{{Text: "Lights: 42", Position: [2]int{4, 4}, Color: color.White}})

	lit := 0
	for _, p := range img.Pix {
		if p.X() > 0.5 {
			lit++
		}
	}
	assert.NotZero(t, lit)

	// Nothing is drawn left of the start position.
	for y := 0; y < img.Height; y++ {
		assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, img.Pixel(0, y))
	}
}

func TestTextRendererMeasure(t *testing.T) {
	tr, err := NewDefaultTextRenderer(12)
	require.NoError(t, err)

	w1, h1 := tr.MeasureText("FPS")
	w2, h2 := tr.MeasureText("FPS\nF")
	assert.Positive(t, w1)
	assert.Equal(t, w1, w2, "width is the widest line")
	assert.Equal(t, 2*h1, h2)

	var none *TextRenderer
	w, h := none.MeasureText("x")
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestTextRendererRejectsGarbage(t *testing.T) {
	_, err := NewTextRenderer([]byte("not a font"), 12)
	assert.Error(t, err)
}
