package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Image is a linear float RGBA render target. Row 0 is the top of the screen.
//
// It also satisfies draw.Image so text and other 2D overlays can be drawn
// straight onto a frame.
type Image struct {
	Width, Height int
	Pix           []mgl32.Vec4
}

func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]mgl32.Vec4, width*height),
	}
}

func (img *Image) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < img.Width && y < img.Height
}

func (img *Image) Pixel(x, y int) mgl32.Vec4 {
	if !img.inside(x, y) {
		return mgl32.Vec4{}
	}
	return img.Pix[y*img.Width+x]
}

func (img *Image) SetPixel(x, y int, v mgl32.Vec4) {
	if !img.inside(x, y) {
		return
	}
	img.Pix[y*img.Width+x] = v
}

func (img *Image) Fill(v mgl32.Vec4) {
	for i := range img.Pix {
		img.Pix[i] = v
	}
}

// SampleNearest reads the texel containing uv, with uv in [0,1] and v = 0 at
// the top row. Coordinates outside are clamped to the edge.
func (img *Image) SampleNearest(uv mgl32.Vec2) mgl32.Vec4 {
	if img.Width == 0 || img.Height == 0 {
		return mgl32.Vec4{}
	}
	x := int(math.Floor(float64(uv.X() * float32(img.Width))))
	y := int(math.Floor(float64(uv.Y() * float32(img.Height))))
	x = min(max(x, 0), img.Width-1)
	y = min(max(y, 0), img.Height-1)
	return img.Pix[y*img.Width+x]
}

// ColorModel, Bounds, At and Set implement draw.Image.

func (img *Image) ColorModel() color.Model { return color.RGBA64Model }

func (img *Image) Bounds() image.Rectangle { return image.Rect(0, 0, img.Width, img.Height) }

func (img *Image) At(x, y int) color.Color {
	p := img.Pixel(x, y)
	return color.RGBA64{
		R: unitToU16(p[0]),
		G: unitToU16(p[1]),
		B: unitToU16(p[2]),
		A: unitToU16(p[3]),
	}
}

func (img *Image) Set(x, y int, c color.Color) {
	r, g, b, a := c.RGBA()
	img.SetPixel(x, y, mgl32.Vec4{
		float32(r) / 0xffff,
		float32(g) / 0xffff,
		float32(b) / 0xffff,
		float32(a) / 0xffff,
	})
}

func unitToU16(v float32) uint16 {
	return uint16(mgl32.Clamp(v, 0, 1)*0xffff + 0.5)
}

func unitToU8(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*0xff + 0.5)
}

// ToRGBA converts to 8-bit, clamping each channel. Alpha is forced opaque.
func (img *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.Pix[y*img.Width+x]
			i := out.PixOffset(x, y)
			out.Pix[i+0] = unitToU8(p[0])
			out.Pix[i+1] = unitToU8(p[1])
			out.Pix[i+2] = unitToU8(p[2])
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

// DepthBuffer stores window-space depth in [0,1], 1 being the far plane.
type DepthBuffer struct {
	Width, Height int
	Depth         []float32
}

func NewDepthBuffer(width, height int) *DepthBuffer {
	d := &DepthBuffer{Width: width, Height: height, Depth: make([]float32, width*height)}
	d.Clear(1)
	return d
}

func (d *DepthBuffer) Clear(v float32) {
	for i := range d.Depth {
		d.Depth[i] = v
	}
}

func (d *DepthBuffer) At(x, y int) float32 {
	return d.Depth[y*d.Width+x]
}
