package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type TextItem struct {
	Text     string
	Position [2]int // top-left, in pixels
	Color    color.Color
}

type GlyphInfo struct {
	Rect image.Rectangle // in the atlas
	Off  image.Point     // from the pen position on the baseline
	Adv  int
}

// TextRenderer rasterizes the printable ASCII range once into an alpha atlas
// and composites glyphs from it onto frames.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
}

// NewDefaultTextRenderer uses the embedded Go Regular font.
func NewDefaultTextRenderer(fontSize float64) (*TextRenderer, error) {
	return NewTextRenderer(goregular.TTF, fontSize)
}

func NewTextRenderer(fontBytes []byte, fontSize float64) (*TextRenderer, error) {
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}

	const atlasSize = 512
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := bounds.Dx()
		h := bounds.Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = GlyphInfo{
			Rect: image.Rect(x, y, x+w, y+h),
			Off:  bounds.Min,
			Adv:  adv.Round(),
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &TextRenderer{
		AtlasImage: atlas,
		Glyphs:     glyphs,
		Face:       face,
	}, nil
}

// Draw composites the items over dst.
func (tr *TextRenderer) Draw(dst draw.Image, items []TextItem) {
	metrics := tr.Face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()

	for _, item := range items {
		src := image.NewUniform(item.Color)
		startX := item.Position[0]
		penX := startX
		penY := item.Position[1] + ascent

		for _, r := range item.Text {
			if r == '\n' {
				penX = startX
				penY += lineHeight
				continue
			}
			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}
			at := image.Pt(penX, penY).Add(g.Off)
			draw.DrawMask(dst, image.Rectangle{Min: at, Max: at.Add(g.Rect.Size())}, src, image.Point{}, tr.AtlasImage, g.Rect.Min, draw.Over)
			penX += g.Adv
		}
	}
}

func (tr *TextRenderer) MeasureText(text string) (int, int) {
	if tr == nil {
		return 0, 0
	}

	lineHeight := tr.Face.Metrics().Height.Ceil()
	maxW, currentW, lines := 0, 0, 1
	for _, r := range text {
		if r == '\n' {
			maxW = max(maxW, currentW)
			currentW = 0
			lines++
			continue
		}
		if g, ok := tr.Glyphs[r]; ok {
			currentW += g.Adv
		}
	}
	return max(maxW, currentW), lineHeight * lines
}
