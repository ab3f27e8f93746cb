package rimage

import (
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string centred on p.
func DrawString(dc *gg.Context, text string, p r2.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringAnchored(text, p.X, p.Y, 0.5, 0.5)
}

// DrawQuad outlines a quadrilateral whose corners are ordered top-left, top-right, bottom-left,
// bottom-right.
func DrawQuad(dc *gg.Context, quad [4]r2.Point, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.MoveTo(quad[0].X, quad[0].Y)
	dc.LineTo(quad[1].X, quad[1].Y)
	dc.LineTo(quad[3].X, quad[3].Y)
	dc.LineTo(quad[2].X, quad[2].Y)
	dc.ClosePath()
	dc.Stroke()
}

// DrawLine strokes a straight segment from a to b.
func DrawLine(dc *gg.Context, a, b r2.Point, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawLine(a.X, a.Y, b.X, b.Y)
	dc.Stroke()
}
