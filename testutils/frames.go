package testutils

import (
	"image"
	"math/rand"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/rimage/transform"
)

// GridFrame describes a synthetic camera frame holding a 9x9 puzzle grid drawn in perspective.
type GridFrame struct {
	Width, Height int
	// Corners of the outer grid border in frame coordinates, ordered top-left, top-right,
	// bottom-left, bottom-right.
	Corners [4]r2.Point
	// Cells that hold a digit stroke, as (column, row).
	Cells     []image.Point
	LineWidth float64
}

// CenteredGridFrame returns a frame of the given size with an axis-aligned grid of side
// gridSize centered in it.
func CenteredGridFrame(width, height int, gridSize float64, cells ...image.Point) GridFrame {
	x0 := (float64(width) - gridSize) / 2
	y0 := (float64(height) - gridSize) / 2
	return GridFrame{
		Width:  width,
		Height: height,
		Corners: [4]r2.Point{
			{X: x0, Y: y0},
			{X: x0 + gridSize, Y: y0},
			{X: x0, Y: y0 + gridSize},
			{X: x0 + gridSize, Y: y0 + gridSize},
		},
		Cells:     cells,
		LineWidth: 3,
	}
}

// Draw renders the grid as dark strokes on a light background.
func (gf GridFrame) Draw() (image.Image, error) {
	if gf.Width <= 0 || gf.Height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", gf.Width, gf.Height)
	}
	h, err := transform.SquareToQuad(9, gf.Corners)
	if err != nil {
		return nil, err
	}
	lineWidth := gf.LineWidth
	if lineWidth <= 0 {
		lineWidth = 3
	}

	dc := gg.NewContext(gf.Width, gf.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(lineWidth)
	dc.SetLineCapSquare()
	for i := 0; i <= 9; i++ {
		fi := float64(i)
		a, b := h.Apply(r2.Point{X: 0, Y: fi}), h.Apply(r2.Point{X: 9, Y: fi})
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
		a, b = h.Apply(r2.Point{X: fi, Y: 0}), h.Apply(r2.Point{X: fi, Y: 9})
		dc.DrawLine(a.X, a.Y, b.X, b.Y)
	}
	dc.Stroke()

	for _, c := range gf.Cells {
		if c.X < 0 || c.X >= 9 || c.Y < 0 || c.Y >= 9 {
			return nil, errors.Errorf("cell %v outside of grid", c)
		}
		x, y := float64(c.X), float64(c.Y)
		// a "1": a vertical bar with a flag at the top
		fillQuad(dc, h, x+0.45, y+0.2, x+0.6, y+0.8)
		fillQuad(dc, h, x+0.3, y+0.2, x+0.6, y+0.32)
	}
	return dc.Image(), nil
}

func fillQuad(dc *gg.Context, h *transform.Homography, x0, y0, x1, y1 float64) {
	for i, p := range []r2.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}} {
		q := h.Apply(p)
		if i == 0 {
			dc.MoveTo(q.X, q.Y)
		} else {
			dc.LineTo(q.X, q.Y)
		}
	}
	dc.ClosePath()
	dc.Fill()
}

// NoiseFrame returns a light, speckled frame that contains no grid-like shape.
func NoiseFrame(width, height int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		if rng.Float64() < 0.03 {
			img.Pix[i] = 0
			continue
		}
		img.Pix[i] = uint8(180 + rng.Intn(76))
	}
	return img
}

// RotatedRectFrame returns a frame with a single filled dark rectangle of size w x h centered at
// center and rotated by degrees.
func RotatedRectFrame(width, height int, center r2.Point, w, h, degrees float64) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.Translate(center.X, center.Y)
	dc.Rotate(gg.Radians(degrees))
	dc.DrawRectangle(-w/2, -h/2, w, h)
	dc.Fill()
	return dc.Image()
}
