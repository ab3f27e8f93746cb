// Package overlay draws what the scanner sees on top of a camera frame: the detected corners, the
// grid lines and the digits read from (or solved into) each cell.
package overlay

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"github.com/gridscan/gridscan/rimage"
	"github.com/gridscan/gridscan/scanner"
	"github.com/gridscan/gridscan/vision/sudoku"
)

// Options tunes the overlay.
type Options struct {
	LineWidth float64
	// FontScale is the digit height as a fraction of a cell's height in the frame.
	FontScale float64
}

// DefaultOptions returns the options Draw uses.
func DefaultOptions() Options {
	return Options{LineWidth: 2, FontScale: 0.6}
}

// Palette returns n colors with evenly spaced hues.
func Palette(n int) []color.Color {
	out := make([]color.Color, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, colorful.Hsv(360*float64(i)/float64(n), 0.85, 0.95).Clamped())
	}
	return out
}

var (
	gridColor     = colorful.Hsv(140, 0.9, 0.8)
	givenColor    = colorful.Hsv(210, 0.9, 0.9)
	solvedColor   = colorful.Hsv(20, 0.9, 0.95)
	cornerPalette = Palette(4)
)

// Draw returns a copy of frame with the snapshot's detection drawn on it. A snapshot without a
// detection yields an unmarked copy.
func Draw(frame image.Image, snap scanner.Snapshot) image.Image {
	return DrawWithOptions(frame, snap, DefaultOptions())
}

// DrawWithOptions is Draw with explicit options.
func DrawWithOptions(frame image.Image, snap scanner.Snapshot, opts Options) image.Image {
	dc := gg.NewContextForImage(frame)
	if snap.Corners == nil {
		return dc.Image()
	}
	quad := snap.Corners.Quad()
	rimage.DrawQuad(dc, quad, gridColor, 2*opts.LineWidth)
	for _, line := range snap.GridLines {
		rimage.DrawLine(dc, line.P1, line.P2, gridColor, opts.LineWidth)
	}
	for i, p := range quad {
		dc.SetColor(cornerPalette[i])
		dc.DrawCircle(p.X, p.Y, 3*opts.LineWidth)
		dc.Fill()
	}

	if snap.Transform == nil || snap.ProcessingSize <= 0 {
		return dc.Image()
	}
	size := float64(snap.ProcessingSize)
	_, left, _, _ := snap.Corners.Sides()
	fontSize := opts.FontScale * left / sudoku.GridSize
	if fontSize < 6 {
		fontSize = 6
	}

	var given [sudoku.GridSize][sudoku.GridSize]bool
	for _, b := range snap.Boxes {
		if b.Contents <= 0 || b.X < 0 || b.X >= sudoku.GridSize || b.Y < 0 || b.Y >= sudoku.GridSize {
			continue
		}
		given[b.Y][b.X] = true
		center := sudoku.CellCenter(snap.Transform, size, b.X, b.Y)
		rimage.DrawString(dc, strconv.Itoa(b.Contents), center, givenColor, fontSize)
	}
	if len(snap.Solution) == sudoku.GridSize*sudoku.GridSize {
		for i, r := range snap.Solution {
			x, y := i%sudoku.GridSize, i/sudoku.GridSize
			if given[y][x] {
				continue
			}
			center := sudoku.CellCenter(snap.Transform, size, x, y)
			rimage.DrawString(dc, string(r), center, solvedColor, fontSize)
		}
	}
	return dc.Image()
}

// Scale shrinks img to maxWidth, keeping its aspect ratio. Images already narrow enough are
// returned as is.
func Scale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// SavePNG writes img to dir/name.png, creating dir if needed, and returns the file's path.
func SavePNG(dir, name string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "cannot create overlay dir %q", dir)
	}
	path := filepath.Join(dir, name+".png")
	if err := imaging.Save(img, path); err != nil {
		return "", errors.Wrapf(err, "cannot save overlay %q", path)
	}
	return path, nil
}
