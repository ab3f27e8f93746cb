package sudoku

import (
	"github.com/golang/geo/r2"

	"github.com/gridscan/gridscan/rimage"
)

// GridSize is the number of cells along each side of the puzzle.
const GridSize = 9

// GridLine is one internal line of the grid overlay, in video space.
type GridLine struct {
	P1 r2.Point `json:"p1"`
	P2 r2.Point `json:"p2"`
}

// GridLines returns the 8 internal horizontal and 8 internal vertical lines of the canonical
// size x size square, with endpoints mapped into video space by mapper.
func GridLines(mapper rimage.PointMapper, size float64) []GridLine {
	step := size / GridSize
	lines := make([]GridLine, 0, 2*(GridSize-1))
	for i := 1; i < GridSize; i++ {
		offset := float64(i) * step
		lines = append(lines, GridLine{
			P1: mapper.Apply(r2.Point{X: 0, Y: offset}),
			P2: mapper.Apply(r2.Point{X: size, Y: offset}),
		})
	}
	for i := 1; i < GridSize; i++ {
		offset := float64(i) * step
		lines = append(lines, GridLine{
			P1: mapper.Apply(r2.Point{X: offset, Y: 0}),
			P2: mapper.Apply(r2.Point{X: offset, Y: size}),
		})
	}
	return lines
}

// CellCenter maps the centre of cell (x, y) of the canonical square into video space, e.g. to
// place a recognised or solved digit on an overlay.
func CellCenter(mapper rimage.PointMapper, size float64, x, y int) r2.Point {
	step := size / GridSize
	return mapper.Apply(r2.Point{X: (float64(x) + 0.5) * step, Y: (float64(y) + 0.5) * step})
}
