// Package transform estimates the projective transforms that relate the canonical puzzle square
// to a camera frame.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when four points do not define a projective transform, e.g.
// when three of them are collinear.
var ErrDegenerateQuad = errors.New("corner points do not define a projective transform")

// Homography is a 3x3 matrix (represented as a 2D array) mapping points of one plane onto
// another under perspective. Indices are [row][column].
type Homography [3][3]float64

// NewHomography creates a Homography from a slice of 9 row-major floats.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	var h Homography
	for i, v := range vals {
		h[i/3][i%3] = v
	}
	return &h, nil
}

// At returns the value of the matrix at the given row and column.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps pt through the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Inverse returns the homography mapping the destination plane back onto the source plane.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return nil, errors.Wrap(ErrDegenerateQuad, err.Error())
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	return &out, nil
}

func (h *Homography) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

// MapPoint maps pt through h. It is a convenience for callers holding a homography value, such
// as an overlay drawing gridlines in video space.
func MapPoint(pt r2.Point, h *Homography) r2.Point {
	return h.Apply(pt)
}

// EstimateHomography solves for the 8-parameter homography mapping each src point onto the
// dst point with the same index.
func EstimateHomography(src, dst [4]r2.Point) (*Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		u, v := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{u, v, 1, 0, 0, 0, -u * x, -v * x})
		a.SetRow(2*i+1, []float64{0, 0, 0, u, v, 1, -u * y, -v * y})
		b.SetVec(2*i, x)
		b.SetVec(2*i+1, y)
	}

	var p mat.VecDense
	if err := p.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(ErrDegenerateQuad, err.Error())
	}
	for i := 0; i < 8; i++ {
		if v := p.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrDegenerateQuad
		}
	}

	return &Homography{
		{p.AtVec(0), p.AtVec(1), p.AtVec(2)},
		{p.AtVec(3), p.AtVec(4), p.AtVec(5)},
		{p.AtVec(6), p.AtVec(7), 1},
	}, nil
}

// SquareCorners returns the corners of the size x size canonical square in the order
// top-left, top-right, bottom-left, bottom-right.
func SquareCorners(size float64) [4]r2.Point {
	return [4]r2.Point{{X: 0, Y: 0}, {X: size, Y: 0}, {X: 0, Y: size}, {X: size, Y: size}}
}

// SquareToQuad returns the homography taking the size x size canonical square onto quad, given
// as top-left, top-right, bottom-left, bottom-right. The system is solved on the unit square and
// rescaled, which keeps it well conditioned for large sizes.
func SquareToQuad(size float64, quad [4]r2.Point) (*Homography, error) {
	if size <= 0 {
		return nil, errors.Errorf("square size must be positive, got %v", size)
	}
	unit, err := EstimateHomography(SquareCorners(1), quad)
	if err != nil {
		return nil, err
	}
	// H = H_unit * diag(1/size, 1/size, 1)
	scaled := *unit
	for r := 0; r < 3; r++ {
		scaled[r][0] /= size
		scaled[r][1] /= size
	}
	return &scaled, nil
}
