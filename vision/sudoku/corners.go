// Package sudoku locates a 9x9 puzzle grid in a thresholded frame and cuts it into cells.
package sudoku

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/rimage"
)

var (
	// ErrNoComponent is returned when no foreground blob looks like a grid.
	ErrNoComponent = errors.New("no grid-like component found")
	// ErrCornersRejected is returned when the corner quadrilateral fails the side ratio checks.
	ErrCornersRejected = errors.New("grid corners failed sanity check")
)

// Corners are the four outer corners of a detected grid, in video space.
type Corners struct {
	TopLeft     r2.Point `json:"top_left"`
	TopRight    r2.Point `json:"top_right"`
	BottomLeft  r2.Point `json:"bottom_left"`
	BottomRight r2.Point `json:"bottom_right"`
}

// Quad returns the corners ordered top-left, top-right, bottom-left, bottom-right, matching
// transform.SquareCorners.
func (c Corners) Quad() [4]r2.Point {
	return [4]r2.Point{c.TopLeft, c.TopRight, c.BottomLeft, c.BottomRight}
}

// Sides returns the lengths of the top, left, right and bottom edges.
func (c Corners) Sides() (top, left, right, bottom float64) {
	top = c.TopRight.Sub(c.TopLeft).Norm()
	left = c.BottomLeft.Sub(c.TopLeft).Norm()
	right = c.BottomRight.Sub(c.TopRight).Norm()
	bottom = c.BottomRight.Sub(c.BottomLeft).Norm()
	return
}

// RatioRange is an inclusive range for the ratio of two side lengths.
type RatioRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains returns whether a/b lies within the range, boundaries included.
func (r RatioRange) Contains(a, b float64) bool {
	if b == 0 {
		return false
	}
	ratio := a / b
	return ratio >= r.Min && ratio <= r.Max
}

// SanityBounds are the side ratio limits a corner quadrilateral must respect to be trusted.
// They reject partially occluded grids and blobs that are not grids at all.
type SanityBounds struct {
	TopToBottom  RatioRange `json:"top_to_bottom"`
	LeftToRight  RatioRange `json:"left_to_right"`
	LeftToBottom RatioRange `json:"left_to_bottom"`
}

// DefaultSanityBounds returns the tuned side ratio limits.
func DefaultSanityBounds() SanityBounds {
	return SanityBounds{
		TopToBottom:  RatioRange{Min: 0.5, Max: 1.5},
		LeftToRight:  RatioRange{Min: 0.7, Max: 1.3},
		LeftToBottom: RatioRange{Min: 0.5, Max: 1.5},
	}
}

// AcceptsSides checks side lengths against the bounds.
func (b SanityBounds) AcceptsSides(top, left, right, bottom float64) bool {
	return b.TopToBottom.Contains(top, bottom) &&
		b.LeftToRight.Contains(left, right) &&
		b.LeftToBottom.Contains(left, bottom)
}

// Sane returns whether the corners pass the side ratio checks.
func (c Corners) Sane(bounds SanityBounds) bool {
	return bounds.AcceptsSides(c.Sides())
}

// EstimateCorners picks the extremal points of a component along the two diagonals: top-left
// minimises x+y, bottom-right maximises it, top-right maximises x-y and bottom-left minimises
// it. Each corner is placed on the outer edge of its pixel.
func EstimateCorners(cc *rimage.ConnectedComponent) (Corners, error) {
	if cc == nil || len(cc.Points) == 0 {
		return Corners{}, ErrNoComponent
	}

	minSum, maxSum := math.MaxInt, math.MinInt
	minDiff, maxDiff := math.MaxInt, math.MinInt
	var tl, br, tr, bl r2.Point
	for _, p := range cc.Points {
		sum, diff := p.X+p.Y, p.X-p.Y
		if sum < minSum {
			minSum = sum
			tl = r2.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		if sum > maxSum {
			maxSum = sum
			br = r2.Point{X: float64(p.X + 1), Y: float64(p.Y + 1)}
		}
		if diff > maxDiff {
			maxDiff = diff
			tr = r2.Point{X: float64(p.X + 1), Y: float64(p.Y)}
		}
		if diff < minDiff {
			minDiff = diff
			bl = r2.Point{X: float64(p.X), Y: float64(p.Y + 1)}
		}
	}
	return Corners{TopLeft: tl, TopRight: tr, BottomLeft: bl, BottomRight: br}, nil
}

// FindCorners estimates corners for cc and applies the sanity check.
func FindCorners(cc *rimage.ConnectedComponent, bounds SanityBounds) (Corners, error) {
	corners, err := EstimateCorners(cc)
	if err != nil {
		return Corners{}, err
	}
	if !corners.Sane(bounds) {
		top, left, right, bottom := corners.Sides()
		return Corners{}, errors.Wrapf(ErrCornersRejected, "sides top=%.1f left=%.1f right=%.1f bottom=%.1f",
			top, left, right, bottom)
	}
	return corners, nil
}
