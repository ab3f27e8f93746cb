package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/utils"
)

// PointMapper maps a point from one plane into another, e.g. a homography.
type PointMapper interface {
	Apply(pt r2.Point) r2.Point
}

// Interpolation selects how WarpGray samples between source pixels.
type Interpolation int

const (
	// NearestNeighbor keeps source values intact, which is what binary images need.
	NearestNeighbor Interpolation = iota
	// Bilinear blends the four nearest source pixels.
	Bilinear
)

// WarpGray produces a size x size image by mapping the centre of every output pixel through
// mapper into src and sampling there. Samples that land outside src are zero.
func WarpGray(src *image.Gray, mapper PointMapper, size int, interp Interpolation) (*image.Gray, error) {
	if err := checkOrigin(src); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, errors.Errorf("warp size must be positive, got %d", size)
	}

	out := image.NewGray(image.Rect(0, 0, size, size))
	utils.ParallelForEachRow(size, func(y int) {
		for x := 0; x < size; x++ {
			p := mapper.Apply(r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			var v uint8
			switch interp {
			case Bilinear:
				v = sampleBilinear(src, p.X-0.5, p.Y-0.5)
			default:
				v = sampleNearest(src, p.X, p.Y)
			}
			out.Pix[y*out.Stride+x] = v
		}
	})
	return out, nil
}

func sampleNearest(src *image.Gray, fx, fy float64) uint8 {
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return 0
	}
	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	if x < 0 || y < 0 || x >= src.Rect.Dx() || y >= src.Rect.Dy() {
		return 0
	}
	return src.Pix[y*src.Stride+x]
}

func sampleBilinear(src *image.Gray, fx, fy float64) uint8 {
	if math.IsNaN(fx) || math.IsNaN(fy) {
		return 0
	}
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	dx, dy := fx-float64(x0), fy-float64(y0)

	at := func(x, y int) float64 {
		// clamped to the edge
		x = min(max(x, 0), src.Rect.Dx()-1)
		y = min(max(y, 0), src.Rect.Dy()-1)
		return float64(src.Pix[y*src.Stride+x])
	}
	if x0 < -1 || y0 < -1 || x0 >= src.Rect.Dx() || y0 >= src.Rect.Dy() {
		return 0
	}

	top := at(x0, y0)*(1-dx) + at(x0+1, y0)*dx
	bottom := at(x0, y0+1)*(1-dx) + at(x0+1, y0+1)*dx
	return uint8(math.Round(top*(1-dy) + bottom*dy))
}
