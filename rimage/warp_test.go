package rimage

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/gridscan/gridscan/utils"
)

type scaleMapper struct {
	scale  float64
	offset r2.Point
}

func (m scaleMapper) Apply(pt r2.Point) r2.Point {
	return r2.Point{X: pt.X*m.scale + m.offset.X, Y: pt.Y*m.scale + m.offset.Y}
}

func increasingGray(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*img.Stride+x] = uint8(y*width + x)
		}
	}
	return img
}

func TestWarpGrayIdentity(t *testing.T) {
	src := increasingGray(10, 10)
	for _, interp := range []Interpolation{NearestNeighbor, Bilinear} {
		out, err := WarpGray(src, scaleMapper{scale: 1}, 10, interp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.Bounds(), test.ShouldResemble, image.Rect(0, 0, 10, 10))
		test.That(t, out.Pix, test.ShouldResemble, src.Pix)
	}
}

func TestWarpGrayCropAndScale(t *testing.T) {
	src := increasingGray(10, 10)

	// take the 5x5 window starting at (2, 3)
	out, err := WarpGray(src, scaleMapper{scale: 1, offset: r2.Point{X: 2, Y: 3}}, 5, NearestNeighbor)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.GrayAt(0, 0).Y, test.ShouldEqual, src.GrayAt(2, 3).Y)
	test.That(t, out.GrayAt(4, 4).Y, test.ShouldEqual, src.GrayAt(6, 7).Y)

	// downsample by two, nearest picks the lower-right pixel of each 2x2 block
	out, err = WarpGray(src, scaleMapper{scale: 2}, 5, NearestNeighbor)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.GrayAt(1, 1).Y, test.ShouldEqual, src.GrayAt(3, 3).Y)

	// bilinear averages the 2x2 block
	out, err = WarpGray(src, scaleMapper{scale: 2}, 5, Bilinear)
	test.That(t, err, test.ShouldBeNil)
	expected := (int(src.GrayAt(2, 2).Y) + int(src.GrayAt(3, 2).Y) + int(src.GrayAt(2, 3).Y) + int(src.GrayAt(3, 3).Y)) / 4
	test.That(t, int(out.GrayAt(1, 1).Y), test.ShouldAlmostEqual, expected, 1)
}

func TestWarpGrayOutside(t *testing.T) {
	src := increasingGray(4, 4)
	out, err := WarpGray(src, scaleMapper{scale: 1, offset: r2.Point{X: 100, Y: 100}}, 3, NearestNeighbor)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, CountInk(out, out.Bounds()), test.ShouldEqual, 0)

	_, err = WarpGray(src, scaleMapper{scale: 1}, 0, NearestNeighbor)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = WarpGray(src.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray), scaleMapper{scale: 1}, 2, NearestNeighbor)
	test.That(t, err, test.ShouldNotBeNil)
}

// rowPanicMapper fails when asked for one canonical row.
type rowPanicMapper struct {
	row float64
}

func (m rowPanicMapper) Apply(pt r2.Point) r2.Point {
	if pt.Y >= m.row && pt.Y < m.row+1 {
		panic("mapper failed")
	}
	return pt
}

func TestWarpGrayPanicReachesCaller(t *testing.T) {
	prev := utils.ParallelFactor
	utils.ParallelFactor = 4
	defer func() { utils.ParallelFactor = prev }()

	src := increasingGray(16, 16)
	test.That(t, func() {
		_, _ = WarpGray(src, rowPanicMapper{row: 11}, 16, NearestNeighbor)
	}, test.ShouldPanicWith, "mapper failed")
}
