package sudoku

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/rimage"
)

// Box is one grid cell that contains ink. Contents is the recognised digit, 0 while unknown.
type Box struct {
	X        int         `json:"x"`
	Y        int         `json:"y"`
	Contents int         `json:"contents"`
	Image    image.Image `json:"-"`
}

// ExtractOptions tunes how cells are tested for ink.
type ExtractOptions struct {
	// Inset is the fraction of the cell trimmed from each side before looking for ink, keeping
	// the grid lines out of the search.
	Inset float64 `json:"inset"`
	// MinDigitSize is the smallest ink blob, as a fraction of the cell, that counts as a digit.
	// Anything smaller is noise.
	MinDigitSize float64 `json:"min_digit_size"`
	// MinAspectRatio and MaxAspectRatio bound the width/height of a digit blob.
	MinAspectRatio float64 `json:"min_aspect_ratio"`
	MaxAspectRatio float64 `json:"max_aspect_ratio"`
	// Padding is added around the digit, as a fraction of the cell, when cropping.
	Padding float64 `json:"padding"`
}

// DefaultExtractOptions returns the tuned extraction options.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Inset:          0.15,
		MinDigitSize:   0.3,
		MinAspectRatio: 0.05,
		MaxAspectRatio: 1.5,
		Padding:        0.1,
	}
}

// ExtractBoxes splits the rectified images into a 9x9 grid and returns a Box for every cell whose
// thresholded interior holds a digit-sized blob. The box image is cropped from gray around the
// blob. At most 81 boxes are returned, in row-major order.
func ExtractBoxes(gray, thresholded *image.Gray, opts ExtractOptions) ([]Box, error) {
	if gray == nil || thresholded == nil {
		return nil, errors.New("missing rectified image")
	}
	if !rimage.SameImgSize(gray, thresholded) {
		return nil, errors.Errorf("rectified images differ in size: %v vs %v", gray.Bounds(), thresholded.Bounds())
	}
	size := thresholded.Rect.Dx()
	if thresholded.Rect.Dy() != size || size%GridSize != 0 || thresholded.Rect.Min != (image.Point{}) {
		return nil, errors.Errorf("rectified image must be an origin-based square divisible by %d, got %v",
			GridSize, thresholded.Rect)
	}

	boxSize := size / GridSize
	inset := int(float64(boxSize) * opts.Inset)
	padding := int(float64(boxSize) * opts.Padding)
	constraints := rimage.ComponentConstraints{
		MinAspectRatio: opts.MinAspectRatio,
		MaxAspectRatio: opts.MaxAspectRatio,
		MinSize:        opts.MinDigitSize * float64(boxSize),
		MaxSize:        float64(boxSize),
	}

	var boxes []Box
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			cell := image.Rect(x*boxSize, y*boxSize, (x+1)*boxSize, (y+1)*boxSize)
			interior := cell.Inset(inset)
			if rimage.CountInk(thresholded, interior) == 0 {
				continue
			}
			digit, ok := rimage.LargestComponent(thresholded, interior, constraints)
			if !ok {
				continue
			}
			crop := squareAround(digit.Bounds, padding).Intersect(cell)
			boxes = append(boxes, Box{
				X:     x,
				Y:     y,
				Image: imaging.Crop(gray, crop.Add(gray.Rect.Min)),
			})
		}
	}
	return boxes, nil
}

// squareAround returns the smallest square containing r, grown by padding on every side.
func squareAround(r image.Rectangle, padding int) image.Rectangle {
	side := max(r.Dx(), r.Dy()) + 2*padding
	cx, cy := (r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2
	minPt := image.Point{cx - side/2, cy - side/2}
	return image.Rectangle{Min: minPt, Max: minPt.Add(image.Point{side, side})}
}
