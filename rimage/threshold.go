package rimage

import (
	"image"

	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/utils"
)

// thresholdRatio is how much darker than its local mean a pixel must be to count as ink.
const thresholdRatio = 0.85

// AdaptiveThreshold binarizes gray against the mean of the blockWidth x blockHeight window
// centred on each pixel, clipped at the image edges. Pixels darker than thresholdRatio times
// that mean become InkValue, everything else becomes 0. Local means come from an integral
// image so the cost does not depend on the block size.
func AdaptiveThreshold(gray *image.Gray, blockWidth, blockHeight int) (*image.Gray, error) {
	if err := checkOrigin(gray); err != nil {
		return nil, err
	}
	if blockWidth <= 0 || blockHeight <= 0 {
		return nil, errors.Errorf("block size must be positive, got %dx%d", blockWidth, blockHeight)
	}

	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	integral := integralImage(gray)
	stride := width + 1
	halfW, halfH := blockWidth/2, blockHeight/2

	out := image.NewGray(gray.Rect)
	utils.ParallelForEachRow(height, func(y int) {
		y0, y1 := max(y-halfH, 0), min(y+halfH+1, height)
		for x := 0; x < width; x++ {
			x0, x1 := max(x-halfW, 0), min(x+halfW+1, width)
			count := (x1 - x0) * (y1 - y0)
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]

			v := gray.Pix[y*gray.Stride+x]
			if float64(v)*float64(count) < float64(sum)*thresholdRatio {
				out.Pix[y*out.Stride+x] = InkValue
			}
		}
	})
	return out, nil
}

// integralImage returns a (width+1)x(height+1) summed-area table with a zero first row and column.
func integralImage(gray *image.Gray) []int64 {
	width, height := gray.Rect.Dx(), gray.Rect.Dy()
	stride := width + 1
	integral := make([]int64, stride*(height+1))
	for y := 0; y < height; y++ {
		var rowSum int64
		for x := 0; x < width; x++ {
			rowSum += int64(gray.Pix[y*gray.Stride+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}
	return integral
}
