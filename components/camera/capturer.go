package camera

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/rimage"
)

// Capturer snapshots the current frame of a VideoSource.
type Capturer struct {
	source VideoSource
}

// NewCapturer returns a Capturer reading from source.
func NewCapturer(source VideoSource) *Capturer {
	return &Capturer{source: source}
}

// Capture returns the current frame as a grayscale image at the source's resolution. The buffer is
// newly allocated on every call and shares nothing with the source.
func (c *Capturer) Capture(ctx context.Context) (*image.Gray, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, err := c.source.Frame()
	if err != nil {
		return nil, errors.Wrap(err, "cannot capture frame")
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, errors.New("captured an empty frame")
	}
	return rimage.MakeGray(imaging.Clone(frame)), nil
}
