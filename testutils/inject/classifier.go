package inject

import (
	"context"
	"image"

	"github.com/gridscan/gridscan/vision/classification"
)

// DigitClassifier is an injected classification.DigitClassifier.
type DigitClassifier struct {
	classification.DigitClassifier
	ClassifyFunc func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error)
}

// Classify calls the injected Classify or the real version.
func (c *DigitClassifier) Classify(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
	if c.ClassifyFunc == nil {
		return c.DigitClassifier.Classify(ctx, imgs)
	}
	return c.ClassifyFunc(ctx, imgs)
}
