// Package classification holds the digit classifier contract and its HTTP client.
package classification

import (
	"context"
	"image"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Classification is one predicted label with its confidence score.
type Classification interface {
	Score() float64
	Label() string
}

// Classifications are the candidate labels predicted for one image.
type Classifications []Classification

// DigitClassifier predicts the digit shown in each cell image. It returns one Classifications
// per input image, in input order; an image may get no candidates at all.
type DigitClassifier interface {
	Classify(ctx context.Context, imgs []image.Image) ([]Classifications, error)
}

type classification struct {
	score float64
	label string
}

// NewClassification creates a simple classification object.
func NewClassification(score float64, label string) Classification {
	return &classification{score: score, label: label}
}

func (c *classification) Score() float64 {
	return c.score
}

func (c *classification) Label() string {
	return c.label
}

// TopN returns the n highest scoring classifications, best first.
func (cc Classifications) TopN(n int) Classifications {
	sorted := make(Classifications, len(cc))
	copy(sorted, cc)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score() > sorted[j].Score() })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Digit returns the digit 1-9 named by the best candidate that survives the postprocessors, or 0
// when there is none.
func Digit(cc Classifications, pp ...Postprocessor) int {
	for _, p := range pp {
		cc = p(cc)
	}
	for _, c := range cc.TopN(len(cc)) {
		if d, err := strconv.Atoi(strings.TrimSpace(c.Label())); err == nil && d >= 1 && d <= 9 {
			return d
		}
	}
	return 0
}

// ClassifyDigits runs classifier over imgs and reduces each result to a digit with Digit.
func ClassifyDigits(ctx context.Context, classifier DigitClassifier, imgs []image.Image, pp ...Postprocessor) ([]int, error) {
	if len(imgs) == 0 {
		return nil, nil
	}
	results, err := classifier.Classify(ctx, imgs)
	if err != nil {
		return nil, err
	}
	if len(results) != len(imgs) {
		return nil, errors.Errorf("classifier returned %d results for %d images", len(results), len(imgs))
	}
	digits := make([]int, len(results))
	for i, cc := range results {
		digits[i] = Digit(cc, pp...)
	}
	return digits, nil
}
