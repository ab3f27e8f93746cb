package scanner

import (
	"time"

	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/rimage"
	"github.com/gridscan/gridscan/vision/sudoku"
)

// ComponentConfig bounds the grid blob relative to the frame. Sizes are fractions of the smaller
// frame dimension.
type ComponentConfig struct {
	MinSizeFraction float64 `json:"min_size_fraction"`
	MaxSizeFraction float64 `json:"max_size_fraction"`
	MinAspectRatio  float64 `json:"min_aspect_ratio"`
	MaxAspectRatio  float64 `json:"max_aspect_ratio"`
}

// Constraints returns the component constraints for a width x height frame.
func (c ComponentConfig) Constraints(width, height int) rimage.ComponentConstraints {
	return rimage.NewComponentConstraints(width, height,
		c.MinSizeFraction, c.MaxSizeFraction, c.MinAspectRatio, c.MaxAspectRatio)
}

// Config tunes the scanning pipeline.
type Config struct {
	// ProcessingSize is the side of the canonical square the grid is rectified into.
	ProcessingSize int `json:"processing_size"`
	// MinBoxes is the number of boxes that must be exceeded before classifying.
	MinBoxes  int           `json:"min_boxes"`
	TickDelay time.Duration `json:"tick_delay"`
	// EMAWeight is the weight of a new latency sample.
	EMAWeight            float64               `json:"ema_weight"`
	ThresholdBlockWidth  int                   `json:"threshold_block_width"`
	ThresholdBlockHeight int                   `json:"threshold_block_height"`
	Sanity               sudoku.SanityBounds   `json:"sanity"`
	Component            ComponentConfig       `json:"component"`
	Boxes                sudoku.ExtractOptions `json:"boxes"`
}

// DefaultConfig returns the tuned pipeline configuration.
func DefaultConfig() Config {
	return Config{
		ProcessingSize:       900,
		MinBoxes:             15,
		TickDelay:            20 * time.Millisecond,
		EMAWeight:            0.1,
		ThresholdBlockWidth:  20,
		ThresholdBlockHeight: 20,
		Sanity:               sudoku.DefaultSanityBounds(),
		Component: ComponentConfig{
			MinSizeFraction: 0.3,
			MaxSizeFraction: 0.9,
			MinAspectRatio:  0.5,
			MaxAspectRatio:  1.5,
		},
		Boxes: sudoku.DefaultExtractOptions(),
	}
}

func checkRange(path string, r sudoku.RatioRange) error {
	if r.Min <= 0 || r.Max < r.Min {
		return errors.Errorf("%s: invalid ratio range [%v, %v]", path, r.Min, r.Max)
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.ProcessingSize <= 0 || c.ProcessingSize%sudoku.GridSize != 0 {
		return errors.Errorf("%s.processing_size must be a positive multiple of %d, got %d",
			path, sudoku.GridSize, c.ProcessingSize)
	}
	if c.MinBoxes < 0 || c.MinBoxes >= sudoku.GridSize*sudoku.GridSize {
		return errors.Errorf("%s.min_boxes must be in [0, %d), got %d", path, sudoku.GridSize*sudoku.GridSize, c.MinBoxes)
	}
	if c.TickDelay <= 0 {
		return errors.Errorf("%s.tick_delay must be positive, got %v", path, c.TickDelay)
	}
	if c.EMAWeight <= 0 || c.EMAWeight > 1 {
		return errors.Errorf("%s.ema_weight must be in (0, 1], got %v", path, c.EMAWeight)
	}
	if c.ThresholdBlockWidth <= 0 || c.ThresholdBlockHeight <= 0 {
		return errors.Errorf("%s: threshold block must be positive, got %dx%d",
			path, c.ThresholdBlockWidth, c.ThresholdBlockHeight)
	}
	for name, r := range map[string]sudoku.RatioRange{
		"sanity.top_to_bottom":  c.Sanity.TopToBottom,
		"sanity.left_to_right":  c.Sanity.LeftToRight,
		"sanity.left_to_bottom": c.Sanity.LeftToBottom,
	} {
		if err := checkRange(path+"."+name, r); err != nil {
			return err
		}
	}
	comp := c.Component
	if comp.MinSizeFraction <= 0 || comp.MaxSizeFraction > 1 || comp.MaxSizeFraction < comp.MinSizeFraction {
		return errors.Errorf("%s.component: invalid size fractions [%v, %v]", path, comp.MinSizeFraction, comp.MaxSizeFraction)
	}
	if err := checkRange(path+".component aspect", sudoku.RatioRange{Min: comp.MinAspectRatio, Max: comp.MaxAspectRatio}); err != nil {
		return err
	}
	b := c.Boxes
	if b.Inset < 0 || b.Inset >= 0.5 {
		return errors.Errorf("%s.boxes.inset must be in [0, 0.5), got %v", path, b.Inset)
	}
	if b.MinDigitSize <= 0 || b.MinDigitSize > 1 {
		return errors.Errorf("%s.boxes.min_digit_size must be in (0, 1], got %v", path, b.MinDigitSize)
	}
	if err := checkRange(path+".boxes aspect", sudoku.RatioRange{Min: b.MinAspectRatio, Max: b.MaxAspectRatio}); err != nil {
		return err
	}
	if b.Padding < 0 {
		return errors.Errorf("%s.boxes.padding must not be negative, got %v", path, b.Padding)
	}
	return nil
}
