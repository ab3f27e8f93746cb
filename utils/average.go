package utils

import (
	"sync"
	"time"
)

// ExponentialAverage is an exponentially smoothed value. Each sample is blended in as
// weight*sample + (1-weight)*previous, starting from zero.
type ExponentialAverage struct {
	mu     sync.Mutex
	weight float64
	value  float64
	count  int
}

// NewExponentialAverage returns an average that gives each new sample the given weight.
func NewExponentialAverage(weight float64) *ExponentialAverage {
	return &ExponentialAverage{weight: weight}
}

// Add blends x into the average and returns the new value.
func (ea *ExponentialAverage) Add(x float64) float64 {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.value = ea.weight*x + (1-ea.weight)*ea.value
	ea.count++
	return ea.value
}

// AddDuration blends a duration sample in, measured in milliseconds.
func (ea *ExponentialAverage) AddDuration(d time.Duration) float64 {
	return ea.Add(float64(d) / float64(time.Millisecond))
}

// Value returns the current smoothed value.
func (ea *ExponentialAverage) Value() float64 {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	return ea.value
}

// NumSamples returns how many samples have been added.
func (ea *ExponentialAverage) NumSamples() int {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	return ea.count
}
