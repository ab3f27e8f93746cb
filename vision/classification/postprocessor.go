package classification

import "strings"

// Postprocessor defines a function that filters/modifies on an incoming array of Classifications.
type Postprocessor func(Classifications) Classifications

// NewScoreFilter returns a function that filters out classifications below a certain confidence
// score.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in Classifications) Classifications {
		out := make(Classifications, 0, len(in))
		for _, c := range in {
			if c.Score() >= conf {
				out = append(out, c)
			}
		}
		return out
	}
}

// NewLabelFilter returns a function that filters out classifications without one of the chosen labels.
// Does not filter when labels is empty.
func NewLabelFilter(labels map[string]interface{}) Postprocessor {
	return func(in Classifications) Classifications {
		if len(labels) < 1 {
			return in
		}
		out := make(Classifications, 0, len(in))
		for _, c := range in {
			if _, ok := labels[strings.ToLower(strings.TrimSpace(c.Label()))]; ok {
				out = append(out, c)
			}
		}
		return out
	}
}

// NewDigitFilter keeps only the labels "1" to "9". Models that also predict an empty cell ("0"
// or "blank") lose that candidate.
func NewDigitFilter() Postprocessor {
	labels := make(map[string]interface{}, 9)
	for _, l := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		labels[l] = struct{}{}
	}
	return NewLabelFilter(labels)
}
