package solver

import (
	"github.com/gridscan/gridscan/vision/sudoku"
)

const (
	// DefaultMaxSteps bounds the work of one solve attempt.
	DefaultMaxSteps = 2_000_000
	// MinGivens is the fewest givens a puzzle with a unique solution can have.
	MinGivens = 17
)

// Func is the solver the scanner calls with the classified boxes. A non-empty result, normally
// the solved board, ends the scan; "" means keep scanning.
type Func func(boxes []sudoku.Box) string

// NewBacktracking returns a Func that solves boards with at least minGivens givens by
// backtracking, giving up after maxSteps placements.
func NewBacktracking(minGivens, maxSteps int) Func {
	return func(boxes []sudoku.Box) string {
		board, err := FromBoxes(boxes)
		if err != nil || board.Givens() < minGivens || !ValidGivens(&board) {
			return ""
		}
		if !BacktrackingSolve(&board, maxSteps) || !Validate(&board) {
			return ""
		}
		return board.String()
	}
}

// Solve is the default Func.
func Solve(boxes []sudoku.Box) string {
	return NewBacktracking(MinGivens, DefaultMaxSteps)(boxes)
}
