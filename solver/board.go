// Package solver is the default puzzle solver handed to the scanner: it fills a board from the
// recognised boxes and solves it by backtracking.
package solver

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/vision/sudoku"
)

// Board is a 9x9 grid indexed [row][col]. Zero marks an empty cell.
type Board [sudoku.GridSize][sudoku.GridSize]int

// FromBoxes places the recognised digits of boxes on an empty board. Boxes whose contents are
// still 0 are skipped.
func FromBoxes(boxes []sudoku.Box) (Board, error) {
	var b Board
	for _, box := range boxes {
		if box.X < 0 || box.X >= sudoku.GridSize || box.Y < 0 || box.Y >= sudoku.GridSize {
			return Board{}, errors.Errorf("box (%d, %d) outside of the grid", box.X, box.Y)
		}
		if box.Contents < 0 || box.Contents > 9 {
			return Board{}, errors.Errorf("box (%d, %d) holds invalid digit %d", box.X, box.Y, box.Contents)
		}
		if box.Contents == 0 {
			continue
		}
		b[box.Y][box.X] = box.Contents
	}
	return b, nil
}

// Givens returns the number of filled cells.
func (b *Board) Givens() int {
	n := 0
	for r := range b {
		for c := range b[r] {
			if b[r][c] != 0 {
				n++
			}
		}
	}
	return n
}

// String returns the board as 81 digits in row-major order.
func (b *Board) String() string {
	var sb strings.Builder
	sb.Grow(sudoku.GridSize * sudoku.GridSize)
	for r := range b {
		for c := range b[r] {
			sb.WriteByte(byte('0' + b[r][c]))
		}
	}
	return sb.String()
}
