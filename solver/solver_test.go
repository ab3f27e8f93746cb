package solver

import (
	"testing"

	"go.viam.com/test"

	"github.com/gridscan/gridscan/vision/sudoku"
)

var puzzle = Board{
	{5, 3, 0, 0, 7, 0, 0, 0, 0},
	{6, 0, 0, 1, 9, 5, 0, 0, 0},
	{0, 9, 8, 0, 0, 0, 0, 6, 0},
	{8, 0, 0, 0, 6, 0, 0, 0, 3},
	{4, 0, 0, 8, 0, 3, 0, 0, 1},
	{7, 0, 0, 0, 2, 0, 0, 0, 6},
	{0, 6, 0, 0, 0, 0, 2, 8, 0},
	{0, 0, 0, 4, 1, 9, 0, 0, 5},
	{0, 0, 0, 0, 8, 0, 0, 7, 9},
}

const solution = "534678912" +
	"672195348" +
	"198342567" +
	"859761423" +
	"426853791" +
	"713924856" +
	"961537284" +
	"287419635" +
	"345286179"

func boxesOf(b Board) []sudoku.Box {
	var boxes []sudoku.Box
	for r := range b {
		for c := range b[r] {
			if b[r][c] != 0 {
				boxes = append(boxes, sudoku.Box{X: c, Y: r, Contents: b[r][c]})
			}
		}
	}
	return boxes
}

func TestBacktrackingSolve(t *testing.T) {
	board := puzzle
	test.That(t, ValidGivens(&board), test.ShouldBeTrue)
	test.That(t, Validate(&board), test.ShouldBeFalse)
	test.That(t, BacktrackingSolve(&board, 0), test.ShouldBeTrue)
	test.That(t, Validate(&board), test.ShouldBeTrue)
	test.That(t, board.String(), test.ShouldEqual, solution)

	limited := puzzle
	test.That(t, BacktrackingSolve(&limited, 5), test.ShouldBeFalse)
	test.That(t, limited, test.ShouldResemble, puzzle)
}

func TestFromBoxes(t *testing.T) {
	boxes := boxesOf(puzzle)
	// unrecognised boxes stay empty
	boxes = append(boxes, sudoku.Box{X: 8, Y: 8})
	board, err := FromBoxes(boxes)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, board, test.ShouldResemble, puzzle)
	test.That(t, board.Givens(), test.ShouldEqual, 30)

	_, err = FromBoxes([]sudoku.Box{{X: 9, Y: 0, Contents: 1}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = FromBoxes([]sudoku.Box{{X: 0, Y: 0, Contents: 10}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolve(t *testing.T) {
	test.That(t, Solve(boxesOf(puzzle)), test.ShouldEqual, solution)

	conflicting := puzzle
	conflicting[0][2] = 5
	test.That(t, Solve(boxesOf(conflicting)), test.ShouldEqual, "")

	test.That(t, Solve(boxesOf(puzzle)[:16]), test.ShouldEqual, "")
	test.That(t, Solve(nil), test.ShouldEqual, "")
	test.That(t, Solve([]sudoku.Box{{X: -1, Y: 0, Contents: 3}}), test.ShouldEqual, "")

	lenient := NewBacktracking(0, 0)
	var empty Board
	test.That(t, lenient(boxesOf(empty)), test.ShouldHaveLength, 81)
}
