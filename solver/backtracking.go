package solver

// BacktrackingSolve fills the empty cells of board in place. It gives up after maxSteps digit
// placements when maxSteps is positive. It returns whether the board was solved; on failure the
// board is left as it was.
func BacktrackingSolve(board *Board, maxSteps int) bool {
	steps := 0
	return backtrackingSolve(board, 0, 0, &steps, maxSteps)
}

func backtrackingSolve(board *Board, r, c int, steps *int, maxSteps int) bool {
	r, c, solved := nextEmptyCell(board, r, c)
	if solved {
		return true
	}

	for d := 1; d <= 9; d++ {
		if !isValid(board, r, c, d) {
			continue
		}
		if maxSteps > 0 && *steps >= maxSteps {
			return false
		}
		*steps++
		board[r][c] = d
		if backtrackingSolve(board, r, c, steps, maxSteps) {
			return true
		}
		board[r][c] = 0
	}
	return false
}

func nextEmptyCell(board *Board, row, col int) (r, c int, solved bool) {
	for ; row < 9; row++ {
		for ; col < 9; col++ {
			if board[row][col] == 0 {
				return row, col, false
			}
		}
		col = 0
	}
	return 0, 0, true
}

func isValid(board *Board, row, col, digit int) bool {
	for i := 0; i < 9; i++ {
		if board[row][i] == digit ||
			board[i][col] == digit ||
			board[row/3*3+i/3][col/3*3+i%3] == digit {
			return false
		}
	}
	return true
}
