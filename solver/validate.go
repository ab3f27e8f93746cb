package solver

// Validate reports whether board is completely filled without repeating a digit in any row,
// column or 3x3 block.
func Validate(board *Board) bool {
	return check(board, false)
}

// ValidGivens reports whether the filled cells of board are free of conflicts. Empty cells are
// allowed.
func ValidGivens(board *Board) bool {
	return check(board, true)
}

func check(board *Board, allowEmpty bool) bool {
	var rows, cols, boxes [9][9]bool
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			cell := board[row][col]
			if cell == 0 {
				if allowEmpty {
					continue
				}
				return false
			}
			if cell < 0 || cell > 9 {
				return false
			}

			digit := cell - 1
			boxIndex := row/3*3 + col/3
			if rows[row][digit] || cols[col][digit] || boxes[boxIndex][digit] {
				return false
			}

			rows[row][digit], cols[col][digit], boxes[boxIndex][digit] = true, true, true
		}
	}
	return true
}
