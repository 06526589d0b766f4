// Package tictactoe implements two-player tic-tac-toe matches with an
// invite handshake and an optional bet.
package tictactoe

// Mark is a cell value. The values make a completed line sum to ±3.
type Mark int8

const (
	Empty Mark = 0
	X     Mark = -1
	O     Mark = 1
)

func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return " "
	}
}

// Other returns the opposing mark.
func (m Mark) Other() Mark {
	return -m
}

// Size is the board width and height.
const Size = 3

// Board is indexed [y][x].
type Board [Size][Size]Mark

// Outcome is the evaluation of a board.
type Outcome int

const (
	Ongoing Outcome = iota
	Win
	Tie
)

var lines = [8][3][2]int{
	// rows
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	// columns
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	// diagonals
	{{0, 0}, {1, 1}, {2, 2}},
	{{2, 0}, {1, 1}, {0, 2}},
}

// InBounds reports whether (x, y) is on the board.
func InBounds(x, y int) bool {
	return x >= 0 && x < Size && y >= 0 && y < Size
}

// At returns the mark at (x, y).
func (b *Board) At(x, y int) Mark {
	return b[y][x]
}

// Place sets an empty in-bounds cell and reports whether it did.
func (b *Board) Place(x, y int, m Mark) bool {
	if !InBounds(x, y) || b[y][x] != Empty {
		return false
	}
	b[y][x] = m
	return true
}

// Evaluate checks all eight lines before treating a full board as a tie,
// so a move that completes a line on the last empty cell is a win.
func (b *Board) Evaluate() (Outcome, Mark) {
	for _, line := range lines {
		var sum int
		for _, c := range line {
			sum += int(b[c[1]][c[0]])
		}
		switch sum {
		case 3 * int(O):
			return Win, O
		case 3 * int(X):
			return Win, X
		}
	}

	for y := range b {
		for x := range b[y] {
			if b[y][x] == Empty {
				return Ongoing, Empty
			}
		}
	}
	return Tie, Empty
}
