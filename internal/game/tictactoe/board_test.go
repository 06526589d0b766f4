package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func boardOf(rows ...string) Board {
	var b Board
	for y, row := range rows {
		for x, c := range row {
			switch c {
			case 'X':
				b[y][x] = X
			case 'O':
				b[y][x] = O
			}
		}
	}
	return b
}

func TestBoard_Evaluate(t *testing.T) {
	tests := []struct {
		name    string
		board   Board
		outcome Outcome
		winner  Mark
	}{
		{"empty", boardOf("...", "...", "..."), Ongoing, Empty},
		{"top row", boardOf("XXX", "OO.", "..."), Win, X},
		{"middle column", boardOf("XO.", ".OX", "XO."), Win, O},
		{"main diagonal", boardOf("X.O", ".XO", "..X"), Win, X},
		{"anti diagonal", boardOf("X.O", "XO.", "O.X"), Win, O},
		{"tie", boardOf("XOX", "XOO", "OXX"), Tie, Empty},
		{"win on last cell", boardOf("XOX", "OXO", "OXX"), Win, X},
		{"ongoing", boardOf("XO.", "...", "..."), Ongoing, Empty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, winner := tt.board.Evaluate()
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.winner, winner)
		})
	}
}

func TestBoard_Place(t *testing.T) {
	var b Board
	assert.True(t, b.Place(1, 2, X))
	assert.Equal(t, X, b.At(1, 2))
	assert.False(t, b.Place(1, 2, O), "occupied")
	assert.Equal(t, X, b.At(1, 2))
	assert.False(t, b.Place(3, 0, O))
	assert.False(t, b.Place(0, -1, O))
}

func TestMark_Other(t *testing.T) {
	assert.Equal(t, O, X.Other())
	assert.Equal(t, X, O.Other())
	assert.Equal(t, "X", X.String())
}

// Any board holding a complete line is a win for the line's owner, even when
// the board is full.
func TestBoard_LineIsWinProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var b Board
		for y := range Size {
			for x := range Size {
				b[y][x] = rapid.SampledFrom([]Mark{Empty, X, O}).Draw(t, "cell")
			}
		}
		line := lines[rapid.IntRange(0, len(lines)-1).Draw(t, "line")]
		owner := rapid.SampledFrom([]Mark{X, O}).Draw(t, "owner")
		for _, c := range line {
			b[c[1]][c[0]] = owner
		}

		outcome, winner := b.Evaluate()
		if outcome != Win {
			t.Fatalf("complete line evaluated as %v", outcome)
		}
		// Both marks may own a line on an arbitrary board; the winner
		// must own at least one of them.
		if !hasLine(&b, winner) {
			t.Fatalf("winner %v has no line", winner)
		}
	})
}

func hasLine(b *Board, m Mark) bool {
	for _, line := range lines {
		all := true
		for _, c := range line {
			all = all && b[c[1]][c[0]] == m
		}
		if all {
			return true
		}
	}
	return false
}
