// Package game describes the playable games for help listings.
//
// Each engine keeps its own entry points since their shapes differ: a coin
// flip resolves in one call, while fishing and tic-tac-toe are long-lived
// sessions driven by timers and button presses.
package game

// Game is the descriptor every engine exposes.
type Game interface {
	// Name returns the game's display name (e.g., "Coin Flip").
	Name() string

	// Command returns the command that starts the game (e.g., "flip").
	Command() string

	// Description returns a brief description of the game.
	Description() string
}
