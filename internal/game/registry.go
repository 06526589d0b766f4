package game

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateGame is returned when two games claim the same command.
var ErrDuplicateGame = errors.New("game command already registered")

// Registry holds the game descriptors in registration order, which is the
// order /games lists them in.
type Registry struct {
	mu      sync.RWMutex
	byCmd   map[string]Game
	ordered []Game
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCmd: make(map[string]Game)}
}

// Register adds a game. Commands must be non-empty and unique.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return errors.New("cannot register nil game")
	}
	cmd := g.Command()
	if cmd == "" {
		return fmt.Errorf("game %q has no command", g.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCmd[cmd]; ok {
		return fmt.Errorf("%w: /%s", ErrDuplicateGame, cmd)
	}
	r.byCmd[cmd] = g
	r.ordered = append(r.ordered, g)
	return nil
}

// Lookup finds a game by command, with or without the leading slash.
func (r *Registry) Lookup(command string) (Game, bool) {
	if len(command) > 0 && command[0] == '/' {
		command = command[1:]
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byCmd[command]
	return g, ok
}

// List returns a copy of the registered games.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Game(nil), r.ordered...)
}

// Commands returns the registered commands in listing order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmds := make([]string, len(r.ordered))
	for i, g := range r.ordered {
		cmds[i] = g.Command()
	}
	return cmds
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
