package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGame struct {
	name, command string
}

func (s stubGame) Name() string        { return s.name }
func (s stubGame) Command() string     { return s.command }
func (s stubGame) Description() string { return s.name + " game" }

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(stubGame{"Fishing", "fish"}))
	require.NoError(t, r.Register(stubGame{"Coin Flip", "flip"}))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"fish", "flip"}, r.Commands())

	g, ok := r.Lookup("/flip")
	require.True(t, ok)
	assert.Equal(t, "Coin Flip", g.Name())
	_, ok = r.Lookup("ttt")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	list[0] = nil
	assert.NotNil(t, r.List()[0], "List must return a copy")
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(stubGame{"Nameless", ""}))

	require.NoError(t, r.Register(stubGame{"Coin Flip", "flip"}))
	err := r.Register(stubGame{"Coin Flip v2", "flip"})
	assert.ErrorIs(t, err, ErrDuplicateGame)
	assert.Equal(t, 1, r.Count())
}
