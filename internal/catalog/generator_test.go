package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/random"
)

type fakeTemplates map[model.Rarity][]model.FishTemplate

func (f fakeTemplates) ListByRarity(_ context.Context, r model.Rarity) ([]model.FishTemplate, error) {
	return f[r], nil
}

type failingTemplates struct{}

func (failingTemplates) ListByRarity(context.Context, model.Rarity) ([]model.FishTemplate, error) {
	return nil, model.ErrStorageUnavailable
}

func fullCatalog() fakeTemplates {
	f := fakeTemplates{}
	for _, r := range model.Rarities {
		for i := 0; i < 3; i++ {
			f[r] = append(f[r], model.FishTemplate{
				ID:         int(r)*10 + i,
				Name:       r.String(),
				Rarity:     r,
				MinLength:  100 * (i + 1),
				MaxLength:  100*(i+1) + 50,
				BasePrice:  int(r) + 1,
				ConstValue: 1.5,
			})
		}
	}
	return f
}

func TestValidateTable_Default(t *testing.T) {
	assert.NoError(t, ValidateTable(DefaultTable))
}

func TestNewGenerator_NilTableSelectsDefault(t *testing.T) {
	var sum float64
	for _, w := range DefaultTable {
		sum += w.Percent
	}
	assert.InDelta(t, 100, sum, sumTolerance)

	g, err := NewGenerator(fullCatalog(), random.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, g.table)

	fish, err := g.Draw(context.Background())
	require.NoError(t, err)
	assert.Positive(t, fish.Price)
}

func TestValidateTable_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		table []Weight
	}{
		{"short", DefaultTable[:5]},
		{"bad sum", []Weight{
			{model.Common, 60}, {model.Uncommon, 30}, {model.Rare, 5},
			{model.Epic, 2}, {model.Legendary, 0.1}, {model.Mythic, 0.025},
		}},
		{"not decreasing", []Weight{
			{model.Common, 40}, {model.Uncommon, 50}, {model.Rare, 5},
			{model.Epic, 4}, {model.Legendary, 0.9}, {model.Mythic, 0.1},
		}},
		{"out of order", []Weight{
			{model.Uncommon, 62.875}, {model.Common, 30}, {model.Rare, 5},
			{model.Epic, 2}, {model.Legendary, 0.1}, {model.Mythic, 0.025},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateTable(tt.table), ErrInvalidTable)
			_, err := NewGenerator(fullCatalog(), random.NewSeeded(1, 2), tt.table)
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestDrawRarity_Frequencies(t *testing.T) {
	g, err := NewGenerator(fullCatalog(), random.NewSeeded(42, 7), nil)
	require.NoError(t, err)

	const draws = 100_000
	counts := make(map[model.Rarity]int)
	for i := 0; i < draws; i++ {
		counts[g.DrawRarity()]++
	}

	for _, w := range DefaultTable {
		p := w.Percent / 100
		got := float64(counts[w.Rarity]) / draws
		// Five standard deviations of a binomial proportion, with a floor
		// for the rarest tiers.
		tol := math.Max(5*math.Sqrt(p*(1-p)/draws), 0.0005)
		assert.InDelta(t, p, got, tol, "tier %s", w.Rarity)
	}
}

func TestDrawItem_StaysInTier(t *testing.T) {
	cat := fullCatalog()
	rapid.Check(t, func(t *rapid.T) {
		tier := model.Rarity(rapid.IntRange(0, 5).Draw(t, "tier"))
		seed := rapid.Uint64().Draw(t, "seed")
		g, err := NewGenerator(cat, random.NewSeeded(seed, seed+1), nil)
		require.NoError(t, err)

		fish, err := g.DrawItem(context.Background(), tier)
		require.NoError(t, err)
		assert.Equal(t, tier, fish.Template.Rarity)
		assert.GreaterOrEqual(t, fish.Length, fish.Template.MinLength)
		assert.LessOrEqual(t, fish.Length, fish.Template.MaxLength)
		assert.Equal(t, Price(fish.Template, fish.Length), fish.Price)
	})
}

func TestDrawItem_EmptyTierDoesNotFallBack(t *testing.T) {
	cat := fullCatalog()
	delete(cat, model.Mythic)
	g, err := NewGenerator(cat, random.NewSeeded(1, 2), nil)
	require.NoError(t, err)

	_, err = g.DrawItem(context.Background(), model.Mythic)
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestDrawItem_StorageError(t *testing.T) {
	g, err := NewGenerator(failingTemplates{}, random.NewSeeded(1, 2), nil)
	require.NoError(t, err)

	_, err = g.DrawItem(context.Background(), model.Common)
	assert.True(t, errors.Is(err, model.ErrStorageUnavailable))
}

func TestPrice(t *testing.T) {
	tmpl := model.FishTemplate{BasePrice: 2, ConstValue: 0.9}
	assert.Equal(t, int64(540), Price(tmpl, 300))

	// 1 * 5 * 0.5 = 2.5 rounds half to even.
	assert.Equal(t, int64(2), Price(model.FishTemplate{BasePrice: 1, ConstValue: 0.5}, 5))
	assert.Equal(t, int64(4), Price(model.FishTemplate{BasePrice: 1, ConstValue: 0.5}, 7))
}

func TestFish_DisplayLength(t *testing.T) {
	assert.Equal(t, "35.0cm", model.Fish{Length: 350}.DisplayLength())
	assert.Equal(t, "1.25m", model.Fish{Length: 1250}.DisplayLength())
}
