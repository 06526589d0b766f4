// Package catalog generates fish catches from the stored species catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/random"
)

var (
	// ErrEmptyCatalog is returned when the drawn tier has no templates.
	ErrEmptyCatalog = errors.New("no fish in catalog for tier")
	// ErrInvalidTable is returned by ValidateTable.
	ErrInvalidTable = errors.New("invalid rarity table")
)

// Weight is the chance, in percent, of drawing a tier.
type Weight struct {
	Rarity  model.Rarity
	Percent float64
}

// DefaultTable is the standard tier distribution. COMMON takes the 0.05
// remainder so the weights sum to exactly 100.
var DefaultTable = []Weight{
	{model.Common, 62.875},
	{model.Uncommon, 30},
	{model.Rare, 5},
	{model.Epic, 2},
	{model.Legendary, 0.1},
	{model.Mythic, 0.025},
}

const sumTolerance = 1e-9

// ValidateTable checks that the table names each tier once, in order from
// most to least common, with strictly decreasing weights summing to 100.
func ValidateTable(table []Weight) error {
	if len(table) != len(model.Rarities) {
		return fmt.Errorf("%w: want %d tiers, got %d", ErrInvalidTable, len(model.Rarities), len(table))
	}

	var sum float64
	for i, w := range table {
		if w.Rarity != model.Rarities[i] {
			return fmt.Errorf("%w: position %d holds %s", ErrInvalidTable, i, w.Rarity)
		}
		if w.Percent <= 0 {
			return fmt.Errorf("%w: %s has non-positive weight", ErrInvalidTable, w.Rarity)
		}
		if i > 0 && w.Percent >= table[i-1].Percent {
			return fmt.Errorf("%w: %s is not rarer than %s", ErrInvalidTable, w.Rarity, table[i-1].Rarity)
		}
		sum += w.Percent
	}

	if math.Abs(sum-100) > sumTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidTable, sum)
	}
	return nil
}

// Templates looks up species by tier.
type Templates interface {
	ListByRarity(ctx context.Context, rarity model.Rarity) ([]model.FishTemplate, error)
}

// Generator draws fish.
type Generator struct {
	templates Templates
	rnd       random.Source
	table     []Weight
}

// NewGenerator creates a Generator. A nil table selects DefaultTable.
func NewGenerator(templates Templates, rnd random.Source, table []Weight) (*Generator, error) {
	if table == nil {
		table = DefaultTable
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &Generator{templates: templates, rnd: rnd, table: table}, nil
}

// DrawRarity picks a tier by weighted sampling.
func (g *Generator) DrawRarity() model.Rarity {
	r := g.rnd.Float64() * 100
	for _, w := range g.table {
		if r < w.Percent {
			return w.Rarity
		}
		r -= w.Percent
	}
	// Float rounding can leave r a hair above the last bucket.
	return g.table[len(g.table)-1].Rarity
}

// DrawItem picks one template of the given tier uniformly and rolls its
// length. It never falls back to another tier.
func (g *Generator) DrawItem(ctx context.Context, tier model.Rarity) (model.Fish, error) {
	templates, err := g.templates.ListByRarity(ctx, tier)
	if err != nil {
		return model.Fish{}, err
	}
	if len(templates) == 0 {
		return model.Fish{}, fmt.Errorf("%w: %s", ErrEmptyCatalog, tier)
	}

	tmpl := templates[g.rnd.IntN(len(templates))]
	length := random.Between(g.rnd, tmpl.MinLength, tmpl.MaxLength)
	return model.Fish{
		Template: tmpl,
		Length:   length,
		Price:    Price(tmpl, length),
	}, nil
}

// Draw picks a tier, then a fish within it.
func (g *Generator) Draw(ctx context.Context) (model.Fish, error) {
	tier := g.DrawRarity()
	log.Debug().Str("rarity", tier.String()).Msg("Drawing fish")
	return g.DrawItem(ctx, tier)
}

// Price is base_price * length * const_value, rounded half to even.
func Price(tmpl model.FishTemplate, length int) int64 {
	return int64(math.RoundToEven(float64(tmpl.BasePrice) * float64(length) * tmpl.ConstValue))
}
