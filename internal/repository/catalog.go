package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"economy-game-bot/internal/model"
)

// FishRepository reads the fish catalog.
type FishRepository struct {
	pool *pgxpool.Pool
}

// NewFishRepository creates a new FishRepository instance.
func NewFishRepository(pool *pgxpool.Pool) *FishRepository {
	return &FishRepository{pool: pool}
}

// ListByRarity returns every template of the given tier.
func (r *FishRepository) ListByRarity(ctx context.Context, rarity model.Rarity) ([]model.FishTemplate, error) {
	const query = `
		SELECT id, name, rating, min_length, max_length, base_price, const_value, description
		FROM fish_info
		WHERE rating = $1
		ORDER BY id
	`
	return r.list(ctx, query, int(rarity))
}

// List returns the whole catalog ordered by tier.
func (r *FishRepository) List(ctx context.Context) ([]model.FishTemplate, error) {
	const query = `
		SELECT id, name, rating, min_length, max_length, base_price, const_value, description
		FROM fish_info
		ORDER BY rating, id
	`
	return r.list(ctx, query)
}

func (r *FishRepository) list(ctx context.Context, query string, args ...any) ([]model.FishTemplate, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("query fish catalog", err)
	}
	defer rows.Close()

	var templates []model.FishTemplate
	for rows.Next() {
		var (
			t      model.FishTemplate
			rating int16
		)
		err := rows.Scan(
			&t.ID,
			&t.Name,
			&rating,
			&t.MinLength,
			&t.MaxLength,
			&t.BasePrice,
			&t.ConstValue,
			&t.Description,
		)
		if err != nil {
			return nil, storageError("scan fish template", err)
		}
		t.Rarity = model.Rarity(rating)
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate fish catalog", err)
	}

	return templates, nil
}
