package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingRepository reads and writes the bot_setting table.
type SettingRepository struct {
	pool *pgxpool.Pool
}

// NewSettingRepository creates a new SettingRepository instance.
func NewSettingRepository(pool *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{pool: pool}
}

// All returns every stored setting as raw text.
func (r *SettingRepository) All(ctx context.Context) (map[string]string, error) {
	const query = `SELECT name, value FROM bot_setting`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, storageError("query settings", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, storageError("scan setting", err)
		}
		settings[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate settings", err)
	}

	return settings, nil
}

// Set upserts one setting.
func (r *SettingRepository) Set(ctx context.Context, name, value string) error {
	const query = `
		INSERT INTO bot_setting (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.pool.Exec(ctx, query, name, value); err != nil {
		return storageError("set setting", err)
	}
	return nil
}

// Delete removes one setting.
func (r *SettingRepository) Delete(ctx context.Context, name string) error {
	const query = `DELETE FROM bot_setting WHERE name = $1`
	if _, err := r.pool.Exec(ctx, query, name); err != nil {
		return storageError("delete setting", err)
	}
	return nil
}
