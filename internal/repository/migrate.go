package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "accounts table",
		sql: `
			CREATE TABLE IF NOT EXISTS accounts (
				id BIGINT PRIMARY KEY,
				username VARCHAR(255) NOT NULL DEFAULT '',
				balance BIGINT NOT NULL DEFAULT 0,
				last_claim_time BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_accounts_balance ON accounts(balance DESC);
		`,
	},
	{
		name: "fish_info table",
		sql: `
			CREATE TABLE IF NOT EXISTS fish_info (
				id SERIAL PRIMARY KEY,
				name VARCHAR(100) NOT NULL UNIQUE,
				rating SMALLINT NOT NULL CHECK (rating BETWEEN 0 AND 5),
				min_length INT NOT NULL CHECK (min_length > 0),
				max_length INT NOT NULL CHECK (max_length >= min_length),
				base_price INT NOT NULL,
				const_value DOUBLE PRECISION NOT NULL,
				description TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_fish_info_rating ON fish_info(rating);
		`,
	},
	{
		name: "bot_setting table",
		sql: `
			CREATE TABLE IF NOT EXISTS bot_setting (
				name VARCHAR(100) PRIMARY KEY,
				value TEXT NOT NULL
			);
		`,
	},
	{
		name: "ledger_entries table",
		sql: `
			CREATE TABLE IF NOT EXISTS ledger_entries (
				id BIGSERIAL PRIMARY KEY,
				account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				kind VARCHAR(50) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_ledger_account_time ON ledger_entries(account_id, created_at DESC);
		`,
	},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Msgf("Migration %d: %s created", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// DefaultSettings are the gameplay tunables seeded on first start.
var DefaultSettings = map[string]string{
	"attendance_cooldown":         "24",
	"attendance_bonus_money":      "10000",
	"attendance_bonus_money_prob": "1",
	"attendance_multiple":         "100",
	"attendance_random_money_min": "10",
	"attendance_random_money_max": "50",
	"fishing_random_min":          "3",
	"fishing_random_max":          "15",
	"fishing_timeout":             "3",
	"coinflip_total_loss_prob":    "10",
	"ticitactoe_game_timeout":     "300",
	"tictactoe_invite_timeout":    "60",
}

var defaultCatalog = []struct {
	name        string
	rating      int
	minLen      int
	maxLen      int
	basePrice   int
	constValue  float64
	description string
}{
	{"Crucian Carp", 0, 100, 350, 1, 0.8, "Found in every pond."},
	{"Minnow", 0, 30, 120, 2, 0.5, "Small and quick."},
	{"Largemouth Bass", 1, 250, 600, 2, 0.9, "A fighter on light tackle."},
	{"Rainbow Trout", 1, 200, 700, 2, 1.0, "Likes cold, clear water."},
	{"Catfish", 2, 400, 1300, 3, 1.2, "Feeds at the bottom after dark."},
	{"Salmon", 3, 500, 1200, 5, 1.5, "Swims upstream to spawn."},
	{"Sturgeon", 4, 1000, 3000, 8, 2.0, "An ancient, armoured giant."},
	{"Golden Koi", 5, 400, 900, 50, 5.0, "Said to bring fortune to whoever lands it."},
}

// SeedDefaults inserts default settings and a starter catalog.
// Existing rows are left untouched so operator edits survive restarts.
func SeedDefaults(ctx context.Context, pool *pgxpool.Pool) error {
	const settingQuery = `INSERT INTO bot_setting (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	for name, value := range DefaultSettings {
		if _, err := pool.Exec(ctx, settingQuery, name, value); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", name, err)
		}
	}

	const fishQuery = `
		INSERT INTO fish_info (name, rating, min_length, max_length, base_price, const_value, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO NOTHING
	`
	for _, f := range defaultCatalog {
		if _, err := pool.Exec(ctx, fishQuery, f.name, f.rating, f.minLen, f.maxLen, f.basePrice, f.constValue, f.description); err != nil {
			return fmt.Errorf("failed to seed fish %s: %w", f.name, err)
		}
	}

	log.Info().
		Int("settings", len(DefaultSettings)).
		Int("fish", len(defaultCatalog)).
		Msg("Default data seeded")
	return nil
}
