package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"economy-game-bot/internal/model"
)

// LedgerRepository appends and reads the balance movement audit log.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Create records one balance movement.
func (r *LedgerRepository) Create(ctx context.Context, accountID int64, amount int64, kind string, description *string) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO ledger_entries (account_id, amount, kind, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, account_id, amount, kind, description, created_at
	`

	var e model.LedgerEntry
	err := r.pool.QueryRow(ctx, query, accountID, amount, kind, description).Scan(
		&e.ID,
		&e.AccountID,
		&e.Amount,
		&e.Kind,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, storageError("create ledger entry", err)
	}

	return &e, nil
}

// ListByAccount returns the newest entries for an account first.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT id, account_id, amount, kind, description, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, storageError("list ledger entries", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.Amount,
			&e.Kind,
			&e.Description,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, storageError("scan ledger entry", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate ledger entries", err)
	}

	return entries, nil
}
