// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrAccountNotFound = model.ErrNotRegistered
	ErrAccountExists   = model.ErrAlreadyExists
)

const accountColumns = `id, username, balance, last_claim_time, created_at, updated_at`

// AccountRepository handles account persistence. Every balance change is a
// relative update executed as a single statement.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func storageError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, model.ErrStorageUnavailable, err)
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Balance,
		&a.LastClaimTime,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists checks if an account with the given ID exists.
func (r *AccountRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, storageError("check account existence", err)
	}
	return exists, nil
}

// Create registers a new account with zero balance and no claim history.
// Returns ErrAccountExists if the ID is already registered.
func (r *AccountRepository) Create(ctx context.Context, id int64, username string) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (id, username, balance, last_claim_time, created_at, updated_at)
		VALUES ($1, $2, 0, 0, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountExists
		}
		return nil, storageError("create account", err)
	}
	return account, nil
}

// Delete removes an account and, through the foreign key, its ledger history.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM accounts WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return storageError("delete account", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// GetByID retrieves an account.
// Returns ErrAccountNotFound if the account does not exist.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, storageError("get account", err)
	}
	return account, nil
}

// GetBalance returns the current balance.
func (r *AccountRepository) GetBalance(ctx context.Context, id int64) (int64, error) {
	const query = `SELECT balance FROM accounts WHERE id = $1`
	return r.scalar(ctx, "get balance", query, id)
}

// AddBalance applies balance = balance + delta and returns the new balance.
// delta may be negative.
func (r *AccountRepository) AddBalance(ctx context.Context, id int64, delta int64) (int64, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`
	return r.scalar(ctx, "update balance", query, id, delta)
}

// Debit subtracts amount only if the balance covers it.
// Returns model.ErrInsufficientBalance when it does not.
func (r *AccountRepository) Debit(ctx context.Context, id int64, amount int64) (int64, error) {
	const query = `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance
	`
	balance, err := r.scalar(ctx, "debit balance", query, id, amount)
	if errors.Is(err, ErrAccountNotFound) {
		exists, existsErr := r.Exists(ctx, id)
		if existsErr != nil {
			return 0, existsErr
		}
		if exists {
			return 0, model.ErrInsufficientBalance
		}
	}
	return balance, err
}

// SetBalance sets an exact balance. Used by admin operations only.
func (r *AccountRepository) SetBalance(ctx context.Context, id int64, balance int64) (int64, error) {
	const query = `
		UPDATE accounts
		SET balance = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`
	return r.scalar(ctx, "set balance", query, id, balance)
}

// ClaimDecision inspects the locked claim timestamp and returns the award to
// apply. grant=false leaves the account untouched.
type ClaimDecision func(lastClaim int64) (award int64, grant bool)

// Claim reads the account under a row lock, asks decide whether to grant,
// then writes the balance and the claim timestamp in one transaction.
// Either both writes land or neither does.
func (r *AccountRepository) Claim(ctx context.Context, id int64, now int64, decide ClaimDecision) (balance int64, granted bool, err error) {
	const selectQuery = `SELECT balance, last_claim_time FROM accounts WHERE id = $1 FOR UPDATE`
	const updateQuery = `
		UPDATE accounts
		SET balance = balance + $2, last_claim_time = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING balance
	`

	err = db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var last int64
		if err := tx.QueryRow(ctx, selectQuery, id).Scan(&balance, &last); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return storageError("lock account for claim", err)
		}

		award, grant := decide(last)
		if !grant {
			return nil
		}

		if err := tx.QueryRow(ctx, updateQuery, id, award, now).Scan(&balance); err != nil {
			return storageError("apply claim", err)
		}
		granted = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return balance, granted, nil
}

// GetTop retrieves the top accounts by balance.
func (r *AccountRepository) GetTop(ctx context.Context, limit int) ([]*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY balance DESC, id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, storageError("get top accounts", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageError("scan account", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate accounts", err)
	}

	return accounts, nil
}

// UpdateUsername refreshes the stored display name.
func (r *AccountRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	const query = `
		UPDATE accounts
		SET username = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, username)
	if err != nil {
		return storageError("update username", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) scalar(ctx context.Context, op, query string, args ...any) (int64, error) {
	var v int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, storageError(op, err)
	}
	return v, nil
}
