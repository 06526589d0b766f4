// Package service implements the Account Ledger: registration, balance
// movements, periodic claims and transfers.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/repository"
	"economy-game-bot/internal/setting"
)

const (
	// DefaultTopLimit is the ranking size used when none is given.
	DefaultTopLimit = 10
	// DefaultStatementLimit is the number of movements a statement shows.
	DefaultStatementLimit = 10
)

// Accounts is the account storage. *repository.AccountRepository satisfies it.
type Accounts interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, id int64, username string) (*model.Account, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetBalance(ctx context.Context, id int64) (int64, error)
	AddBalance(ctx context.Context, id int64, delta int64) (int64, error)
	Debit(ctx context.Context, id int64, amount int64) (int64, error)
	SetBalance(ctx context.Context, id int64, balance int64) (int64, error)
	Claim(ctx context.Context, id int64, now int64, decide repository.ClaimDecision) (int64, bool, error)
	GetTop(ctx context.Context, limit int) ([]*model.Account, error)
	UpdateUsername(ctx context.Context, id int64, username string) error
}

// Journal records balance movements. *repository.LedgerRepository satisfies it.
type Journal interface {
	Create(ctx context.Context, accountID int64, amount int64, kind string, description *string) (*model.LedgerEntry, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error)
}

// AccountService is the only component that applies balance changes.
type AccountService struct {
	accounts Accounts
	journal  Journal
	settings setting.Provider
	rnd      random.Source
	metrics  *metrics.Collector
	now      func() time.Time
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(
	accounts Accounts,
	journal Journal,
	settings setting.Provider,
	rnd random.Source,
	m *metrics.Collector,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		journal:  journal,
		settings: settings,
		rnd:      rnd,
		metrics:  m,
		now:      time.Now,
	}
}

// BalanceResult carries a balance or the reason it could not be produced.
type BalanceResult struct {
	Reason  model.Reason
	Balance int64
}

// Register creates an account with zero balance.
func (s *AccountService) Register(ctx context.Context, id int64, username string) (model.Reason, error) {
	_, err := s.accounts.Create(ctx, id, username)
	if reason, ok := model.ReasonFor(err); ok {
		if reason == model.ReasonNone {
			log.Info().Int64("user_id", id).Msg("Account registered")
		}
		return reason, nil
	}
	return model.ReasonNone, fmt.Errorf("failed to register account: %w", err)
}

// Deregister removes an account and its ledger history.
func (s *AccountService) Deregister(ctx context.Context, id int64) (model.Reason, error) {
	err := s.accounts.Delete(ctx, id)
	if reason, ok := model.ReasonFor(err); ok {
		if reason == model.ReasonNone {
			log.Info().Int64("user_id", id).Msg("Account deregistered")
		}
		return reason, nil
	}
	return model.ReasonNone, fmt.Errorf("failed to deregister account: %w", err)
}

// Exists reports whether id is registered.
func (s *AccountService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.accounts.Exists(ctx, id)
}

// Balance returns the balance. It returns model.ErrNotRegistered for
// unknown accounts, which engines translate with model.ReasonFor.
func (s *AccountService) Balance(ctx context.Context, id int64) (int64, error) {
	return s.accounts.GetBalance(ctx, id)
}

// AssetResult is an account summary.
type AssetResult struct {
	Reason  model.Reason
	Account *model.Account
}

// Asset returns the account record of id.
func (s *AccountService) Asset(ctx context.Context, id int64) (AssetResult, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if reason, ok := model.ReasonFor(err); ok {
		return AssetResult{Reason: reason, Account: account}, nil
	}
	return AssetResult{}, fmt.Errorf("failed to get asset: %w", err)
}

// Top returns the richest accounts. A non-positive limit selects
// DefaultTopLimit.
func (s *AccountService) Top(ctx context.Context, limit int) ([]*model.Account, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return s.accounts.GetTop(ctx, limit)
}

// StatementResult lists recent balance movements, newest first.
type StatementResult struct {
	Reason  model.Reason
	Entries []*model.LedgerEntry
}

// Statement returns the latest ledger entries of id. A non-positive limit
// selects DefaultStatementLimit.
func (s *AccountService) Statement(ctx context.Context, id int64, limit int) (StatementResult, error) {
	exists, err := s.accounts.Exists(ctx, id)
	if err != nil {
		return StatementResult{}, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return StatementResult{Reason: model.ReasonNotRegistered}, nil
	}
	if s.journal == nil {
		return StatementResult{}, nil
	}
	if limit <= 0 {
		limit = DefaultStatementLimit
	}
	entries, err := s.journal.ListByAccount(ctx, id, limit)
	if err != nil {
		return StatementResult{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return StatementResult{Entries: entries}, nil
}

// TouchUsername stores a changed display name. Failures are logged only.
func (s *AccountService) TouchUsername(ctx context.Context, id int64, username string) {
	if username == "" {
		return
	}
	if err := s.accounts.UpdateUsername(ctx, id, username); err != nil {
		log.Debug().Err(err).Int64("user_id", id).Msg("Failed to update username")
	}
}

// Apply adds delta (which may be negative) to the balance and journals it.
// It returns model.ErrNotRegistered for unknown accounts.
func (s *AccountService) Apply(ctx context.Context, id int64, delta int64, kind string, description string) (int64, error) {
	balance, err := s.accounts.AddBalance(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	s.record(ctx, id, delta, kind, description)
	return balance, nil
}

// AdminAdd adds delta to any account.
func (s *AccountService) AdminAdd(ctx context.Context, id int64, delta int64) (BalanceResult, error) {
	balance, err := s.Apply(ctx, id, delta, model.KindAdminAdd, "admin adjustment")
	if reason, ok := model.ReasonFor(err); ok {
		return BalanceResult{Reason: reason, Balance: balance}, nil
	}
	return BalanceResult{}, fmt.Errorf("failed to add balance: %w", err)
}

// AdminSet overwrites the balance of any account. The ledger records the
// new absolute value.
func (s *AccountService) AdminSet(ctx context.Context, id int64, balance int64) (BalanceResult, error) {
	got, err := s.accounts.SetBalance(ctx, id, balance)
	if reason, ok := model.ReasonFor(err); ok {
		if reason == model.ReasonNone {
			s.record(ctx, id, balance, model.KindAdminSet, "admin set")
		}
		return BalanceResult{Reason: reason, Balance: got}, nil
	}
	return BalanceResult{}, fmt.Errorf("failed to set balance: %w", err)
}

// ClaimResult describes an attempted periodic claim.
type ClaimResult struct {
	Reason    model.Reason
	Award     int64
	Bonus     bool
	Balance   int64
	Remaining time.Duration
}

// Claim grants the periodic reward when the cooldown has elapsed. The
// eligibility check, the credit and the timestamp update commit together,
// so a claim is never granted twice or granted and then lost.
func (s *AccountService) Claim(ctx context.Context, id int64) (ClaimResult, error) {
	snap := s.settings.Current()
	now := s.now().Unix()

	var res ClaimResult
	decide := func(last int64) (int64, bool) {
		eligibleAt := last + int64(snap.AttendanceCooldown()/time.Second)
		if now < eligibleAt {
			res.Reason = model.ReasonCooldownNotElapsed
			res.Remaining = time.Duration(eligibleAt-now) * time.Second
			return 0, false
		}
		res.Award, res.Bonus = drawClaimAward(snap, s.rnd)
		return res.Award, true
	}

	balance, granted, err := s.accounts.Claim(ctx, id, now, decide)
	reason, ok := model.ReasonFor(err)
	if !ok {
		return ClaimResult{}, fmt.Errorf("failed to claim: %w", err)
	}
	if reason != model.ReasonNone {
		return ClaimResult{Reason: reason}, nil
	}

	res.Balance = balance
	if granted {
		s.record(ctx, id, res.Award, model.KindClaim, "periodic claim")
		log.Info().
			Int64("user_id", id).
			Int64("amount", res.Award).
			Bool("bonus", res.Bonus).
			Msg("Claim granted")
	}
	return res, nil
}

// drawClaimAward returns the fixed bonus with the configured probability,
// otherwise a random draw times the multiplier.
func drawClaimAward(snap *setting.Snapshot, rnd random.Source) (award int64, bonus bool) {
	if random.Chance(rnd, snap.AttendanceBonusProb()) {
		return snap.AttendanceBonusMoney(), true
	}
	lo, hi := snap.AttendanceRandomMoney()
	return int64(random.Between(rnd, int(lo), int(hi))) * snap.AttendanceMultiple(), false
}

func (s *AccountService) record(ctx context.Context, id int64, amount int64, kind, description string) {
	s.metrics.RecordMovement(kind, amount)
	if s.journal == nil {
		return
	}
	var desc *string
	if description != "" {
		desc = &description
	}
	if _, err := s.journal.Create(ctx, id, amount, kind, desc); err != nil {
		log.Warn().Err(err).Int64("user_id", id).Str("kind", kind).Msg("Failed to write ledger entry")
	}
}
