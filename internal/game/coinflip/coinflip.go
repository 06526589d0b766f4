// Package coinflip implements the coin flip wager.
package coinflip

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/setting"
)

// Errors returned by the parsers.
var (
	ErrInvalidFace  = errors.New("face must be heads or tails")
	ErrInvalidStake = errors.New("stake must be a whole number, all, or a percentage from 1% to 100%")
)

// Face is one side of the coin.
type Face int

const (
	Heads Face = iota
	Tails
)

func (f Face) String() string {
	if f == Heads {
		return "heads"
	}
	return "tails"
}

// ParseFace accepts heads/h or tails/t in any case.
func ParseFace(s string) (Face, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heads", "head", "h":
		return Heads, nil
	case "tails", "tail", "t":
		return Tails, nil
	default:
		return 0, ErrInvalidFace
	}
}

// ParseStake resolves a stake argument against the balance. It does not
// check the result against the balance; that belongs to Flip.
//
//	"250"          -> 250
//	"all", "allin" -> balance
//	"25%"          -> balance * 25 / 100
func ParseStake(arg string, balance int64) (int64, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))

	switch {
	case arg == "all" || arg == "allin":
		return balance, nil

	case strings.HasSuffix(arg, "%"):
		percent, err := parseDigits(strings.TrimSuffix(arg, "%"))
		if err != nil || percent < 1 || percent > 100 {
			return 0, ErrInvalidStake
		}
		return balance * percent / 100, nil

	default:
		n, err := parseDigits(arg)
		if err != nil {
			return 0, ErrInvalidStake
		}
		return n, nil
	}
}

// parseDigits accepts only ASCII digits, so signs and spaces are rejected.
func parseDigits(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidStake
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidStake
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// Wallet is the slice of the Account Ledger a flip needs.
type Wallet interface {
	Balance(ctx context.Context, id int64) (int64, error)
	Apply(ctx context.Context, id int64, delta int64, kind string, description string) (int64, error)
}

// Result describes one flip.
type Result struct {
	Reason    model.Reason
	Stake     int64
	Guess     Face
	Outcome   Face
	Won       bool
	TotalLoss bool
	Delta     int64
	Balance   int64
}

// Engine runs coin flips.
type Engine struct {
	wallet   Wallet
	settings setting.Provider
	rnd      random.Source
	metrics  *metrics.Collector
}

// New creates a coin flip engine.
func New(wallet Wallet, settings setting.Provider, rnd random.Source, m *metrics.Collector) *Engine {
	return &Engine{wallet: wallet, settings: settings, rnd: rnd, metrics: m}
}

// Name returns the game's display name.
func (e *Engine) Name() string { return "Coin Flip" }

// Command returns the command that starts the game.
func (e *Engine) Command() string { return "flip" }

// Description returns a brief description of the game.
func (e *Engine) Description() string {
	return "Call heads or tails. Win half your stake, or lose half (sometimes all of it)."
}

// Flip resolves the stake against the current balance, validates it and
// settles one fair flip.
func (e *Engine) Flip(ctx context.Context, userID int64, guess Face, stakeArg string) (Result, error) {
	res := Result{Guess: guess}

	balance, err := e.wallet.Balance(ctx, userID)
	if err != nil {
		return failure(res, err, "read balance")
	}
	res.Balance = balance

	stake, err := ParseStake(stakeArg, balance)
	if err != nil {
		res.Reason = model.ReasonInvalidAmount
		return res, nil
	}
	res.Stake = stake

	switch {
	case stake <= 0:
		res.Reason = model.ReasonInvalidAmount
		return res, nil
	case stake > balance:
		res.Reason = model.ReasonInsufficientBalance
		return res, nil
	}

	res.Outcome = Face(e.rnd.IntN(2))
	res.Won, res.TotalLoss, res.Delta = Settle(stake, res.Outcome == guess, e.rnd, e.settings.Current().CoinflipTotalLossProb())

	res.Balance, err = e.wallet.Apply(ctx, userID, res.Delta, model.KindCoinflip, fmt.Sprintf("coin flip, stake %d", stake))
	if err != nil {
		return failure(res, err, "settle flip")
	}

	outcome := "lost"
	if res.Won {
		outcome = "won"
	}
	e.metrics.RecordOutcome("coinflip", outcome)
	log.Debug().
		Int64("user_id", userID).
		Int64("amount", res.Delta).
		Str("state", outcome).
		Msg("Coin flip settled")

	return res, nil
}

// Settle computes the balance change for a resolved flip. A win pays half
// the stake (at least 1). A loss costs half the stake, or the whole stake
// when it is 1 or with probability totalLossProb.
func Settle(stake int64, won bool, rnd random.Source, totalLossProb float64) (win, totalLoss bool, delta int64) {
	if won {
		return true, false, max(1, stake/2)
	}
	if stake == 1 || random.Chance(rnd, totalLossProb) {
		return false, true, -stake
	}
	return false, false, -(stake / 2)
}

func failure(res Result, err error, op string) (Result, error) {
	if reason, ok := model.ReasonFor(err); ok {
		res.Reason = reason
		return res, nil
	}
	return Result{}, fmt.Errorf("failed to %s: %w", op, err)
}
