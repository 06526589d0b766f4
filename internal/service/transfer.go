package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
)

// TransferService moves currency between two accounts.
type TransferService struct {
	accounts *AccountService
}

// NewTransferService creates a new TransferService instance.
func NewTransferService(accounts *AccountService) *TransferService {
	return &TransferService{accounts: accounts}
}

// TransferResult reports the balances after a transfer.
type TransferResult struct {
	Reason           model.Reason
	SenderBalance    int64
	RecipientBalance int64
}

// Transfer validates, in order: sender registered, recipient registered,
// recipient differs from sender, amount positive, balance covers amount.
//
// The debit is conditional on the balance at execution time, so concurrent
// transfers from the same sender cannot overdraw it. The debit and the credit
// are separate statements; if the credit fails the debit is refunded. A crash
// between the two leaves the sender debited, which the ledger entries make
// visible.
func (s *TransferService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (TransferResult, error) {
	store := s.accounts.accounts

	balance, err := store.GetBalance(ctx, fromID)
	if err != nil {
		return senderFailure(err, "get sender balance")
	}

	ok, err := store.Exists(ctx, toID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !ok {
		return TransferResult{Reason: model.ReasonTargetNotRegistered, SenderBalance: balance}, nil
	}

	switch {
	case fromID == toID:
		return TransferResult{Reason: model.ReasonSelfTarget, SenderBalance: balance}, nil
	case amount <= 0:
		return TransferResult{Reason: model.ReasonInvalidAmount, SenderBalance: balance}, nil
	case balance < amount:
		return TransferResult{Reason: model.ReasonInsufficientBalance, SenderBalance: balance}, nil
	}

	senderBalance, err := store.Debit(ctx, fromID, amount)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientBalance) {
			return TransferResult{Reason: model.ReasonInsufficientBalance, SenderBalance: balance}, nil
		}
		return senderFailure(err, "debit sender")
	}

	recipientBalance, err := store.AddBalance(ctx, toID, amount)
	if err != nil {
		if _, refundErr := store.AddBalance(ctx, fromID, amount); refundErr != nil {
			log.Error().
				Err(refundErr).
				Int64("user_id", fromID).
				Int64("target_id", toID).
				Int64("amount", amount).
				Msg("Failed to refund sender after failed credit")
		}
		if errors.Is(err, model.ErrNotRegistered) {
			return TransferResult{Reason: model.ReasonTargetNotRegistered, SenderBalance: balance}, nil
		}
		return TransferResult{}, fmt.Errorf("failed to credit recipient: %w", err)
	}

	s.accounts.record(ctx, fromID, -amount, model.KindTransferOut, fmt.Sprintf("transfer to %d", toID))
	s.accounts.record(ctx, toID, amount, model.KindTransferIn, fmt.Sprintf("transfer from %d", fromID))

	log.Info().
		Int64("user_id", fromID).
		Int64("target_id", toID).
		Int64("amount", amount).
		Msg("Transfer completed")

	return TransferResult{SenderBalance: senderBalance, RecipientBalance: recipientBalance}, nil
}

func senderFailure(err error, op string) (TransferResult, error) {
	if errors.Is(err, model.ErrNotRegistered) {
		return TransferResult{Reason: model.ReasonNotRegistered}, nil
	}
	return TransferResult{}, fmt.Errorf("failed to %s: %w", op, err)
}
