package model

import "errors"

// Domain errors shared across packages.
var (
	ErrNotRegistered       = errors.New("account not registered")
	ErrAlreadyExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Reason names an expected, user-facing rejection. The zero value means success.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNotRegistered       Reason = "not_registered"
	ReasonTargetNotRegistered Reason = "target_not_registered"
	ReasonAlreadyExists       Reason = "already_exists"
	ReasonInvalidAmount       Reason = "invalid_amount"
	ReasonInsufficientBalance Reason = "insufficient_balance"
	ReasonTargetInsufficient  Reason = "target_insufficient_balance"
	ReasonSelfTarget          Reason = "self_target_not_allowed"
	ReasonAlreadyInSession    Reason = "already_in_session"
	ReasonTargetInSession     Reason = "target_in_session"
	ReasonCooldownNotElapsed  Reason = "cooldown_not_elapsed"
	ReasonNoSession           Reason = "no_session"
	ReasonNotParticipant      Reason = "not_participant"
	ReasonNotYourTurn         Reason = "not_your_turn"
	ReasonInvalidMove         Reason = "invalid_move"
)

// ReasonFor maps a domain error onto its rejection reason.
// ok is false for infrastructure errors, which must be propagated.
func ReasonFor(err error) (Reason, bool) {
	switch {
	case err == nil:
		return ReasonNone, true
	case errors.Is(err, ErrNotRegistered):
		return ReasonNotRegistered, true
	case errors.Is(err, ErrAlreadyExists):
		return ReasonAlreadyExists, true
	case errors.Is(err, ErrInsufficientBalance):
		return ReasonInsufficientBalance, true
	default:
		return ReasonNone, false
	}
}
