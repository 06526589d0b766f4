package tictactoe

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/session"
	"economy-game-bot/internal/setting"
)

// Wallet is the slice of the Account Ledger matches need.
type Wallet interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Balance(ctx context.Context, id int64) (int64, error)
	Apply(ctx context.Context, id int64, delta int64, kind string, description string) (int64, error)
}

// InviteHooks are called from the timer goroutine.
type InviteHooks struct {
	OnExpired func(Invite)
}

// MatchHooks are called from the timer goroutine.
type MatchHooks struct {
	OnTimeout func(Match)
}

type pair struct{ lo, hi int64 }

func pairOf(a, b int64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

type inviteSession struct {
	invite Invite
	timer  session.TimerSlot
	hooks  InviteHooks
}

type matchSession struct {
	match Match
	timer session.TimerSlot
	hooks MatchHooks
}

// Engine runs invites and matches. Both players of an active match hold a
// slot in the inMatch registry from acceptance until the match ends.
type Engine struct {
	wallet   Wallet
	settings setting.Provider
	sched    session.Scheduler
	rnd      random.Source
	inMatch  *session.Registry
	metrics  *metrics.Collector

	mu       sync.Mutex
	invites  map[pair]*inviteSession
	matches  map[pair]*matchSession
	byPlayer map[int64]pair
	lastID   uint64
}

// NewEngine creates a tic-tac-toe engine.
func NewEngine(
	wallet Wallet,
	settings setting.Provider,
	sched session.Scheduler,
	rnd random.Source,
	inMatch *session.Registry,
	m *metrics.Collector,
) *Engine {
	return &Engine{
		wallet:   wallet,
		settings: settings,
		sched:    sched,
		rnd:      rnd,
		inMatch:  inMatch,
		metrics:  m,
		invites:  make(map[pair]*inviteSession),
		matches:  make(map[pair]*matchSession),
		byPlayer: make(map[int64]pair),
	}
}

// Name returns the game's display name.
func (e *Engine) Name() string { return "Tic-Tac-Toe" }

// Command returns the command that starts the game.
func (e *Engine) Command() string { return "ttt" }

// Description returns a brief description of the game.
func (e *Engine) Description() string {
	return "Challenge another player to tic-tac-toe, optionally for a bet. Winner takes the bet."
}

// InviteResult describes an invite attempt.
type InviteResult struct {
	Reason model.Reason
	Invite Invite
}

// Invite challenges invitee. Nobody is reserved until the invite is accepted.
func (e *Engine) Invite(ctx context.Context, inviter, invitee, bet int64, hooks InviteHooks) (InviteResult, error) {
	reason, err := e.checkPlayers(ctx, inviter, invitee, bet)
	if err != nil || reason != model.ReasonNone {
		return InviteResult{Reason: reason}, err
	}

	inv := Invite{Inviter: inviter, Invitee: invitee, Bet: bet, Phase: Invited}
	key := pairOf(inviter, invitee)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.invites[key]; ok {
		return InviteResult{Reason: model.ReasonAlreadyInSession}, nil
	}
	sess := &inviteSession{invite: inv, hooks: hooks}
	e.invites[key] = sess

	if d, ok := e.settings.Current().TicTacToeInviteTimeout(); ok {
		sess.timer.Schedule(e.sched, d, func(tok session.Token) {
			e.expireInvite(key, tok)
		})
	}

	log.Debug().
		Int64("user_id", inviter).
		Int64("target_id", invitee).
		Int64("amount", bet).
		Msg("Tic-tac-toe invite sent")
	return InviteResult{Invite: inv}, nil
}

// RespondResult describes an answer to an invite.
type RespondResult struct {
	Reason model.Reason
	Invite Invite
	Match  *Match
}

// Respond answers the invite between inviter and invitee on behalf of by.
// On acceptance both players are reserved and the match starts.
func (e *Engine) Respond(ctx context.Context, inviter, invitee, by int64, accept bool, hooks MatchHooks) (RespondResult, error) {
	key := pairOf(inviter, invitee)

	e.mu.Lock()
	sess, ok := e.invites[key]
	if !ok || sess.invite.Inviter != inviter {
		e.mu.Unlock()
		return RespondResult{Reason: model.ReasonNoSession}, nil
	}

	var ev InviteEvent = Decline{By: by}
	if accept {
		ev = Accept{By: by}
	}
	next, applied := sess.invite.Next(ev)
	if !applied {
		e.mu.Unlock()
		return RespondResult{Reason: model.ReasonNotParticipant, Invite: sess.invite}, nil
	}
	sess.timer.Cancel()
	delete(e.invites, key)
	e.mu.Unlock()

	res := RespondResult{Invite: next}
	if next.Phase == Declined {
		return res, nil
	}

	// Time has passed since the invite; check both players again.
	reason, err := e.checkPlayers(ctx, inviter, invitee, next.Bet)
	if err != nil || reason != model.ReasonNone {
		res.Reason = reason
		return res, err
	}
	if !e.inMatch.TryAddAll(inviter, invitee) {
		res.Reason = e.sessionReason(inviter)
		return res, nil
	}

	xPlayer, oPlayer := inviter, invitee
	if e.rnd.IntN(2) == 1 {
		xPlayer, oPlayer = oPlayer, xPlayer
	}
	ms := &matchSession{match: NewMatch(xPlayer, oPlayer, next.Bet), hooks: hooks}

	e.mu.Lock()
	e.lastID++
	ms.match.ID = e.lastID
	e.matches[key] = ms
	e.byPlayer[inviter] = key
	e.byPlayer[invitee] = key
	// One deadline for the whole match. Moves do not extend it.
	if d, ok := e.settings.Current().TicTacToeGameTimeout(); ok {
		ms.timer.Schedule(e.sched, d, func(tok session.Token) {
			e.timeoutMatch(key, tok)
		})
	}
	m := ms.match
	e.mu.Unlock()

	log.Info().
		Int64("user_id", inviter).
		Int64("target_id", invitee).
		Int64("amount", next.Bet).
		Uint64("match_id", m.ID).
		Msg("Tic-tac-toe match started")

	res.Match = &m
	return res, nil
}

// MoveResult describes a move or forfeit.
type MoveResult struct {
	Reason model.Reason
	Match  Match
}

// Move places player's mark at (x, y) in match matchID. Out-of-turn moves,
// moves onto an occupied cell and moves for a match player is no longer in
// change nothing.
func (e *Engine) Move(ctx context.Context, player int64, matchID uint64, x, y int) (MoveResult, error) {
	if matchID == 0 {
		return MoveResult{Reason: model.ReasonNoSession}, nil
	}
	return e.apply(ctx, player, matchID, Move{By: player, X: x, Y: y})
}

// Forfeit concedes player's current match to the opponent.
func (e *Engine) Forfeit(ctx context.Context, player int64) (MoveResult, error) {
	return e.apply(ctx, player, 0, Forfeit{By: player})
}

// Current returns player's active match.
func (e *Engine) Current(player int64) (Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, ok := e.byPlayer[player]
	if !ok {
		return Match{}, false
	}
	return e.matches[key].match, true
}

// Stop ends every pending invite and match without settling bets.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, sess := range e.invites {
		sess.timer.Cancel()
		delete(e.invites, key)
	}
	for key, ms := range e.matches {
		ms.timer.Cancel()
		e.endLocked(key, ms)
	}
}

// apply runs ev against player's match. A non-zero matchID must name it.
func (e *Engine) apply(ctx context.Context, player int64, matchID uint64, ev MatchEvent) (MoveResult, error) {
	e.mu.Lock()
	key, ok := e.byPlayer[player]
	if !ok {
		e.mu.Unlock()
		return MoveResult{Reason: model.ReasonNoSession}, nil
	}
	ms := e.matches[key]
	if matchID != 0 && ms.match.ID != matchID {
		e.mu.Unlock()
		return MoveResult{Reason: model.ReasonNoSession}, nil
	}
	next, applied := ms.match.Next(ev)
	if !applied {
		m := ms.match
		e.mu.Unlock()
		return MoveResult{Reason: rejectReason(m, ev), Match: m}, nil
	}
	ms.match = next
	if next.Phase.Terminal() {
		ms.timer.Cancel()
		e.endLocked(key, ms)
	}
	e.mu.Unlock()

	if !next.Phase.Terminal() {
		return MoveResult{Match: next}, nil
	}
	return MoveResult{Match: next}, e.settle(ctx, next)
}

func rejectReason(m Match, ev MatchEvent) model.Reason {
	mv, ok := ev.(Move)
	if !ok {
		return model.ReasonNotParticipant
	}
	if m.MarkOf(mv.By) != m.Turn {
		return model.ReasonNotYourTurn
	}
	return model.ReasonInvalidMove
}

// endLocked unregisters a finished match and frees both players.
func (e *Engine) endLocked(key pair, ms *matchSession) {
	delete(e.matches, key)
	delete(e.byPlayer, ms.match.XPlayer)
	delete(e.byPlayer, ms.match.OPlayer)
	e.inMatch.Remove(ms.match.XPlayer, ms.match.OPlayer)
}

// settle moves the bet from loser to winner. Ties and timeouts move nothing.
func (e *Engine) settle(ctx context.Context, m Match) error {
	e.metrics.RecordOutcome("tictactoe", m.Phase.String())
	if m.Phase != Won || m.Bet == 0 {
		return nil
	}

	winner, loser := m.WinnerID(), m.LoserID()
	if _, err := e.wallet.Apply(ctx, loser, -m.Bet, model.KindTicTacToe, fmt.Sprintf("lost tic-tac-toe to %d", winner)); err != nil {
		return fmt.Errorf("failed to debit loser: %w", err)
	}
	if _, err := e.wallet.Apply(ctx, winner, m.Bet, model.KindTicTacToe, fmt.Sprintf("won tic-tac-toe against %d", loser)); err != nil {
		if _, refundErr := e.wallet.Apply(ctx, loser, m.Bet, model.KindTicTacToe, "refund of unsettled tic-tac-toe bet"); refundErr != nil {
			log.Error().
				Err(refundErr).
				Int64("user_id", loser).
				Int64("target_id", winner).
				Int64("amount", m.Bet).
				Msg("Failed to refund loser after failed credit")
		}
		return fmt.Errorf("failed to credit winner: %w", err)
	}

	log.Info().
		Int64("user_id", winner).
		Int64("target_id", loser).
		Int64("amount", m.Bet).
		Bool("forfeit", m.Forfeited).
		Msg("Tic-tac-toe bet settled")
	return nil
}

// checkPlayers validates a pairing. It runs at invite and again at accept.
func (e *Engine) checkPlayers(ctx context.Context, inviter, invitee, bet int64) (model.Reason, error) {
	ok, err := e.wallet.Exists(ctx, inviter)
	if err != nil {
		return model.ReasonNone, fmt.Errorf("failed to check inviter: %w", err)
	}
	if !ok {
		return model.ReasonNotRegistered, nil
	}
	if e.inMatch.Contains(inviter) {
		return model.ReasonAlreadyInSession, nil
	}
	if inviter == invitee {
		return model.ReasonSelfTarget, nil
	}
	if e.inMatch.Contains(invitee) {
		return model.ReasonTargetInSession, nil
	}
	if bet < 0 {
		return model.ReasonInvalidAmount, nil
	}

	balance, err := e.wallet.Balance(ctx, invitee)
	switch reason, known := model.ReasonFor(err); {
	case !known:
		return model.ReasonNone, fmt.Errorf("failed to check invitee: %w", err)
	case reason == model.ReasonNotRegistered:
		return model.ReasonTargetNotRegistered, nil
	case reason != model.ReasonNone:
		return reason, nil
	case balance < bet:
		return model.ReasonTargetInsufficient, nil
	}

	balance, err = e.wallet.Balance(ctx, inviter)
	if err != nil {
		if reason, ok := model.ReasonFor(err); ok {
			return reason, nil
		}
		return model.ReasonNone, fmt.Errorf("failed to check inviter balance: %w", err)
	}
	if balance < bet {
		return model.ReasonInsufficientBalance, nil
	}
	return model.ReasonNone, nil
}

func (e *Engine) sessionReason(inviter int64) model.Reason {
	if e.inMatch.Contains(inviter) {
		return model.ReasonAlreadyInSession
	}
	return model.ReasonTargetInSession
}

func (e *Engine) expireInvite(key pair, tok session.Token) {
	e.mu.Lock()
	sess, ok := e.invites[key]
	if !ok || !sess.timer.Fired(tok) {
		e.mu.Unlock()
		return
	}
	next, _ := sess.invite.Next(Expire{})
	delete(e.invites, key)
	hooks := sess.hooks
	e.mu.Unlock()

	e.metrics.RecordOutcome("tictactoe_invite", next.Phase.String())
	if hooks.OnExpired != nil {
		safely(func() { hooks.OnExpired(next) })
	}
}

func (e *Engine) timeoutMatch(key pair, tok session.Token) {
	e.mu.Lock()
	ms, ok := e.matches[key]
	if !ok || !ms.timer.Fired(tok) {
		e.mu.Unlock()
		return
	}
	next, applied := ms.match.Next(Timeout{})
	if !applied {
		e.mu.Unlock()
		return
	}
	ms.match = next
	e.endLocked(key, ms)
	hooks := ms.hooks
	e.mu.Unlock()

	e.metrics.RecordOutcome("tictactoe", next.Phase.String())
	log.Debug().Int64("user_id", next.XPlayer).Int64("target_id", next.OPlayer).Msg("Tic-tac-toe match timed out")
	if hooks.OnTimeout != nil {
		safely(func() { hooks.OnTimeout(next) })
	}
}

func safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Tic-tac-toe hook panicked")
		}
	}()
	fn()
}
