package fishing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/session"
	"economy-game-bot/internal/setting"
)

// Wallet is the slice of the Account Ledger fishing needs.
type Wallet interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Apply(ctx context.Context, id int64, delta int64, kind string, description string) (int64, error)
}

// Generator draws a catch.
type Generator interface {
	Draw(ctx context.Context) (model.Fish, error)
}

// Hooks are called from the timer goroutine when a session changes phase
// without player input. Either may be nil. OnBite receives the session ID
// the catch button must carry.
type Hooks struct {
	OnBite   func(session uint64)
	OnMissed func()
}

type fishingSession struct {
	id    uint64
	state State
	timer session.TimerSlot
	hooks Hooks
}

// Engine runs every fishing session of the process.
type Engine struct {
	wallet   Wallet
	gen      Generator
	settings setting.Provider
	sched    session.Scheduler
	rnd      random.Source
	active   *session.Registry
	metrics  *metrics.Collector

	mu       sync.Mutex
	sessions map[int64]*fishingSession
	lastID   uint64
}

// NewEngine creates a fishing engine. active is the "currently fishing"
// registry; a player in it cannot start another session.
func NewEngine(
	wallet Wallet,
	gen Generator,
	settings setting.Provider,
	sched session.Scheduler,
	rnd random.Source,
	active *session.Registry,
	m *metrics.Collector,
) *Engine {
	return &Engine{
		wallet:   wallet,
		gen:      gen,
		settings: settings,
		sched:    sched,
		rnd:      rnd,
		active:   active,
		metrics:  m,
		sessions: make(map[int64]*fishingSession),
	}
}

// Name returns the game's display name.
func (e *Engine) Name() string { return "Fishing" }

// Command returns the command that starts the game.
func (e *Engine) Command() string { return "fish" }

// Description returns a brief description of the game.
func (e *Engine) Description() string {
	return "Cast a line and pull it in when something bites. Too early and it swims off."
}

// StartResult describes a start attempt.
type StartResult struct {
	Reason model.Reason
	// Session identifies this cast. Presses must carry it back.
	Session uint64
}

// Start casts a line for userID.
func (e *Engine) Start(ctx context.Context, userID int64, hooks Hooks) (StartResult, error) {
	ok, err := e.wallet.Exists(ctx, userID)
	if err != nil {
		return StartResult{}, fmt.Errorf("failed to check account: %w", err)
	}
	if !ok {
		return StartResult{Reason: model.ReasonNotRegistered}, nil
	}

	if !e.active.TryAdd(userID) {
		return StartResult{Reason: model.ReasonAlreadyInSession}, nil
	}

	e.mu.Lock()
	e.lastID++
	sess := &fishingSession{id: e.lastID, state: State{Phase: Idle, Player: userID}, hooks: hooks}
	e.sessions[userID] = sess
	e.step(sess, Start{})
	e.mu.Unlock()

	log.Debug().Int64("user_id", userID).Uint64("session_id", sess.id).Msg("Fishing session started")
	return StartResult{Session: sess.id}, nil
}

// PressResult describes a catch button press.
type PressResult struct {
	Reason  model.Reason
	Phase   Phase
	Fish    *model.Fish
	Balance int64
}

// Press handles the catch button of owner's session sessionID pressed by
// presser. Presses by anyone else, or for an earlier session of owner, are
// ignored.
func (e *Engine) Press(ctx context.Context, owner int64, sessionID uint64, presser int64) (PressResult, error) {
	e.mu.Lock()
	sess, ok := e.sessions[owner]
	if !ok || sess.id != sessionID {
		e.mu.Unlock()
		return PressResult{Reason: model.ReasonNoSession}, nil
	}
	if presser != owner {
		phase := sess.state.Phase
		e.mu.Unlock()
		return PressResult{Reason: model.ReasonNotParticipant, Phase: phase}, nil
	}
	next, effects := e.step(sess, Press{UserID: presser})
	e.mu.Unlock()

	res := PressResult{Phase: next.Phase}
	if !slices.Contains(effects, Release) {
		return res, nil
	}
	// The slot is held until the catch is credited so the player cannot
	// start over mid-credit. The deferred release covers every error path.
	defer e.active.Remove(owner)

	if slices.Contains(effects, Catch) {
		fish, err := e.gen.Draw(ctx)
		if err != nil {
			return res, fmt.Errorf("failed to draw fish: %w", err)
		}
		balance, err := e.wallet.Apply(ctx, owner, fish.Price, model.KindFishing, fish.Template.Name)
		if err != nil {
			return res, fmt.Errorf("failed to credit catch: %w", err)
		}
		res.Fish = &fish
		res.Balance = balance

		log.Info().
			Int64("user_id", owner).
			Str("fish", fish.Template.Name).
			Str("rarity", fish.Template.Rarity.String()).
			Int64("amount", fish.Price).
			Msg("Fish caught")
	}

	e.metrics.RecordOutcome("fishing", next.Phase.String())
	return res, nil
}

// Cancel interrupts userID's session. It reports whether one was running.
func (e *Engine) Cancel(userID int64) bool {
	e.mu.Lock()
	sess, ok := e.sessions[userID]
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.step(sess, Cancel{})
	e.mu.Unlock()

	e.active.Remove(userID)
	return true
}

// Stop interrupts every running session.
func (e *Engine) Stop() {
	e.mu.Lock()
	players := make([]int64, 0, len(e.sessions))
	for id := range e.sessions {
		players = append(players, id)
	}
	e.mu.Unlock()

	for _, id := range players {
		e.Cancel(id)
	}
}

// Phase returns the current phase of userID's session, Idle if none.
func (e *Engine) Phase(userID int64) Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok := e.sessions[userID]; ok {
		return sess.state.Phase
	}
	return Idle
}

// step applies ev and its timer effects. e.mu must be held. A released
// session is dropped from the map; freeing its registry slot is left to the
// caller.
func (e *Engine) step(sess *fishingSession, ev Event) (State, []Effect) {
	next, effects := Transition(sess.state, ev)
	sess.state = next
	player := next.Player

	for _, eff := range effects {
		switch eff {
		case ScheduleBite:
			sess.timer.Schedule(e.sched, e.biteDelay(), func(tok session.Token) {
				e.fire(player, tok, Bite{})
			})
		case ScheduleTimeout:
			sess.timer.Schedule(e.sched, e.settings.Current().FishingTimeout(), func(tok session.Token) {
				e.fire(player, tok, Timeout{})
			})
		case StopTimer:
			sess.timer.Cancel()
		case Release:
			delete(e.sessions, player)
		}
	}
	return next, effects
}

// fire runs a timer-driven event. Stale timers are ignored.
func (e *Engine) fire(player int64, tok session.Token, ev Event) {
	e.mu.Lock()
	sess, ok := e.sessions[player]
	if !ok || !sess.timer.Fired(tok) {
		e.mu.Unlock()
		return
	}
	next, effects := e.step(sess, ev)
	hooks, id := sess.hooks, sess.id
	e.mu.Unlock()

	if slices.Contains(effects, Release) {
		e.active.Remove(player)
		e.metrics.RecordOutcome("fishing", next.Phase.String())
	}

	switch next.Phase {
	case Biting:
		var bite func()
		if hooks.OnBite != nil {
			bite = func() { hooks.OnBite(id) }
		}
		if !e.call(player, bite) {
			e.Cancel(player)
		}
	case Missed:
		e.call(player, hooks.OnMissed)
		log.Debug().Int64("user_id", player).Msg("Fish got away")
	}
}

// call runs a hook and reports whether it returned normally.
func (e *Engine) call(player int64, fn func()) (ok bool) {
	if fn == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int64("user_id", player).Interface("panic", r).Msg("Fishing hook panicked")
			ok = false
		}
	}()
	fn()
	return true
}

// biteDelay is uniform over the configured window.
func (e *Engine) biteDelay() time.Duration {
	lo, hi := e.settings.Current().FishingBiteWindow()
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + time.Duration(e.rnd.Float64()*float64(hi-lo))
}
