// Package fishing implements the timed fishing session.
//
// A session waits a random time for a bite, then gives the player a short
// window to press the catch button. Transition is the pure state machine;
// Engine drives it with timers and applies its effects.
package fishing

// Phase is the session state.
type Phase int

const (
	Idle Phase = iota
	Waiting
	Biting
	Caught
	Missed
	Interrupted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Biting:
		return "biting"
	case Caught:
		return "caught"
	case Missed:
		return "missed"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further event can change the phase.
func (p Phase) Terminal() bool {
	return p == Caught || p == Missed || p == Interrupted
}

// Event drives the machine.
type Event interface{ event() }

// Start begins a session.
type Start struct{}

// Bite fires when the wait timer elapses.
type Bite struct{}

// Timeout fires when the catch window closes.
type Timeout struct{}

// Press is a catch button press by UserID.
type Press struct{ UserID int64 }

// Cancel aborts the session, e.g. on shutdown.
type Cancel struct{}

func (Start) event()   {}
func (Bite) event()    {}
func (Timeout) event() {}
func (Press) event()   {}
func (Cancel) event()  {}

// Effect is work the engine performs after a transition.
type Effect int

const (
	ScheduleBite Effect = iota + 1
	ScheduleTimeout
	StopTimer
	Catch
	Release
)

// State is one session's machine state.
type State struct {
	Phase  Phase
	Player int64
}

// Transition returns the next state and the effects to apply. Events that do
// not apply in the current phase, and presses by anyone but the player,
// leave the state unchanged and produce no effects.
func Transition(s State, ev Event) (State, []Effect) {
	if s.Phase.Terminal() {
		return s, nil
	}

	switch ev := ev.(type) {
	case Start:
		if s.Phase == Idle {
			s.Phase = Waiting
			return s, []Effect{ScheduleBite}
		}

	case Bite:
		if s.Phase == Waiting {
			s.Phase = Biting
			return s, []Effect{ScheduleTimeout}
		}

	case Timeout:
		if s.Phase == Biting {
			s.Phase = Missed
			return s, []Effect{Release}
		}

	case Press:
		if ev.UserID != s.Player {
			return s, nil
		}
		switch s.Phase {
		case Waiting:
			// Pulled the rod before anything bit.
			s.Phase = Interrupted
			return s, []Effect{StopTimer, Release}
		case Biting:
			s.Phase = Caught
			return s, []Effect{StopTimer, Catch, Release}
		}

	case Cancel:
		if s.Phase == Idle {
			return s, nil
		}
		s.Phase = Interrupted
		return s, []Effect{StopTimer, Release}
	}

	return s, nil
}
