package tictactoe

// InvitePhase is the state of an invite.
type InvitePhase int

const (
	Invited InvitePhase = iota
	Accepted
	Declined
	Expired
)

func (p InvitePhase) String() string {
	switch p {
	case Invited:
		return "invited"
	case Accepted:
		return "accepted"
	case Declined:
		return "declined"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Invite is a pending challenge from Inviter to Invitee.
type Invite struct {
	Inviter int64
	Invitee int64
	Bet     int64
	Phase   InvitePhase
}

// InviteEvent drives an Invite.
type InviteEvent interface{ inviteEvent() }

// Accept is the invitee agreeing to play.
type Accept struct{ By int64 }

// Decline is the invitee refusing.
type Decline struct{ By int64 }

// Expire fires when the invite deadline passes.
type Expire struct{}

func (Accept) inviteEvent()  {}
func (Decline) inviteEvent() {}
func (Expire) inviteEvent()  {}

// Next applies ev. Only the invitee's responses are honoured;
// anything else returns the invite unchanged with ok false.
func (inv Invite) Next(ev InviteEvent) (next Invite, ok bool) {
	if inv.Phase != Invited {
		return inv, false
	}
	switch ev := ev.(type) {
	case Accept:
		if ev.By != inv.Invitee {
			return inv, false
		}
		inv.Phase = Accepted
	case Decline:
		if ev.By != inv.Invitee {
			return inv, false
		}
		inv.Phase = Declined
	case Expire:
		inv.Phase = Expired
	default:
		return inv, false
	}
	return inv, true
}

// MatchPhase is the state of a match.
type MatchPhase int

const (
	Active MatchPhase = iota
	Won
	Tied
	TimedOut
)

func (p MatchPhase) String() string {
	switch p {
	case Active:
		return "active"
	case Won:
		return "won"
	case Tied:
		return "tied"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the board is frozen.
func (p MatchPhase) Terminal() bool {
	return p != Active
}

// Match is the full state of one game. X always moves first; which player
// holds X is decided when the match is created.
type Match struct {
	// ID is assigned by the engine when the match starts.
	ID        uint64
	XPlayer   int64
	OPlayer   int64
	Bet       int64
	Board     Board
	Turn      Mark
	Phase     MatchPhase
	Winner    Mark
	Forfeited bool
}

// NewMatch creates an active match with X to move.
func NewMatch(xPlayer, oPlayer, bet int64) Match {
	return Match{XPlayer: xPlayer, OPlayer: oPlayer, Bet: bet, Turn: X, Phase: Active}
}

// MarkOf returns the mark of player, Empty for non-participants.
func (m Match) MarkOf(player int64) Mark {
	switch player {
	case m.XPlayer:
		return X
	case m.OPlayer:
		return O
	default:
		return Empty
	}
}

// PlayerOf returns the player holding mark.
func (m Match) PlayerOf(mark Mark) int64 {
	if mark == X {
		return m.XPlayer
	}
	return m.OPlayer
}

// WinnerID returns the winning player, or 0 when nobody won.
func (m Match) WinnerID() int64 {
	if m.Phase != Won {
		return 0
	}
	return m.PlayerOf(m.Winner)
}

// LoserID returns the losing player, or 0 when nobody won.
func (m Match) LoserID() int64 {
	if m.Phase != Won {
		return 0
	}
	return m.PlayerOf(m.Winner.Other())
}

// MatchEvent drives a Match.
type MatchEvent interface{ matchEvent() }

// Move places the mover's mark at (X, Y).
type Move struct {
	By   int64
	X, Y int
}

// Forfeit concedes the match to the opponent.
type Forfeit struct{ By int64 }

// Timeout fires when the match deadline passes.
type Timeout struct{}

func (Move) matchEvent()    {}
func (Forfeit) matchEvent() {}
func (Timeout) matchEvent() {}

// Next applies ev. A move that is out of turn, off the board or onto an
// occupied cell leaves the match unchanged with ok false.
func (m Match) Next(ev MatchEvent) (next Match, ok bool) {
	if m.Phase.Terminal() {
		return m, false
	}

	switch ev := ev.(type) {
	case Move:
		mark := m.MarkOf(ev.By)
		if mark == Empty || mark != m.Turn {
			return m, false
		}
		if !m.Board.Place(ev.X, ev.Y, mark) {
			return m, false
		}
		switch outcome, winner := m.Board.Evaluate(); outcome {
		case Win:
			m.Phase, m.Winner = Won, winner
		case Tie:
			m.Phase = Tied
		default:
			m.Turn = mark.Other()
		}

	case Forfeit:
		mark := m.MarkOf(ev.By)
		if mark == Empty {
			return m, false
		}
		m.Phase, m.Winner, m.Forfeited = Won, mark.Other(), true

	case Timeout:
		m.Phase = TimedOut

	default:
		return m, false
	}
	return m, true
}
