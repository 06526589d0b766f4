// Package setting holds the gameplay tunables read from the bot_setting table.
//
// A Snapshot is immutable once built. Store publishes snapshots atomically, so
// an operation that calls Current once sees one consistent set of values even
// while a reload is running.
package setting

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Stored key names.
const (
	KeyAttendanceCooldown     = "attendance_cooldown"
	KeyAttendanceBonusMoney   = "attendance_bonus_money"
	KeyAttendanceBonusProb    = "attendance_bonus_money_prob"
	KeyAttendanceMultiple     = "attendance_multiple"
	KeyAttendanceRandomMin    = "attendance_random_money_min"
	KeyAttendanceRandomMax    = "attendance_random_money_max"
	KeyFishingRandomMin       = "fishing_random_min"
	KeyFishingRandomMax       = "fishing_random_max"
	KeyFishingTimeout         = "fishing_timeout"
	KeyCoinflipTotalLossProb  = "coinflip_total_loss_prob"
	KeyTicTacToeGameTimeout   = "ticitactoe_game_timeout"
	KeyTicTacToeInviteTimeout = "tictactoe_invite_timeout"
)

// Keys lists every key a snapshot requires.
var Keys = []string{
	KeyAttendanceCooldown,
	KeyAttendanceBonusMoney,
	KeyAttendanceBonusProb,
	KeyAttendanceMultiple,
	KeyAttendanceRandomMin,
	KeyAttendanceRandomMax,
	KeyFishingRandomMin,
	KeyFishingRandomMax,
	KeyFishingTimeout,
	KeyCoinflipTotalLossProb,
	KeyTicTacToeGameTimeout,
	KeyTicTacToeInviteTimeout,
}

// percentKeys are stored as 0-100 and exposed as 0.0-1.0.
var percentKeys = map[string]bool{
	KeyAttendanceBonusProb:   true,
	KeyCoinflipTotalLossProb: true,
}

var (
	// ErrConfigIncomplete is returned when an expected key is absent.
	ErrConfigIncomplete = errors.New("configuration incomplete")
	// ErrInvalidValue is returned when a stored value does not parse.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// disabled marks a timeout that must never fire.
const disabled = -1

// Snapshot is one consistent, typed view of every tunable.
type Snapshot struct {
	raw      map[string]string
	ints     map[string]int64
	percents map[string]float64
}

// Parse builds a Snapshot from raw stored values. All keys must be present;
// a partial snapshot is never returned.
func Parse(raw map[string]string) (*Snapshot, error) {
	var missing []string
	for _, k := range Keys {
		if _, ok := raw[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: missing %s", ErrConfigIncomplete, strings.Join(missing, ", "))
	}

	s := &Snapshot{
		raw:      make(map[string]string, len(Keys)),
		ints:     make(map[string]int64, len(Keys)),
		percents: make(map[string]float64, len(percentKeys)),
	}
	for _, k := range Keys {
		v := strings.TrimSpace(raw[k])
		s.raw[k] = raw[k]

		if percentKeys[k] {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, k, raw[k])
			}
			s.percents[k] = f
			continue
		}

		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidValue, k, raw[k])
		}
		s.ints[k] = n
	}
	return s, nil
}

// Raw returns a value exactly as stored.
func (s *Snapshot) Raw(key string) (string, bool) {
	v, ok := s.raw[key]
	return v, ok
}

// AttendanceCooldown is the minimum time between two claims.
func (s *Snapshot) AttendanceCooldown() time.Duration {
	return time.Duration(s.ints[KeyAttendanceCooldown]) * time.Hour
}

// AttendanceBonusMoney is the fixed bonus award.
func (s *Snapshot) AttendanceBonusMoney() int64 {
	return s.ints[KeyAttendanceBonusMoney]
}

// AttendanceBonusProb is the chance of the bonus award, in [0, 1].
func (s *Snapshot) AttendanceBonusProb() float64 {
	return s.percents[KeyAttendanceBonusProb] / 100
}

// AttendanceMultiple multiplies the random claim draw.
func (s *Snapshot) AttendanceMultiple() int64 {
	return s.ints[KeyAttendanceMultiple]
}

// AttendanceRandomMoney returns the inclusive bounds of the random claim draw.
func (s *Snapshot) AttendanceRandomMoney() (lo, hi int64) {
	return s.ints[KeyAttendanceRandomMin], s.ints[KeyAttendanceRandomMax]
}

// FishingBiteWindow returns the bounds of the wait before a bite.
func (s *Snapshot) FishingBiteWindow() (lo, hi time.Duration) {
	return seconds(s.ints[KeyFishingRandomMin]), seconds(s.ints[KeyFishingRandomMax])
}

// FishingTimeout is how long a bite stays catchable.
func (s *Snapshot) FishingTimeout() time.Duration {
	return seconds(s.ints[KeyFishingTimeout])
}

// CoinflipTotalLossProb is the chance a lost flip costs the full stake, in [0, 1].
func (s *Snapshot) CoinflipTotalLossProb() float64 {
	return s.percents[KeyCoinflipTotalLossProb] / 100
}

// TicTacToeGameTimeout is the whole-match deadline. ok is false when the
// stored value is -1, meaning matches never time out.
func (s *Snapshot) TicTacToeGameTimeout() (d time.Duration, ok bool) {
	return optionalSeconds(s.ints[KeyTicTacToeGameTimeout])
}

// TicTacToeInviteTimeout is how long an invite stays open. ok is false when
// invites never expire.
func (s *Snapshot) TicTacToeInviteTimeout() (d time.Duration, ok bool) {
	return optionalSeconds(s.ints[KeyTicTacToeInviteTimeout])
}

func seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}

func optionalSeconds(n int64) (time.Duration, bool) {
	if n == disabled {
		return 0, false
	}
	return seconds(n), true
}
