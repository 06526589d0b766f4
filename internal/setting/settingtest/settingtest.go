// Package settingtest provides fixed snapshots for engine tests.
package settingtest

import (
	"maps"

	"economy-game-bot/internal/setting"
)

// Defaults are quick, deterministic values suited to tests.
var Defaults = map[string]string{
	setting.KeyAttendanceCooldown:     "24",
	setting.KeyAttendanceBonusMoney:   "10000",
	setting.KeyAttendanceBonusProb:    "1",
	setting.KeyAttendanceMultiple:     "100",
	setting.KeyAttendanceRandomMin:    "10",
	setting.KeyAttendanceRandomMax:    "50",
	setting.KeyFishingRandomMin:       "3",
	setting.KeyFishingRandomMax:       "15",
	setting.KeyFishingTimeout:         "3",
	setting.KeyCoinflipTotalLossProb:  "10",
	setting.KeyTicTacToeGameTimeout:   "300",
	setting.KeyTicTacToeInviteTimeout: "60",
}

// Provider always returns the same snapshot.
type Provider struct {
	Snapshot *setting.Snapshot
}

// Current implements setting.Provider.
func (p Provider) Current() *setting.Snapshot {
	return p.Snapshot
}

// New returns a Provider built from Defaults with overrides applied.
// It panics on an invalid value since a bad fixture is a test bug.
func New(overrides map[string]string) Provider {
	raw := maps.Clone(Defaults)
	maps.Copy(raw, overrides)
	snap, err := setting.Parse(raw)
	if err != nil {
		panic(err)
	}
	return Provider{Snapshot: snap}
}
