// Package model defines the data models for the economy game bot.
package model

import (
	"fmt"
	"time"
)

// Account is a registered user's economy record.
type Account struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	Balance       int64     `db:"balance"`
	LastClaimTime int64     `db:"last_claim_time"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// LedgerEntry is one audited balance movement.
type LedgerEntry struct {
	ID          int64     `db:"id"`
	AccountID   int64     `db:"account_id"`
	Amount      int64     `db:"amount"`
	Kind        string    `db:"kind"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Ledger entry kinds.
const (
	KindClaim       = "claim"
	KindTransferOut = "transfer_out"
	KindTransferIn  = "transfer_in"
	KindCoinflip    = "coinflip"
	KindFishing     = "fishing"
	KindTicTacToe   = "tictactoe"
	KindAdminAdd    = "admin_add"
	KindAdminSet    = "admin_set"
)

// Rarity is a fish rarity tier, stored as the "rating" column.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
	Mythic
)

// Rarities lists every tier from most to least common.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary, Mythic}

func (r Rarity) String() string {
	switch r {
	case Common:
		return "COMMON"
	case Uncommon:
		return "UNCOMMON"
	case Rare:
		return "RARE"
	case Epic:
		return "EPIC"
	case Legendary:
		return "LEGENDARY"
	case Mythic:
		return "MYTHIC"
	default:
		return fmt.Sprintf("RARITY(%d)", int(r))
	}
}

// Valid reports whether r is one of the six known tiers.
func (r Rarity) Valid() bool {
	return r >= Common && r <= Mythic
}

// FishTemplate is the static definition of a fish species.
// Lengths are in millimetres.
type FishTemplate struct {
	ID          int     `db:"id"`
	Name        string  `db:"name"`
	Rarity      Rarity  `db:"rating"`
	MinLength   int     `db:"min_length"`
	MaxLength   int     `db:"max_length"`
	BasePrice   int     `db:"base_price"`
	ConstValue  float64 `db:"const_value"`
	Description string  `db:"description"`
}

// Fish is one generated catch. It is never persisted.
type Fish struct {
	Template FishTemplate
	Length   int
	Price    int64
}

// DisplayLength renders the length in metres from 1000mm up, centimetres below.
func (f Fish) DisplayLength() string {
	if f.Length >= 1000 {
		return fmt.Sprintf("%.2fm", float64(f.Length)/1000)
	}
	return fmt.Sprintf("%.1fcm", float64(f.Length)/10)
}
