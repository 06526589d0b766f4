package bot

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"economy-game-bot/internal/config"
)

func drawIDs(t *rapid.T, label string, sign int64) []int64 {
	n := rapid.IntRange(1, 10).Draw(t, label+"Count")
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = sign * rapid.Int64Range(1, 1000000000).Draw(t, label)
	}
	return ids
}

// A user is an admin exactly when their ID is listed.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := drawIDs(t, "adminID", 1)
		cfg := &config.Config{Admin: config.AdminConfig{IDs: adminIDs}}

		userID := rapid.OneOf(
			rapid.SampledFrom(adminIDs),
			rapid.Int64Range(1, 1000000000),
		).Draw(t, "userID")

		if got, want := cfg.IsAdmin(userID), slices.Contains(adminIDs, userID); got != want {
			t.Fatalf("IsAdmin(%d) = %v with admins %v", userID, got, adminIDs)
		}
	})
}

// A group chat is handled exactly when it is whitelisted, and handling it
// admits the sender to private chat.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs := drawIDs(t, "chatID", -1)
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}
		users := NewPrivateUsers()

		chatID := rapid.OneOf(
			rapid.SampledFrom(chatIDs),
			rapid.Int64Range(-1000000000, -1),
		).Draw(t, "chatID")
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		allowed := ChatAllowed(cfg, users, chatID, userID, false)
		if want := slices.Contains(chatIDs, chatID); allowed != want {
			t.Fatalf("chat %d allowed=%v with whitelist %v", chatID, allowed, chatIDs)
		}
		if users.Allowed(userID) != allowed {
			t.Fatalf("private access for %d should follow group access", userID)
		}
		if ChatAllowed(cfg, users, userID, userID, true) != allowed {
			t.Fatalf("private chat of %d should be handled iff seen in a whitelisted group", userID)
		}
	})
}

func TestEmptyWhitelistAllowsAllChatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{}
		users := NewPrivateUsers()
		chatID := rapid.Int64().Draw(t, "chatID")
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		private := rapid.Bool().Draw(t, "private")

		if !ChatAllowed(cfg, users, chatID, userID, private) {
			t.Fatalf("empty whitelist must allow chat %d", chatID)
		}
	})
}

func TestCommandOf(t *testing.T) {
	tests := map[string]string{
		"/pay 100":           "/pay",
		"/pay@economy_bot 5": "/pay",
		"/top":               "/top",
		"hello":              "message",
		"":                   "message",
	}
	for in, want := range tests {
		assert.Equal(t, want, CommandOf(in), in)
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(1, 2)
	t0 := time.Unix(1700000000, 0)

	assert.True(t, l.AllowAt(1, t0))
	assert.True(t, l.AllowAt(1, t0))
	assert.False(t, l.AllowAt(1, t0), "burst exhausted")
	assert.True(t, l.AllowAt(2, t0), "buckets are per user")
	assert.True(t, l.AllowAt(1, t0.Add(time.Second)), "refilled")
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0, 0)
	for range 100 {
		assert.True(t, l.Allow(1))
	}
}
