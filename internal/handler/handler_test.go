package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/game/coinflip"
	"economy-game-bot/internal/game/tictactoe"
	"economy-game-bot/internal/media"
	"economy-game-bot/internal/model"
)

func TestReasonText_CoversEveryReason(t *testing.T) {
	reasons := []model.Reason{
		model.ReasonNotRegistered, model.ReasonTargetNotRegistered, model.ReasonAlreadyExists,
		model.ReasonInvalidAmount, model.ReasonInsufficientBalance, model.ReasonTargetInsufficient,
		model.ReasonSelfTarget, model.ReasonAlreadyInSession, model.ReasonTargetInSession,
		model.ReasonCooldownNotElapsed, model.ReasonNoSession, model.ReasonNotParticipant,
		model.ReasonNotYourTurn, model.ReasonInvalidMove,
	}
	for _, r := range reasons {
		assert.NotEqual(t, genericFailure, ReasonText(r), r)
	}
	assert.Equal(t, genericFailure, ReasonText("something_new"))
}

func TestCallbackData(t *testing.T) {
	unique, payload := CallbackData("\fttt_move|7|2|1")
	assert.Equal(t, "ttt_move", unique)
	assert.Equal(t, []string{"7", "2", "1"}, payload)

	unique, payload = CallbackData("fish_catch")
	assert.Equal(t, "fish_catch", unique)
	assert.Empty(t, payload)
}

func TestPayloadInts(t *testing.T) {
	ids, ok := payloadInts([]string{"12", "-34"}, 2)
	require.True(t, ok)
	assert.Equal(t, []int64{12, -34}, ids)

	_, ok = payloadInts([]string{"12"}, 2)
	assert.False(t, ok)
	_, ok = payloadInts([]string{"a", "1"}, 2)
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	n, ok := ParseAmount(" 250 ")
	assert.True(t, ok)
	assert.Equal(t, int64(250), n)

	for _, bad := range []string{"0", "-5", "abc", "1.5", ""} {
		_, ok := ParseAmount(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseAdminArgs(t *testing.T) {
	id, v, ok := parseAdminArgs([]string{"42", "-100"})
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(-100), v)

	_, _, ok = parseAdminArgs([]string{"42"})
	assert.False(t, ok)
	_, _, ok = parseAdminArgs([]string{"x", "1"})
	assert.False(t, ok)
}

func TestParseTrack(t *testing.T) {
	track, ok := ParseTrack([]string{"Never", "Gonna", "https://example.com/v"}, 7)
	require.True(t, ok)
	assert.Equal(t, media.Track{Title: "Never Gonna", URL: "https://example.com/v", RequestedBy: 7}, track)

	_, ok = ParseTrack([]string{"only-title"}, 7)
	assert.False(t, ok)
	_, ok = ParseTrack([]string{"title", "not-a-url"}, 7)
	assert.False(t, ok)
}

func TestFormatTracks(t *testing.T) {
	assert.Equal(t, "🎵 Queue: empty", FormatTracks("🎵 Queue", nil))

	text := FormatTracks("🎵 Queue", []media.Track{{Title: "a", Duration: 185}, {Title: "b"}})
	assert.Contains(t, text, "1. a (3:05)")
	assert.Contains(t, text, "2. b\n")
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "3h 20m", formatRemaining(3*time.Hour+20*time.Minute))
	assert.Equal(t, "1m", formatRemaining(10*time.Second))
	assert.Equal(t, "45m", formatRemaining(45*time.Minute))
}

func TestFormatTop(t *testing.T) {
	assert.Equal(t, "📊 Nobody is ranked yet", FormatTop(nil))

	text := FormatTop([]*model.Account{
		{ID: 1, Username: "alice", Balance: 900},
		{ID: 2, Balance: 500},
		{ID: 3, Username: "carol", Balance: 100},
		{ID: 4, Username: "dave", Balance: 10},
	})
	assert.Contains(t, text, "🥇 alice: 900")
	assert.Contains(t, text, "🥈 User2: 500")
	assert.Contains(t, text, "4. dave: 10")
}

func TestFormatStatement(t *testing.T) {
	assert.Equal(t, "📜 No movements yet", FormatStatement(nil))

	desc := "paid to 2"
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	text := FormatStatement([]*model.LedgerEntry{
		{Amount: -40, Kind: model.KindTransferOut, Description: &desc, CreatedAt: at},
		{Amount: 120, Kind: model.KindClaim, CreatedAt: at},
	})
	assert.Contains(t, text, "03-05 14:30 -40 transfer_out (paid to 2)")
	assert.Contains(t, text, "03-05 14:30 +120 claim\n")
}

func TestFormatFlip(t *testing.T) {
	win := FormatFlip("@a", coinflip.Result{Guess: coinflip.Heads, Outcome: coinflip.Heads, Won: true, Delta: 50, Balance: 150})
	assert.Contains(t, win, "win 50")

	loss := FormatFlip("@a", coinflip.Result{Guess: coinflip.Heads, Outcome: coinflip.Tails, TotalLoss: true, Delta: -100, Balance: 0})
	assert.Contains(t, loss, "whole stake of 100")

	rejected := FormatFlip("@a", coinflip.Result{Reason: model.ReasonInsufficientBalance})
	assert.Equal(t, ReasonText(model.ReasonInsufficientBalance), rejected)
}

func TestFormatCatch(t *testing.T) {
	text := FormatCatch("@a", model.Fish{
		Template: model.FishTemplate{Name: "Salmon", Rarity: model.Epic},
		Length:   1250,
		Price:    900,
	}, 1900)
	assert.Contains(t, text, "Salmon")
	assert.Contains(t, text, model.Epic.String())
	assert.Contains(t, text, "1.25m")
}

func TestBoardRendering(t *testing.T) {
	m := tictactoe.NewMatch(1, 2, 0)
	m.ID = 7
	m, ok := m.Next(tictactoe.Move{By: 1, X: 2, Y: 0})
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(FormatBoard(m.Board)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "▫️▫️❌", lines[0])

	markup := BoardMarkup(m)
	require.Len(t, markup.InlineKeyboard, 3)
	btn := markup.InlineKeyboard[1][2]
	assert.Equal(t, CallbackTTTMove, btn.Unique)
	assert.Equal(t, "7|2|1", btn.Data, "buttons name the match they belong to")
	assert.Equal(t, "❌", markup.InlineKeyboard[0][2].Text)
}

func TestCatchMarkup(t *testing.T) {
	markup := CatchMarkup(42, 9, "🎣 Pull!")
	require.Len(t, markup.InlineKeyboard, 1)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, CallbackFishCatch, btn.Unique)
	assert.Equal(t, "42|9", btn.Data, "button names the cast it belongs to")

	_, payload := CallbackData("\f" + btn.Unique + "|" + btn.Data)
	assert.Equal(t, []string{"42", "9"}, payload)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "@bob", DisplayName(&tele.User{ID: 1, Username: "bob", FirstName: "Bob"}))
	assert.Equal(t, "Bob", DisplayName(&tele.User{ID: 1, FirstName: "Bob"}))
	assert.Equal(t, "1", DisplayName(&tele.User{ID: 1}))
	assert.Empty(t, DisplayName(nil))
}
