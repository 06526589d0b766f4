package handler

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/game"
	"economy-game-bot/internal/game/coinflip"
	"economy-game-bot/internal/game/fishing"
	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
)

// Callback unique names.
const (
	CallbackFlipPick  = "flip_pick"
	CallbackFishCatch = "fish_catch"
)

// GameHandler handles /games, the coin flip and fishing.
type GameHandler struct {
	base
	games    *game.Registry
	coinflip *coinflip.Engine
	fishing  *fishing.Engine
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(
	games *game.Registry,
	flip *coinflip.Engine,
	fish *fishing.Engine,
	locks *lock.UserLock,
	m *metrics.Collector,
) *GameHandler {
	return &GameHandler{
		base:     base{locks: locks, metrics: m},
		games:    games,
		coinflip: flip,
		fishing:  fish,
	}
}

// HandleGames handles /games [command].
func (h *GameHandler) HandleGames(c tele.Context) error {
	if args := c.Args(); len(args) > 0 {
		g, ok := h.games.Lookup(args[0])
		if !ok {
			return c.Reply(fmt.Sprintf("❌ No game called %s. Try /games", args[0]))
		}
		return c.Reply(FormatGames([]game.Game{g}))
	}
	return c.Reply(FormatGames(h.games.List()))
}

// FormatGames renders the game list.
func FormatGames(games []game.Game) string {
	var sb strings.Builder
	sb.WriteString("🎮 Games\n━━━━━━━━━━━━━━━\n")
	for _, g := range games {
		fmt.Fprintf(&sb, "/%s  %s\n   %s\n", g.Command(), g.Name(), g.Description())
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

// HandleFlip handles /flip <heads|tails> <stake>. With only a stake it
// offers the two faces as buttons.
func (h *GameHandler) HandleFlip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()

	switch len(args) {
	case 1:
		markup := &tele.ReplyMarkup{}
		owner := strconv.FormatInt(sender.ID, 10)
		markup.Inline(markup.Row(
			markup.Data("🪙 Heads", CallbackFlipPick, owner, coinflip.Heads.String(), args[0]),
			markup.Data("🪙 Tails", CallbackFlipPick, owner, coinflip.Tails.String(), args[0]),
		))
		return c.Reply(fmt.Sprintf("🪙 %s, pick a side for %s", DisplayName(sender), args[0]), markup)
	case 2:
		guess, err := coinflip.ParseFace(args[0])
		if err != nil {
			return c.Reply("❌ Usage: /flip <heads|tails> <amount|all|N%>")
		}
		text, err := h.flip(sender, guess, args[1])
		if err != nil {
			return fail(c, err, "flip")
		}
		return c.Reply(text)
	default:
		return c.Reply("❌ Usage: /flip <heads|tails> <amount|all|N%>")
	}
}

// HandleFlipPick handles the face buttons offered by /flip <stake>.
func (h *GameHandler) HandleFlipPick(c tele.Context, payload []string) error {
	sender := c.Sender()
	if sender == nil || len(payload) != 3 {
		return toast(c, "❌ Invalid action")
	}
	owner, err := strconv.ParseInt(payload[0], 10, 64)
	if err != nil {
		return toast(c, "❌ Invalid action")
	}
	if owner != sender.ID {
		return alert(c, ReasonText(model.ReasonNotParticipant))
	}
	guess, err := coinflip.ParseFace(payload[1])
	if err != nil {
		return toast(c, "❌ Invalid action")
	}

	text, err := h.flip(sender, guess, payload[2])
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Flip failed")
		return alert(c, genericFailure)
	}
	_ = c.Edit(text)
	return c.Respond()
}

func (h *GameHandler) flip(sender *tele.User, guess coinflip.Face, stake string) (string, error) {
	ctx, cancel := newContext()
	defer cancel()

	var res coinflip.Result
	err := h.locked(ctx, func() error {
		var err error
		res, err = h.coinflip.Flip(ctx, sender.ID, guess, stake)
		return err
	}, sender.ID)
	if err != nil {
		return "", err
	}
	return FormatFlip(DisplayName(sender), res), nil
}

// FormatFlip renders a flip result.
func FormatFlip(name string, res coinflip.Result) string {
	if res.Reason != model.ReasonNone {
		return ReasonText(res.Reason)
	}
	switch {
	case res.Won:
		return fmt.Sprintf("🪙 %s called %s, it landed %s.\n🎉 You win %d!\n💰 Balance: %d",
			name, res.Guess, res.Outcome, res.Delta, res.Balance)
	case res.TotalLoss:
		return fmt.Sprintf("🪙 %s called %s, it landed %s.\n💀 Total loss, the whole stake of %d is gone.\n💰 Balance: %d",
			name, res.Guess, res.Outcome, -res.Delta, res.Balance)
	default:
		return fmt.Sprintf("🪙 %s called %s, it landed %s.\n😢 You lose %d.\n💰 Balance: %d",
			name, res.Guess, res.Outcome, -res.Delta, res.Balance)
	}
}

// messageRef holds a message sent after the timers that edit it were armed.
type messageRef struct {
	p atomic.Pointer[tele.Message]
}

// edit updates the referenced message, or posts a new one to chat if it
// was never stored.
func (r *messageRef) edit(bot *tele.Bot, chat *tele.Chat, text string, opts ...any) {
	var err error
	if msg := r.p.Load(); msg != nil {
		_, err = bot.Edit(msg, text, opts...)
	} else {
		_, err = bot.Send(chat, text, opts...)
	}
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to update game message")
	}
}

// CatchMarkup is the catch button of owner's session. The session ID keeps a
// button from an earlier cast from acting on the current one.
func CatchMarkup(owner int64, session uint64, label string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(label, CallbackFishCatch,
		strconv.FormatInt(owner, 10), strconv.FormatUint(session, 10))))
	return markup
}

// HandleFish handles /fish.
func (h *GameHandler) HandleFish(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	bot := c.Bot()
	name := DisplayName(sender)
	ref := &messageRef{}

	res, err := h.fishing.Start(ctx, sender.ID, fishing.Hooks{
		OnBite: func(session uint64) {
			ref.edit(bot, chat, fmt.Sprintf("❗ %s, something bites! Pull now!", name), CatchMarkup(sender.ID, session, "🎣 Pull!"))
		},
		OnMissed: func() {
			ref.edit(bot, chat, fmt.Sprintf("💨 %s, the fish got away.", name))
		},
	})
	if err != nil {
		return fail(c, err, "fish")
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}

	msg, err := bot.Send(chat, fmt.Sprintf("🎣 %s casts a line... wait for a bite.", name), CatchMarkup(sender.ID, res.Session, "⚪ Wait..."))
	if err != nil {
		h.fishing.Cancel(sender.ID)
		return fmt.Errorf("failed to send fishing message: %w", err)
	}
	ref.p.Store(msg)
	return nil
}

// HandleFishCatch handles the catch button.
func (h *GameHandler) HandleFishCatch(c tele.Context, payload []string) error {
	sender := c.Sender()
	if sender == nil || len(payload) != 2 {
		return toast(c, "❌ Invalid action")
	}
	owner, err := strconv.ParseInt(payload[0], 10, 64)
	if err != nil {
		return toast(c, "❌ Invalid action")
	}
	session, err := strconv.ParseUint(payload[1], 10, 64)
	if err != nil {
		return toast(c, "❌ Invalid action")
	}

	ctx, cancel := newContext()
	defer cancel()

	res, err := h.fishing.Press(ctx, owner, session, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", owner).Msg("Catch failed")
		_ = c.Edit("❌ The line snapped. Please try again later.")
		return c.Respond()
	}

	switch {
	case res.Reason == model.ReasonNotParticipant:
		return alert(c, "❌ This is not your line")
	case res.Reason != model.ReasonNone:
		return toast(c, "❌ This session is over")
	case res.Phase == fishing.Interrupted:
		_ = c.Edit(fmt.Sprintf("🙈 %s pulled too early and scared the fish away.", DisplayName(sender)))
	case res.Phase == fishing.Caught && res.Fish != nil:
		_ = c.Edit(FormatCatch(DisplayName(sender), *res.Fish, res.Balance))
	}
	return c.Respond()
}

// FormatCatch renders a caught fish.
func FormatCatch(name string, f model.Fish, balance int64) string {
	return fmt.Sprintf(
		"🐟 %s caught a %s!\n"+
			"⭐ Rarity: %s\n"+
			"📏 Length: %s\n"+
			"💰 Sold for %d (balance %d)",
		name, f.Template.Name, f.Template.Rarity, f.DisplayLength(), f.Price, balance,
	)
}
