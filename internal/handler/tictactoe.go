package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/game/tictactoe"
	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/service"
)

// Callback unique names.
const (
	CallbackTTTAccept  = "ttt_accept"
	CallbackTTTDecline = "ttt_decline"
	CallbackTTTMove    = "ttt_move"
)

// MatchHandler handles tic-tac-toe invites, moves and forfeits.
type MatchHandler struct {
	base
	accounts *service.AccountService
	engine   *tictactoe.Engine
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(accounts *service.AccountService, engine *tictactoe.Engine, locks *lock.UserLock, m *metrics.Collector) *MatchHandler {
	return &MatchHandler{base: base{locks: locks, metrics: m}, accounts: accounts, engine: engine}
}

// HandleInvite handles /ttt [bet], sent as a reply to the opponent.
func (h *MatchHandler) HandleInvite(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	target := replyTarget(c)
	if target == nil {
		return c.Reply("❌ Usage: reply to your opponent with /ttt [bet]")
	}
	var bet int64
	if args := c.Args(); len(args) > 0 {
		var err error
		if bet, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			return reject(c, model.ReasonInvalidAmount)
		}
	}

	ctx, cancel := newContext()
	defer cancel()

	bot := c.Bot()
	ref := &messageRef{}
	res, err := h.engine.Invite(ctx, sender.ID, target.ID, bet, tictactoe.InviteHooks{
		OnExpired: func(tictactoe.Invite) {
			ref.edit(bot, chat, fmt.Sprintf("⌛ %s did not answer %s's challenge.", DisplayName(target), DisplayName(sender)))
		},
	})
	if err != nil {
		return fail(c, err, "ttt_invite")
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}

	markup := &tele.ReplyMarkup{}
	pair := []string{strconv.FormatInt(sender.ID, 10), strconv.FormatInt(target.ID, 10)}
	markup.Inline(markup.Row(
		markup.Data("✅ Accept", CallbackTTTAccept, pair...),
		markup.Data("❌ Decline", CallbackTTTDecline, pair...),
	))

	text := fmt.Sprintf("⚔️ %s challenges %s to tic-tac-toe!", DisplayName(sender), DisplayName(target))
	if bet > 0 {
		text += fmt.Sprintf("\n💰 Bet: %d", bet)
	}
	text += "\nOnly " + DisplayName(target) + " can answer."

	msg, err := bot.Send(chat, text, markup)
	if err != nil {
		return fmt.Errorf("failed to send invite: %w", err)
	}
	ref.p.Store(msg)
	return nil
}

// HandleRespond handles the accept and decline buttons.
func (h *MatchHandler) HandleRespond(c tele.Context, payload []string, accept bool) error {
	sender, chat := c.Sender(), c.Chat()
	ids, ok := payloadInts(payload, 2)
	if sender == nil || chat == nil || !ok {
		return toast(c, "❌ Invalid action")
	}
	inviter, invitee := ids[0], ids[1]

	ctx, cancel := newContext()
	defer cancel()

	bot := c.Bot()
	msg := c.Message()
	res, err := h.engine.Respond(ctx, inviter, invitee, sender.ID, accept, tictactoe.MatchHooks{
		OnTimeout: func(m tictactoe.Match) {
			ctx, cancel := newContext()
			defer cancel()
			text := h.renderMatch(ctx, m) + "\n" + h.outcome(ctx, m)
			if _, err := bot.Edit(msg, text); err != nil {
				log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to update match message")
			}
		},
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Invite response failed")
		return alert(c, genericFailure)
	}

	switch {
	case res.Reason == model.ReasonNotParticipant:
		return alert(c, "❌ This challenge is not addressed to you")
	case res.Reason == model.ReasonNoSession:
		_ = c.Edit("⌛ This challenge is no longer open.")
		return c.Respond()
	case res.Reason != model.ReasonNone:
		_ = c.Edit(ReasonText(res.Reason))
		return c.Respond()
	case res.Match == nil:
		_ = c.Edit(fmt.Sprintf("🙅 %s declined the challenge.", DisplayName(sender)))
		return c.Respond()
	}

	_ = c.Edit(h.renderMatch(ctx, *res.Match), BoardMarkup(*res.Match))
	return c.Respond()
}

// HandleMove handles a board button. The payload is match ID, x, y.
func (h *MatchHandler) HandleMove(c tele.Context, payload []string) error {
	sender := c.Sender()
	if sender == nil || len(payload) != 3 {
		return toast(c, "❌ Invalid action")
	}
	matchID, err := strconv.ParseUint(payload[0], 10, 64)
	if err != nil {
		return toast(c, "❌ Invalid action")
	}
	cell, ok := payloadInts(payload[1:], 2)
	if !ok {
		return toast(c, "❌ Invalid action")
	}

	ctx, cancel := newContext()
	defer cancel()

	var res tictactoe.MoveResult
	err = h.locked(ctx, func() error {
		var err error
		res, err = h.engine.Move(ctx, sender.ID, matchID, int(cell[0]), int(cell[1]))
		return err
	}, h.players(sender.ID)...)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Move failed")
		return alert(c, genericFailure)
	}

	switch res.Reason {
	case model.ReasonNone:
	case model.ReasonNotYourTurn, model.ReasonInvalidMove:
		// Rejected moves change nothing and stay silent.
		return c.Respond()
	default:
		return toast(c, ReasonText(res.Reason))
	}

	text := h.renderMatch(ctx, res.Match)
	if res.Match.Phase.Terminal() {
		_ = c.Edit(text + "\n" + h.outcome(ctx, res.Match))
	} else {
		_ = c.Edit(text, BoardMarkup(res.Match))
	}
	return c.Respond()
}

// HandleForfeit handles /forfeit.
func (h *MatchHandler) HandleForfeit(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	var res tictactoe.MoveResult
	err := h.locked(ctx, func() error {
		var err error
		res, err = h.engine.Forfeit(ctx, sender.ID)
		return err
	}, h.players(sender.ID)...)
	if err != nil {
		return fail(c, err, "ttt_forfeit")
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}
	return c.Reply(h.outcome(ctx, res.Match))
}

// players returns the accounts a move by player can settle.
func (h *MatchHandler) players(player int64) []int64 {
	if m, ok := h.engine.Current(player); ok {
		return []int64{m.XPlayer, m.OPlayer}
	}
	return []int64{player}
}

func (h *MatchHandler) outcome(ctx context.Context, m tictactoe.Match) string {
	switch m.Phase {
	case tictactoe.Won:
		text := fmt.Sprintf("🏆 %s wins!", h.name(ctx, m.WinnerID()))
		if m.Forfeited {
			text = fmt.Sprintf("🏳️ %s forfeits. %s", h.name(ctx, m.LoserID()), text)
		}
		if m.Bet > 0 {
			text += fmt.Sprintf(" (+%d)", m.Bet)
		}
		return text
	case tictactoe.Tied:
		return "🤝 It's a tie."
	case tictactoe.TimedOut:
		return "⌛ Time is up, nobody wins."
	default:
		return ""
	}
}

func (h *MatchHandler) renderMatch(ctx context.Context, m tictactoe.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "❌ %s vs ⭕ %s\n", h.name(ctx, m.XPlayer), h.name(ctx, m.OPlayer))
	if m.Bet > 0 {
		fmt.Fprintf(&sb, "💰 Bet: %d\n", m.Bet)
	}
	sb.WriteString(FormatBoard(m.Board))
	if !m.Phase.Terminal() {
		fmt.Fprintf(&sb, "\n👉 %s to move", h.name(ctx, m.PlayerOf(m.Turn)))
	}
	return sb.String()
}

// name looks up the stored username, falling back to the id.
func (h *MatchHandler) name(ctx context.Context, id int64) string {
	res, err := h.accounts.Asset(ctx, id)
	if err != nil || res.Account == nil || res.Account.Username == "" {
		return strconv.FormatInt(id, 10)
	}
	return "@" + res.Account.Username
}

func cellSymbol(m tictactoe.Mark) string {
	switch m {
	case tictactoe.X:
		return "❌"
	case tictactoe.O:
		return "⭕"
	default:
		return "▫️"
	}
}

// FormatBoard renders the board as text.
func FormatBoard(b tictactoe.Board) string {
	var sb strings.Builder
	for y := range tictactoe.Size {
		for x := range tictactoe.Size {
			sb.WriteString(cellSymbol(b.At(x, y)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// BoardMarkup renders the board as buttons. Each button carries its cell.
func BoardMarkup(m tictactoe.Match) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, tictactoe.Size)
	for y := range tictactoe.Size {
		btns := make([]tele.Btn, 0, tictactoe.Size)
		for x := range tictactoe.Size {
			btns = append(btns, markup.Data(cellSymbol(m.Board.At(x, y)), CallbackTTTMove,
				strconv.FormatUint(m.ID, 10), strconv.Itoa(x), strconv.Itoa(y)))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Inline(rows...)
	return markup
}
