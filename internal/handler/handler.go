// Package handler provides Telegram bot command and callback handlers.
// Handlers translate a chat update into one engine call and render the
// result; they hold no game state of their own.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
)

const (
	requestTimeout = 10 * time.Second
	lockTimeout    = 5 * time.Second
)

const genericFailure = "❌ Something went wrong, please try again later"

var reasonText = map[model.Reason]string{
	model.ReasonNotRegistered:       "❌ You are not registered. Use /register first",
	model.ReasonTargetNotRegistered: "❌ That user is not registered",
	model.ReasonAlreadyExists:       "❌ You are already registered",
	model.ReasonInvalidAmount:       "❌ Invalid amount",
	model.ReasonInsufficientBalance: "❌ Insufficient balance",
	model.ReasonTargetInsufficient:  "❌ Your opponent cannot cover the bet",
	model.ReasonSelfTarget:          "❌ You cannot target yourself",
	model.ReasonAlreadyInSession:    "❌ You are already in a game",
	model.ReasonTargetInSession:     "❌ That user is already in a game",
	model.ReasonCooldownNotElapsed:  "⏰ Not yet",
	model.ReasonNoSession:           "❌ There is nothing to respond to",
	model.ReasonNotParticipant:      "❌ This is not yours",
	model.ReasonNotYourTurn:         "❌ It is not your turn",
	model.ReasonInvalidMove:         "❌ That cell is taken",
}

// ReasonText renders a rejection for the chat.
func ReasonText(r model.Reason) string {
	if s, ok := reasonText[r]; ok {
		return s
	}
	return genericFailure
}

// base carries what every handler needs.
type base struct {
	locks   *lock.UserLock
	metrics *metrics.Collector
}

func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// locked runs fn holding the per-account locks of ids.
func (b base) locked(ctx context.Context, fn func() error, ids ...int64) error {
	start := time.Now()
	return b.locks.WithLockContext(ctx, lockTimeout, func() error {
		b.metrics.ObserveLockWait(time.Since(start))
		return fn()
	}, ids...)
}

// fail logs an infrastructure error and sends the generic failure message.
func fail(c tele.Context, err error, op string) error {
	ev := log.Error().Err(err).Str("op", op)
	if s := c.Sender(); s != nil {
		ev = ev.Int64("user_id", s.ID)
	}
	if ch := c.Chat(); ch != nil {
		ev = ev.Int64("chat_id", ch.ID)
	}
	ev.Msg("Command failed")

	if errors.Is(err, lock.ErrLockTimeout) {
		return c.Reply("⏳ You have another command in progress")
	}
	return c.Reply(genericFailure)
}

// reject replies with the rejection text and logs it at debug level.
func reject(c tele.Context, r model.Reason) error {
	ev := log.Debug().Str("reason", string(r))
	if s := c.Sender(); s != nil {
		ev = ev.Int64("user_id", s.ID)
	}
	ev.Msg("Command rejected")
	return c.Reply(ReasonText(r))
}

// DisplayName returns a user's @username or, failing that, the first name.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return strconv.FormatInt(u.ID, 10)
}

// replyTarget returns the author of the message being replied to.
func replyTarget(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil {
		return nil
	}
	if msg.ReplyTo.Sender.IsBot {
		return nil
	}
	return msg.ReplyTo.Sender
}

// ParseAmount parses a positive integer argument.
func ParseAmount(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// CallbackData splits telebot callback data into its unique name and payload.
func CallbackData(raw string) (unique string, payload []string) {
	raw = strings.TrimPrefix(raw, "\f")
	parts := strings.Split(raw, "|")
	return parts[0], parts[1:]
}

// payloadInts parses every payload element as an int64.
func payloadInts(payload []string, n int) ([]int64, bool) {
	if len(payload) != n {
		return nil, false
	}
	out := make([]int64, n)
	for i, p := range payload {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Minute)
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", max(m, 1))
}

func toast(c tele.Context, text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func alert(c tele.Context, text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}
