package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/service"
)

// AccountHandler handles registration, balance, ranking, statement and claim commands.
type AccountHandler struct {
	base
	accounts *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, locks *lock.UserLock, m *metrics.Collector) *AccountHandler {
	return &AccountHandler{base: base{locks: locks, metrics: m}, accounts: accounts}
}

func storedName(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// HandleRegister handles /register.
func (h *AccountHandler) HandleRegister(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	reason, err := h.accounts.Register(ctx, sender.ID, storedName(sender))
	if err != nil {
		return fail(c, err, "register")
	}
	if reason != model.ReasonNone {
		return reject(c, reason)
	}
	return c.Reply(fmt.Sprintf("🎉 Welcome %s! Your account is ready. Use /claim to collect your first reward.", DisplayName(sender)))
}

// HandleUnregister handles /unregister. The account and its history are deleted.
func (h *AccountHandler) HandleUnregister(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	var reason model.Reason
	err := h.locked(ctx, func() error {
		var err error
		reason, err = h.accounts.Deregister(ctx, sender.ID)
		return err
	}, sender.ID)
	if err != nil {
		return fail(c, err, "unregister")
	}
	if reason != model.ReasonNone {
		return reject(c, reason)
	}
	return c.Reply("👋 Your account has been deleted")
}

// HandleBalance handles /balance. Replying to someone shows their account.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	subject := sender
	if target := replyTarget(c); target != nil {
		subject = target
	}

	res, err := h.accounts.Asset(ctx, subject.ID)
	if err != nil {
		return fail(c, err, "balance")
	}
	if res.Reason != model.ReasonNone {
		if subject != sender {
			return reject(c, model.ReasonTargetNotRegistered)
		}
		return reject(c, res.Reason)
	}
	if subject == sender {
		h.accounts.TouchUsername(ctx, sender.ID, storedName(sender))
	}
	return c.Reply(FormatAsset(DisplayName(subject), res.Account))
}

// FormatAsset renders an account summary.
func FormatAsset(name string, a *model.Account) string {
	lastClaim := "never"
	if a.LastClaimTime > 0 {
		lastClaim = time.Unix(a.LastClaimTime, 0).UTC().Format("2006-01-02 15:04 MST")
	}
	return fmt.Sprintf(
		"📊 %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💰 Balance: %d\n"+
			"📅 Last claim: %s\n"+
			"🗓 Joined: %s\n"+
			"━━━━━━━━━━━━━━━",
		name, a.Balance, lastClaim, a.CreatedAt.UTC().Format("2006-01-02"),
	)
}

// HandleTop handles /top.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	ctx, cancel := newContext()
	defer cancel()

	accounts, err := h.accounts.Top(ctx, service.DefaultTopLimit)
	if err != nil {
		return fail(c, err, "top")
	}
	return c.Reply(FormatTop(accounts))
}

// FormatTop renders the ranking.
func FormatTop(accounts []*model.Account) string {
	if len(accounts) == 0 {
		return "📊 Nobody is ranked yet"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Top %d\n━━━━━━━━━━━━━━━\n", len(accounts))
	medals := []string{"🥇", "🥈", "🥉"}
	for i, a := range accounts {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		name := a.Username
		if name == "" {
			name = fmt.Sprintf("User%d", a.ID)
		}
		fmt.Fprintf(&sb, "%s %s: %d\n", rank, name, a.Balance)
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

// HandleStatement handles /statement, the caller's latest balance movements.
func (h *AccountHandler) HandleStatement(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := h.accounts.Statement(ctx, sender.ID, service.DefaultStatementLimit)
	if err != nil {
		return fail(c, err, "statement")
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}
	return c.Reply(FormatStatement(res.Entries))
}

// FormatStatement renders ledger entries, newest first.
func FormatStatement(entries []*model.LedgerEntry) string {
	if len(entries) == 0 {
		return "📜 No movements yet"
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent movements\n━━━━━━━━━━━━━━━\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %+d %s", e.CreatedAt.UTC().Format("01-02 15:04"), e.Amount, e.Kind)
		if e.Description != nil && *e.Description != "" {
			fmt.Fprintf(&sb, " (%s)", *e.Description)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

// HandleClaim handles /claim.
func (h *AccountHandler) HandleClaim(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	var res service.ClaimResult
	err := h.locked(ctx, func() error {
		var err error
		res, err = h.accounts.Claim(ctx, sender.ID)
		return err
	}, sender.ID)
	if err != nil {
		return fail(c, err, "claim")
	}

	switch res.Reason {
	case model.ReasonNone:
	case model.ReasonCooldownNotElapsed:
		return c.Reply(fmt.Sprintf("⏰ You can claim again in %s", formatRemaining(res.Remaining)))
	default:
		return reject(c, res.Reason)
	}

	log.Debug().Int64("user_id", sender.ID).Int64("amount", res.Award).Bool("bonus", res.Bonus).Msg("Reward claimed")
	if res.Bonus {
		return c.Reply(fmt.Sprintf("🎰 Jackpot! You received %d.\n💰 Balance: %d", res.Award, res.Balance))
	}
	return c.Reply(fmt.Sprintf("✅ You received %d.\n💰 Balance: %d", res.Award, res.Balance))
}
