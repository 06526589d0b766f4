package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/service"
	"economy-game-bot/internal/setting"
)

// AdminHandler handles admin-only commands. Access is checked by the
// admin middleware before any of these run.
type AdminHandler struct {
	base
	accounts *service.AccountService
	settings *setting.Store
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, settings *setting.Store, locks *lock.UserLock, m *metrics.Collector) *AdminHandler {
	return &AdminHandler{base: base{locks: locks, metrics: m}, accounts: accounts, settings: settings}
}

// HandleReload handles /reload: the settings table is read again and
// published if complete.
func (h *AdminHandler) HandleReload(c tele.Context) error {
	ctx, cancel := newContext()
	defer cancel()

	if err := h.settings.Reload(ctx); err != nil {
		log.Error().Err(err).Int64("user_id", c.Sender().ID).Msg("Settings reload failed")
		return c.Reply("❌ Reload failed, the previous settings stay active:\n" + err.Error())
	}
	log.Info().Int64("user_id", c.Sender().ID).Msg("Settings reloaded")
	return c.Reply("✅ Settings reloaded")
}

// HandleAdminAdd handles /admin_add <user_id> <delta>. delta may be negative.
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, "admin_add", h.accounts.AdminAdd)
}

// HandleAdminSet handles /admin_set <user_id> <balance>.
func (h *AdminHandler) HandleAdminSet(c tele.Context) error {
	return h.adjust(c, "admin_set", h.accounts.AdminSet)
}

type balanceOp func(ctx context.Context, id int64, v int64) (service.BalanceResult, error)

func (h *AdminHandler) adjust(c tele.Context, op string, apply balanceOp) error {
	targetID, value, ok := parseAdminArgs(c.Args())
	if !ok {
		return c.Reply(fmt.Sprintf("❌ Usage: /%s <user_id> <amount>", op))
	}
	ctx, cancel := newContext()
	defer cancel()

	var res service.BalanceResult
	err := h.locked(ctx, func() error {
		var err error
		res, err = apply(ctx, targetID, value)
		return err
	}, targetID)
	if err != nil {
		return fail(c, err, op)
	}
	if res.Reason == model.ReasonNotRegistered {
		return reject(c, model.ReasonTargetNotRegistered)
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}

	log.Info().
		Int64("user_id", c.Sender().ID).
		Int64("target_id", targetID).
		Int64("amount", value).
		Str("operation", op).
		Msg("Admin operation executed")

	return c.Reply(fmt.Sprintf("✅ Done\n👤 User: %d\n💰 Balance: %d", targetID, res.Balance))
}

func parseAdminArgs(args []string) (id int64, value int64, ok bool) {
	if len(args) < 2 {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	value, err = strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return id, value, true
}
