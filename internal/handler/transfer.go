package handler

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/service"
)

// TransferHandler handles /pay.
type TransferHandler struct {
	base
	transfers *service.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transfers *service.TransferService, locks *lock.UserLock, m *metrics.Collector) *TransferHandler {
	return &TransferHandler{base: base{locks: locks, metrics: m}, transfers: transfers}
}

// HandlePay handles /pay <amount>, sent as a reply to the recipient.
func (h *TransferHandler) HandlePay(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	target := replyTarget(c)
	args := c.Args()
	if target == nil || len(args) < 1 {
		return c.Reply("❌ Usage: reply to the recipient with /pay <amount>")
	}

	// An unparsable amount becomes 0 so the ledger reports it in its usual order.
	amount, _ := strconv.ParseInt(args[0], 10, 64)

	ctx, cancel := newContext()
	defer cancel()

	var res service.TransferResult
	err := h.locked(ctx, func() error {
		var err error
		res, err = h.transfers.Transfer(ctx, sender.ID, target.ID, amount)
		return err
	}, sender.ID, target.ID)
	if err != nil {
		return fail(c, err, "transfer")
	}
	if res.Reason != model.ReasonNone {
		return reject(c, res.Reason)
	}

	return c.Reply(fmt.Sprintf(
		"✅ Sent %d to %s\n💰 Your balance: %d",
		amount, DisplayName(target), res.SenderBalance,
	))
}
