package bot

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/config"
	"economy-game-bot/internal/handler"
	"economy-game-bot/internal/pkg/metrics"
)

// PrivateUsers tracks users who have used the bot in a whitelisted group.
// Those users may also talk to the bot in private chat.
type PrivateUsers struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewPrivateUsers creates an empty set.
func NewPrivateUsers() *PrivateUsers {
	return &PrivateUsers{users: make(map[int64]struct{})}
}

// Allow marks a user as allowed to use private chat.
func (p *PrivateUsers) Allow(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID] = struct{}{}
}

// Allowed checks if a user is allowed to use private chat.
func (p *PrivateUsers) Allowed(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}

// ChatAllowed decides whether an update from chat should be handled.
// Group members of whitelisted chats are remembered for private use.
func ChatAllowed(cfg *config.Config, users *PrivateUsers, chatID, userID int64, private bool) bool {
	if private {
		return users.Allowed(userID) || len(cfg.Whitelist.Chats) == 0
	}
	if !cfg.IsChatAllowed(chatID) {
		return false
	}
	users.Allow(userID)
	return true
}

// WhitelistMiddleware creates a middleware that drops updates from chats
// outside the whitelist.
func WhitelistMiddleware(cfg *config.Config, users *PrivateUsers) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if !ChatAllowed(cfg, users, chat.ID, sender.ID, chat.Type == tele.ChatPrivate) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Int64("user_id", sender.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}
			return next(c)
		}
	}
}

// AdminMiddleware creates a middleware that checks if the user is an admin.
func AdminMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			if !cfg.IsAdmin(sender.ID) {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ This command is for admins only")
			}

			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// Endpoint names an update for metrics: the command without its bot
// suffix, the callback's unique name, or "message".
func Endpoint(c tele.Context) string {
	if cb := c.Callback(); cb != nil {
		unique, _ := handler.CallbackData(cb.Data)
		return unique
	}
	return CommandOf(c.Text())
}

// CommandOf extracts "/pay" from "/pay@my_bot 100".
func CommandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return "message"
	}
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd
}

// MetricsMiddleware records the duration and result of every handler.
func MetricsMiddleware(m *metrics.Collector) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			m.RecordCommand(Endpoint(c), time.Since(start), err)
			return err
		}
	}
}

// Limiter hands out one token bucket per user.
type Limiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*rate.Limiter
}

// NewLimiter creates a per-user limiter. A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Limiter{limit: limit, burst: max(burst, 1), limiters: make(map[int64]*rate.Limiter)}
}

// Allow reports whether userID may issue another update now.
func (l *Limiter) Allow(userID int64) bool {
	return l.get(userID).Allow()
}

// AllowAt is Allow evaluated at t.
func (l *Limiter) AllowAt(userID int64, t time.Time) bool {
	return l.get(userID).AllowN(t, 1)
}

func (l *Limiter) get(userID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = lim
	}
	return lim
}

// RateLimitMiddleware drops updates from users above their rate. Callback
// presses get a toast so the button does not spin.
func RateLimitMiddleware(l *Limiter, m *metrics.Collector) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || l.Allow(sender.ID) {
				return next(c)
			}

			m.IncRateLimited()
			log.Debug().Int64("user_id", sender.ID).Msg("Rate limited")
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "⏳ Slow down"})
			}
			return nil
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
