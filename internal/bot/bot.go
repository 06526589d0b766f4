// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/config"
	"economy-game-bot/internal/game"
	"economy-game-bot/internal/game/coinflip"
	"economy-game-bot/internal/game/fishing"
	"economy-game-bot/internal/game/tictactoe"
	"economy-game-bot/internal/handler"
	"economy-game-bot/internal/media"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/service"
	"economy-game-bot/internal/setting"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot          *tele.Bot
	cfg          *config.Config
	privateUsers *PrivateUsers
	limiter      *Limiter
	metrics      *metrics.Collector

	accountHandler  *handler.AccountHandler
	transferHandler *handler.TransferHandler
	adminHandler    *handler.AdminHandler
	gameHandler     *handler.GameHandler
	matchHandler    *handler.MatchHandler
	mediaHandler    *handler.MediaHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config          *config.Config
	AccountService  *service.AccountService
	TransferService *service.TransferService
	Settings        *setting.Store
	GameRegistry    *game.Registry
	CoinFlip        *coinflip.Engine
	Fishing         *fishing.Engine
	TicTacToe       *tictactoe.Engine
	Media           *media.Queue
	UserLock        *lock.UserLock
	Metrics         *metrics.Collector
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, errors.New("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Unhandled bot error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(teleBot, deps)
	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

func newBot(teleBot *tele.Bot, deps *Dependencies) *Bot {
	m := deps.Metrics
	return &Bot{
		bot:          teleBot,
		cfg:          deps.Config,
		privateUsers: NewPrivateUsers(),
		limiter:      NewLimiter(deps.Config.RateLimit.PerSecond, deps.Config.RateLimit.Burst),
		metrics:      m,

		accountHandler:  handler.NewAccountHandler(deps.AccountService, deps.UserLock, m),
		transferHandler: handler.NewTransferHandler(deps.TransferService, deps.UserLock, m),
		adminHandler:    handler.NewAdminHandler(deps.AccountService, deps.Settings, deps.UserLock, m),
		gameHandler:     handler.NewGameHandler(deps.GameRegistry, deps.CoinFlip, deps.Fishing, deps.UserLock, m),
		matchHandler:    handler.NewMatchHandler(deps.AccountService, deps.TicTacToe, deps.UserLock, m),
		mediaHandler:    handler.NewMediaHandler(deps.Media),
	}
}

// registerMiddleware registers all middleware. Recovery is outermost so a
// panic anywhere below it is reported.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.privateUsers))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(MetricsMiddleware(b.metrics))
	b.bot.Use(RateLimitMiddleware(b.limiter, b.metrics))
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/register", b.accountHandler.HandleRegister)
	b.bot.Handle("/unregister", b.accountHandler.HandleUnregister)
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/claim", b.accountHandler.HandleClaim)
	b.bot.Handle("/statement", b.accountHandler.HandleStatement)

	b.bot.Handle("/pay", b.transferHandler.HandlePay)

	b.bot.Handle("/games", b.gameHandler.HandleGames)
	b.bot.Handle("/flip", b.gameHandler.HandleFlip)
	b.bot.Handle("/fish", b.gameHandler.HandleFish)
	b.bot.Handle("/ttt", b.matchHandler.HandleInvite)
	b.bot.Handle("/forfeit", b.matchHandler.HandleForfeit)

	b.bot.Handle("/queue", b.mediaHandler.HandleQueue)
	b.bot.Handle("/history", b.mediaHandler.HandleHistory)
	b.bot.Handle("/enqueue", b.mediaHandler.HandleEnqueue)
	b.bot.Handle("/skip", b.mediaHandler.HandleSkip)
	b.bot.Handle("/remove", b.mediaHandler.HandleRemove)
	b.bot.Handle("/move", b.mediaHandler.HandleMove)
	b.bot.Handle("/clearqueue", b.mediaHandler.HandleClear)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/reload", b.adminHandler.HandleReload)
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_set", b.adminHandler.HandleAdminSet)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) handleStart(c tele.Context) error {
	return c.Reply("👋 Hi! Use /register to open an account and /games to see what you can play.")
}

// handleCallback routes button presses by their unique name.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	unique, payload := handler.CallbackData(callback.Data)
	log.Debug().Str("callback", unique).Strs("payload", payload).Msg("Callback received")

	switch unique {
	case handler.CallbackFishCatch:
		return b.gameHandler.HandleFishCatch(c, payload)
	case handler.CallbackFlipPick:
		return b.gameHandler.HandleFlipPick(c, payload)
	case handler.CallbackTTTAccept:
		return b.matchHandler.HandleRespond(c, payload, true)
	case handler.CallbackTTTDecline:
		return b.matchHandler.HandleRespond(c, payload, false)
	case handler.CallbackTTTMove:
		return b.matchHandler.HandleMove(c, payload)
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown action"})
	}
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
