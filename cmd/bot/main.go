// Package main is the entry point for the economy game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"economy-game-bot/internal/bot"
	"economy-game-bot/internal/catalog"
	"economy-game-bot/internal/config"
	"economy-game-bot/internal/game"
	"economy-game-bot/internal/game/coinflip"
	"economy-game-bot/internal/game/fishing"
	"economy-game-bot/internal/game/tictactoe"
	"economy-game-bot/internal/media"
	"economy-game-bot/internal/pkg/cache"
	"economy-game-bot/internal/pkg/db"
	"economy-game-bot/internal/pkg/lock"
	"economy-game-bot/internal/pkg/metrics"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/repository"
	"economy-game-bot/internal/service"
	"economy-game-bot/internal/session"
	"economy-game-bot/internal/setting"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := repository.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}
	if err := repository.SeedDefaults(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default data")
	}

	cacheClient, err := cache.New(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer cacheClient.Close()

	collector := metrics.NewCollector()

	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	fishRepo := repository.NewFishRepository(dbPool.Pool)
	settingRepo := repository.NewSettingRepository(dbPool.Pool)

	settings := setting.NewStore(settingRepo)
	settings.OnLoad(collector.RecordSettingsReload)
	if _, err := settings.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	var refresher *setting.Refresher
	if cfg.Settings.Refresh != "" {
		refresher, err = setting.NewRefresher(settings, cfg.Settings.Refresh)
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Settings.Refresh).Msg("Invalid settings refresh schedule")
		}
		refresher.Start()
	}

	rnd := random.New()

	generator, err := catalog.NewGenerator(fishRepo, rnd, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build fish generator")
	}

	fishingSessions := session.NewRegistry("fishing")
	fishingSessions.OnChange(collector.SetActiveSessions)
	matchSessions := session.NewRegistry("tictactoe")
	matchSessions.OnChange(collector.SetActiveSessions)

	accountService := service.NewAccountService(accountRepo, ledgerRepo, settings, rnd, collector)
	transferService := service.NewTransferService(accountService)

	userLock := lock.NewUserLock()

	flipEngine := coinflip.New(accountService, settings, rnd, collector)
	fishEngine := fishing.NewEngine(accountService, generator, settings, session.RealScheduler{}, rnd, fishingSessions, collector)
	matchEngine := tictactoe.NewEngine(accountService, settings, session.RealScheduler{}, rnd, matchSessions, collector)

	gameRegistry := game.NewRegistry()
	for _, g := range []game.Game{flipEngine, fishEngine, matchEngine} {
		if err := gameRegistry.Register(g); err != nil {
			log.Fatal().Err(err).Str("game", g.Name()).Msg("Failed to register game")
		}
	}

	log.Info().
		Int("game_count", gameRegistry.Count()).
		Strs("games", gameRegistry.Commands()).
		Msg("Games registered")

	queue := media.NewQueue(cacheClient, cfg.Media.QueueTTL, cfg.Media.HistoryLimit)

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, collector, map[string]metrics.HealthCheck{
			"postgres": dbPool.HealthCheck,
			"redis":    cacheClient.Ping,
		})
		metricsServer.Start()
	}

	deps := &bot.Dependencies{
		Config:          cfg,
		AccountService:  accountService,
		TransferService: transferService,
		Settings:        settings,
		GameRegistry:    gameRegistry,
		CoinFlip:        flipEngine,
		Fishing:         fishEngine,
		TicTacToe:       matchEngine,
		Media:           queue,
		UserLock:        userLock,
		Metrics:         collector,
	}

	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	fishEngine.Stop()
	matchEngine.Stop()
	if refresher != nil {
		refresher.Stop()
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
		shutdownCancel()
	}
	log.Info().Msg("Bot stopped gracefully")
}
