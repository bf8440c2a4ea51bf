package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"telegram-bot-platform/internal/application"
	"telegram-bot-platform/internal/config"
	"telegram-bot-platform/internal/domain/ports/adapter"
	"telegram-bot-platform/internal/infra/adapters/mail"
	tele "telegram-bot-platform/internal/infra/adapters/telegram"
	pg "telegram-bot-platform/internal/infra/db/postgres"
	"telegram-bot-platform/internal/infra/logging"
	"telegram-bot-platform/internal/infra/metrics"
	red "telegram-bot-platform/internal/infra/redis"
	"telegram-bot-platform/internal/infra/sched"
	"telegram-bot-platform/internal/infra/web"
	"telegram-bot-platform/internal/infra/worker"
	"telegram-bot-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop telegram/mail adapters)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	directoryRepo := pg.NewPostgresDirectoryRepo(pool)
	interactionRepo := pg.NewPostgresInteractionRepo(pool)
	broadcastRepo := pg.NewPostgresBroadcastRepo(pool)
	accountRepo := pg.NewPostgresAccountRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Worker pool ----
	workerPool := worker.NewPool(cfg.Bot.Workers, logger)
	workerPool.Start(ctx)
	defer workerPool.Stop()

	// ---- Mailer ----
	var mailer adapter.Mailer
	if cfg.Runtime.Dev || cfg.Mail.Host == "" {
		mailer = mail.NewNoopMailer(logger)
	} else {
		mailer = mail.NewSMTPMailer(&cfg.Mail, logger)
	}

	// ---- Use cases ----
	directoryUC := usecase.NewDirectoryUseCase(directoryRepo, logger)
	interactionUC := usecase.NewInteractionUseCase(interactionRepo, logger)
	statsUC := usecase.NewStatsUseCase(directoryRepo, interactionRepo, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, directoryRepo, txManager, mailer, workerPool, logger)

	// The facade's broadcast slot is filled below: the broadcast engine sends
	// through the bot adapter, and the bot adapter dispatches to the facade.
	facade := application.NewBotFacade(directoryUC, interactionUC, statsUC, nil)

	// ---- Telegram ----
	var bot adapter.TelegramBotAdapter
	if cfg.Runtime.Dev {
		bot = tele.NewNoopBotAdapter(logger)
	} else {
		realBot, err := tele.NewRealBotAdapter(&cfg.Bot, facade, rateLimiter, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		if strings.ToLower(cfg.Bot.Mode) != "polling" && cfg.Bot.Mode != "" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented; falling back to polling")
		}
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		defer realBot.StopPolling()
		bot = realBot
	}

	broadcastUC := usecase.NewBroadcastUseCase(
		broadcastRepo, directoryRepo, bot, workerPool, locker,
		cfg.Broadcast.SendTimeout, cfg.Broadcast.RatePerSec, logger,
	)
	facade.BroadcastUC = broadcastUC

	// ---- Web API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, cfg.Web.AccessTokenTTL, cfg.Web.RefreshTokenTTL)
	server := web.NewServer(directoryUC, statsUC, broadcastUC, accountUC, auth, cfg.Web.Port, logger)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("web server stopped")
		}
	}()

	// ---- Scheduled workers ----
	retention := time.Duration(cfg.Retention.InteractionDays) * 24 * time.Hour
	cleanup := sched.NewCleanupWorker(cfg.Retention.CleanupInterval, retention, interactionUC, logger)
	go func() { _ = cleanup.Run(ctx) }()

	report := sched.NewReportWorker(cfg.Retention.ReportInterval, statsUC, logger)
	go func() { _ = report.Run(ctx) }()

	reconciler := sched.NewBroadcastReconciler(time.Minute, cfg.Broadcast.StaleTimeout, broadcastUC, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
