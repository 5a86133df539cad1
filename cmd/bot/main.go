package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cycle_tracker_bot/internal/app"
	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/infra/config"
	idb "cycle_tracker_bot/internal/infra/database"
	"cycle_tracker_bot/internal/infra/logger"
	"cycle_tracker_bot/internal/infra/scheduler"
	"cycle_tracker_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Cycle Tracker Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Get().WithField("component", "main")
	mainLogger.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	refLocation, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		mainLogger.WithError(err).Fatalf("Invalid reference timezone %q", cfg.ReferenceTimezone)
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if err := idb.ApplyMigrations(db); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database migrations")
	}
	mainLogger.Info("Database migrations applied.")

	// Initialize Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	historyRepo := idb.NewPostgresHistoryRepository(db)
	mainLogger.Info("Repositories initialized.")

	// The reference phase table is built once and passed to every consumer.
	referenceTable := cycle.NewReferenceTable()

	// Initialize CycleService
	cycleService := app.NewCycleService(
		userRepo,
		historyRepo,
		referenceTable,
		logger.Get().WithField("component", "cycle_service"),
	)
	mainLogger.Info("Cycle service initialized.")

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Get().WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	// Initialize NotificationService on top of the bot's client adapter
	notificationService := app.NewNotificationService(
		userRepo,
		historyRepo,
		telegram.NewTelebotAdapter(bot),
		referenceTable,
		refLocation,
		cfg.PhaseAdvanceTime,
		logger.Get().WithField("component", "notification_service"),
	)
	mainLogger.Info("Notification service initialized.")

	// Initialize NotificationScheduler
	notifScheduler := scheduler.NewNotificationScheduler(
		notificationService,
		logger.Get().WithField("component", "scheduler"),
		cfg.CronSpecPoll,
	)
	notifScheduler.Start()

	// Register Handlers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	telegram.RegisterHandlers(ctx, bot, cycleService, referenceTable, logger.Get().WithField("component", "handlers"))
	mainLogger.Info("Command handlers registered.")

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	notifScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
