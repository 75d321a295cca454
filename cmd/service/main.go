// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-commit-notifier/internal/api"
	"github-commit-notifier/internal/bot"
	"github-commit-notifier/internal/config"
	"github-commit-notifier/internal/github"
	"github-commit-notifier/internal/notify"
	"github-commit-notifier/internal/report"
	"github-commit-notifier/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	q := store.New(dbpool)

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	logger.Info("Telegram bot authorized", "username", botAPI.Self.UserName)

	dispatcher := notify.NewDispatcher(bot.NewSender(botAPI), logger)
	ghClient := github.NewClient(cfg.GithubToken, logger)
	commands := bot.NewCommands(q, ghClient, logger)
	botHandler := bot.NewHandler(botAPI, commands, logger)
	aggregator := report.NewAggregator(q, dispatcher, logger, cfg.ReportLocation)

	// 6. Start the bot update loop, the weekly scheduler and the webhook server
	go botHandler.Run(ctx)

	cronRunner, err := report.Schedule(ctx, aggregator, cfg.ReportSchedule)
	if err != nil {
		return fmt.Errorf("failed to schedule weekly report: %w", err)
	}
	cronRunner.Start()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(q, dispatcher, cfg.WebhookSecret, logger),
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Webhook server listening", "addr", cfg.ListenAddr)
		srvErr <- srv.ListenAndServe()
	}()

	// 7. Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Exiting.")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Webhook server shutdown error", "error", err)
	}
	<-cronRunner.Stop().Done()

	return nil
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
