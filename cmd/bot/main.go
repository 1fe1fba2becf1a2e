package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vip-pay-bot/internal/config"
	"vip-pay-bot/internal/image"
	"vip-pay-bot/internal/limiter"
	"vip-pay-bot/internal/ocr"
	"vip-pay-bot/internal/telegram"
	"vip-pay-bot/internal/verification"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	var logLevel slog.Level
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if cfg.Logging.JSONFormat {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Create root context with cancellation
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// WaitGroup for tracking active goroutines
	var wg sync.WaitGroup

	// Open the request store
	store, err := verification.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize OCR client and receipt preprocessor
	ocrClient := ocr.NewClient(cfg.OCR, logger)
	processor := image.NewProcessor(cfg.Image.ContrastFactor)

	// Initialize user limiter
	userLimiter := limiter.NewUserLimiter(cfg.OCR.MaxConcurrent)

	// Connect to Telegram; the workflow needs the transport before the bot
	// can be assembled
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error("failed to create telegram api", "error", err)
		os.Exit(1)
	}
	transport := telegram.NewJoinTransport(api, cfg.Telegram.VIPChatID, logger)

	// Initialize verification workflow
	workflow := verification.NewWorkflow(store, ocrClient, processor, transport, cfg.Payment, logger)

	// Initialize Telegram bot
	bot := telegram.NewBot(api, cfg, workflow, ocrClient, userLimiter, logger)

	// Start bot in goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.Run(rootCtx); err != nil && err != context.Canceled {
			logger.Error("bot error", "error", err)
		}
	}()

	// Start expiry sweeper in goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bot.RunSweeper(rootCtx); err != nil && err != context.Canceled {
			logger.Error("sweeper error", "error", err)
		}
	}()

	logger.Info("bot started",
		"vip_chat_id", cfg.Telegram.VIPChatID,
		"ocr_url", cfg.OCR.BaseURL,
		"request_timeout", cfg.Payment.RequestTimeout,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig)

	// Cancel root context to signal all goroutines
	rootCancel()

	// Wait for graceful shutdown with timeout
	shutdownTimeout := 30 * time.Second
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout exceeded, forcing exit")
	}
}
