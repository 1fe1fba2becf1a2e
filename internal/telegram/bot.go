package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vip-pay-bot/internal/config"
	"vip-pay-bot/internal/limiter"
	"vip-pay-bot/internal/ocr"
	"vip-pay-bot/internal/verification"
)

// Bot represents the Telegram bot
type Bot struct {
	api      *tgbotapi.BotAPI
	handler  *Handler
	workflow *verification.Workflow
	cfg      config.TelegramConfig
	sweep    time.Duration
	logger   *slog.Logger

	// Track active update processing
	activeUpdates sync.WaitGroup
}

// NewBot creates a new Telegram bot around an already-connected API. The
// API client is built by the caller because the verification workflow needs
// a transport on the same connection before the bot exists.
func NewBot(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	workflow *verification.Workflow,
	ocrClient *ocr.Client,
	userLimiter *limiter.UserLimiter,
	logger *slog.Logger,
) *Bot {
	gate := NewGate(cfg.Telegram.AdminUserID, cfg.Telegram.VIPChatID, logger)
	handler := NewHandler(api, workflow, ocrClient, userLimiter, gate, cfg, logger)

	return &Bot{
		api:      api,
		handler:  handler,
		workflow: workflow,
		cfg:      cfg.Telegram,
		sweep:    cfg.Payment.SweepInterval,
		logger:   logger,
	}
}

// Run starts the bot and blocks until context is cancelled
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollingTimeout
	// chat_join_request is not delivered unless asked for explicitly
	u.AllowedUpdates = []string{"message", "chat_join_request"}

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping bot, waiting for active updates")

			// Stop receiving updates
			b.api.StopReceivingUpdates()

			// Wait for active updates with timeout
			done := make(chan struct{})
			go func() {
				b.activeUpdates.Wait()
				close(done)
			}()

			select {
			case <-done:
				b.logger.Info("all active updates completed")
			case <-time.After(25 * time.Second):
				b.logger.Warn("some updates may not have completed")
			}

			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				return nil
			}

			// Process update in goroutine
			b.activeUpdates.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.activeUpdates.Done()

				// Create request context with timeout
				reqCtx, cancel := context.WithTimeout(ctx, b.cfg.RequestTimeout)
				defer cancel()

				b.handler.HandleUpdate(reqCtx, upd)
			}(update)
		}
	}
}

// RunSweeper periodically expires stale payment requests and notifies the
// affected users. Blocks until the context is cancelled.
func (b *Bot) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(b.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, err := b.workflow.SweepExpired(time.Now().UTC())
			if err != nil {
				b.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			for _, req := range expired {
				b.handler.NotifyExpired(req)
			}
		}
	}
}

// GetBotInfo returns information about the bot
func (b *Bot) GetBotInfo() tgbotapi.User {
	return b.api.Self
}
