package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// JoinTransport issues join-request approvals and declines against the
// Telegram Bot API. It satisfies verification.Transport.
type JoinTransport struct {
	api       *tgbotapi.BotAPI
	vipChatID int64
	logger    *slog.Logger
}

// NewJoinTransport creates a transport bound to the VIP chat
func NewJoinTransport(api *tgbotapi.BotAPI, vipChatID int64, logger *slog.Logger) *JoinTransport {
	return &JoinTransport{
		api:       api,
		vipChatID: vipChatID,
		logger:    logger,
	}
}

// ApproveJoinRequest approves a user's pending join request for the VIP
// chat. A user who paid without ever knocking on the group has no join
// request to approve; that case is not a fault, the join token covers it.
func (t *JoinTransport) ApproveJoinRequest(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.api.Request(tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: t.vipChatID},
		UserID:     userID,
	})
	if err != nil {
		if isMissingJoinRequest(err) {
			t.logger.Debug("no join request to approve", "user_id", userID)
			return nil
		}
		return fmt.Errorf("approve join request: %w", err)
	}

	t.logger.Info("join request approved", "user_id", userID)
	return nil
}

// DeclineJoinRequest declines a user's pending join request.
func (t *JoinTransport) DeclineJoinRequest(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.api.Request(tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: t.vipChatID},
		UserID:     userID,
	})
	if err != nil {
		if isMissingJoinRequest(err) {
			t.logger.Debug("no join request to decline", "user_id", userID)
			return nil
		}
		return fmt.Errorf("decline join request: %w", err)
	}

	t.logger.Info("join request declined", "user_id", userID)
	return nil
}

func isMissingJoinRequest(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "HIDE_REQUESTER_MISSING") ||
		strings.Contains(msg, "USER_ALREADY_PARTICIPANT")
}
