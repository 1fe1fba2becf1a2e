package telegram

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gate decides who may use the admin command surface and which chat the
// bot guards.
type Gate struct {
	adminUserID int64
	vipChatID   int64
	logger      *slog.Logger
}

// NewGate creates an access gate
func NewGate(adminUserID, vipChatID int64, logger *slog.Logger) *Gate {
	return &Gate{
		adminUserID: adminUserID,
		vipChatID:   vipChatID,
		logger:      logger,
	}
}

// IsAdmin checks if a user is the admin
func (g *Gate) IsAdmin(userID int64) bool {
	return g.adminUserID != 0 && userID == g.adminUserID
}

// AdminUserID returns the admin user ID
func (g *Gate) AdminUserID() int64 {
	return g.adminUserID
}

// IsVIPChat checks if a chat is the guarded VIP group
func (g *Gate) IsVIPChat(chatID int64) bool {
	return g.vipChatID != 0 && chatID == g.vipChatID
}

// VIPChatID returns the guarded chat ID
func (g *Gate) VIPChatID() int64 {
	return g.vipChatID
}

// RequireAdmin validates that the message sender is the admin, logging the
// attempt otherwise.
func (g *Gate) RequireAdmin(msg *tgbotapi.Message) bool {
	if msg.From == nil {
		return false
	}
	if g.IsAdmin(msg.From.ID) {
		return true
	}
	g.logger.Warn("unauthorized admin command",
		"user_id", msg.From.ID,
		"username", msg.From.UserName,
		"command", msg.Command(),
	)
	return false
}
