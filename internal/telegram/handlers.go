package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vip-pay-bot/internal/config"
	apperrors "vip-pay-bot/internal/errors"
	"vip-pay-bot/internal/limiter"
	"vip-pay-bot/internal/ocr"
	"vip-pay-bot/internal/verification"
)

// Handler processes Telegram updates
type Handler struct {
	bot        *tgbotapi.BotAPI
	workflow   *verification.Workflow
	ocrClient  *ocr.Client
	limiter    *limiter.UserLimiter
	gate       *Gate
	payment    config.PaymentConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHandler creates a new update handler
func NewHandler(
	bot *tgbotapi.BotAPI,
	workflow *verification.Workflow,
	ocrClient *ocr.Client,
	userLimiter *limiter.UserLimiter,
	gate *Gate,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:        bot,
		workflow:   workflow,
		ocrClient:  ocrClient,
		limiter:    userLimiter,
		gate:       gate,
		payment:    cfg.Payment,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// HandleUpdate processes a single update
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.ChatJoinRequest != nil {
		h.handleJoinRequest(update.ChatJoinRequest)
		return
	}

	if update.Message == nil {
		return
	}

	msg := update.Message

	if len(msg.NewChatMembers) > 0 {
		h.handleNewMembers(msg)
		return
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	// Receipt screenshots and token redemption only make sense in private
	if !msg.Chat.IsPrivate() {
		return
	}

	if len(msg.Photo) > 0 {
		h.handleReceipt(ctx, msg)
		return
	}

	if msg.Text != "" {
		h.handleTokenDM(msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "pay":
		h.handlePay(msg)
	case "check":
		h.handleCheck(msg)
	case "history":
		h.handleHistory(msg)
	case "redeem":
		h.handleRedeem(msg)

	case "stats":
		if h.gate.RequireAdmin(msg) {
			h.handleStats(ctx, msg)
		} else {
			h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		}
	case "setprice":
		if h.gate.RequireAdmin(msg) {
			h.handleSetPrice(msg)
		} else {
			h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		}
	case "pendingrequests":
		if h.gate.RequireAdmin(msg) {
			h.handlePendingRequests(msg)
		} else {
			h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		}
	case "approve":
		if h.gate.RequireAdmin(msg) {
			h.handleOverride(ctx, msg, verification.DecisionApproved)
		} else {
			h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		}
	case "decline":
		if h.gate.RequireAdmin(msg) {
			h.handleOverride(ctx, msg, verification.DecisionDeclined)
		} else {
			h.sendText(msg.Chat.ID, apperrors.ErrUnauthorized.UserMsg)
		}

	default:
		h.sendText(msg.Chat.ID, "Unknown command. Use /help for available commands.")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	price, err := h.workflow.Price()
	if err != nil {
		h.logger.Error("failed to read price", "error", err)
		price = h.payment.Amount
	}

	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Welcome to the VIP Payment Verification Bot.\n\n"+
			"How to join the VIP group:\n"+
			"1. Use /pay %d to create your payment request.\n"+
			"2. Send the exact amount to our official account.\n"+
			"3. Include your unique reference in the remark field.\n"+
			"4. Upload your payment receipt screenshot for verification.\n\n"+
			"Verification window: %s\n\n"+
			"Commands:\n"+
			"/pay <amount> - Create a payment request\n"+
			"/check - Check your pending payment\n"+
			"/history - View your payment history\n"+
			"/redeem <token> - Redeem your join token\n"+
			"/help - Show the help message",
		price, h.payment.RequestTimeout))
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	price, err := h.workflow.Price()
	if err != nil {
		price = h.payment.Amount
	}

	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Payment process:\n"+
			"1. Use /pay %d to create a payment request.\n"+
			"2. Send exactly %s to account %s (receiver: %s).\n"+
			"3. Include the reference in the remark field.\n"+
			"4. Upload a receipt screenshot within %s.\n\n"+
			"Screenshot tips:\n"+
			"- Ensure all text is clear and readable\n"+
			"- Include the amount, receiver and reference\n"+
			"- The transaction must show as successful\n"+
			"- Capture the entire receipt\n\n"+
			"Once verified you will receive a one-time join token. Use\n"+
			"/redeem <token> to get your single-use invite link.",
		price, formatNaira(price), h.payment.AccountNumber, h.payment.ReceiverName,
		h.payment.RequestTimeout))
}

func (h *Handler) handlePay(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	price, err := h.workflow.Price()
	if err != nil {
		h.logger.Error("failed to read price", "error", err)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendText(msg.Chat.ID, fmt.Sprintf(
			"Usage: /pay %d\n\nOnly %s is accepted.", price, formatNaira(price)))
		return
	}

	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendText(msg.Chat.ID, fmt.Sprintf("Please provide a valid number (e.g. /pay %d).", price))
		return
	}
	if amount != price {
		h.sendText(msg.Chat.ID, fmt.Sprintf(
			"Only %s is accepted for this service.\n"+
				"You attempted: %s.\n\n"+
				"Please run /pay %d to create your payment request.",
			formatNaira(price), formatNaira(amount), price))
		return
	}

	req, created, err := h.workflow.CreateRequest(userID, msg.From.FirstName)
	if err != nil {
		h.logger.Error("failed to create request", "error", err, "user_id", userID)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}
	if !created {
		h.sendText(msg.Chat.ID, fmt.Sprintf(
			"You already have a pending payment:\n"+
				"Amount: %s\n"+
				"Reference: %s\n\n"+
				"Use /check to view details or wait for it to expire.",
			formatNaira(req.Amount), req.Reference))
		return
	}

	h.sendText(msg.Chat.ID, h.paymentInstructions(req))
}

func (h *Handler) paymentInstructions(req *verification.Request) string {
	return fmt.Sprintf(
		"Payment request created.\n\n"+
			"Amount: %s\n"+
			"Reference: %s\n"+
			"Expires: %s\n\n"+
			"Payment instructions:\n"+
			"1. Send exactly %s to account %s\n"+
			"2. Receiver name must be: %s\n"+
			"3. Include this exact reference in the remark: %s\n"+
			"4. Upload the receipt screenshot here before the request expires\n\n"+
			"The amount must match exactly. Use /check to monitor your status.",
		formatNaira(req.Amount), req.Reference,
		req.ExpiresAt.Format("15:04:05 MST"),
		formatNaira(req.Amount), h.payment.AccountNumber,
		h.payment.ReceiverName, req.Reference)
}

func (h *Handler) handleCheck(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	req, err := h.workflow.ActiveRequest(msg.From.ID)
	if err != nil {
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}

	left := req.TimeLeft(time.Now().UTC()).Round(time.Second)
	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Pending payment\n\n"+
			"Amount: %s\n"+
			"Reference: %s\n"+
			"Status: %s\n"+
			"Time left: %s\n\n"+
			"Upload your receipt screenshot to verify the payment.",
		formatNaira(req.Amount), req.Reference, req.Status, left))
}

func (h *Handler) handleHistory(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	payments, err := h.workflow.History(msg.From.ID, 10)
	if err != nil {
		h.logger.Error("failed to load history", "error", err, "user_id", msg.From.ID)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}
	if len(payments) == 0 {
		h.sendText(msg.Chat.ID, "No payment history found.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Payment history\n\n")
	for _, p := range payments {
		fmt.Fprintf(&sb, "%s - %s\n  %s\n\n",
			formatNaira(p.Amount), p.Reference,
			p.VerifiedAt.Format("2006-01-02 15:04:05"))
	}
	h.sendText(msg.Chat.ID, sb.String())
}

func (h *Handler) handleRedeem(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendText(msg.Chat.ID, "Usage: /redeem <your-token-here>")
		return
	}
	h.redeemToken(msg.Chat.ID, msg.From.ID, args[0])
}

// handleTokenDM treats a bare private message as a token redemption
// attempt, falling back to a hint about receipt uploads.
func (h *Handler) handleTokenDM(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	token := strings.TrimSpace(msg.Text)
	if token == "" {
		return
	}

	if _, err := h.workflow.ValidateToken(token, msg.From.ID); err != nil {
		if errors.Is(err, verification.ErrTokenNotFound) {
			h.sendText(msg.Chat.ID, "Please upload a screenshot of your receipt for verification, or use /pay to create a payment request.")
			return
		}
		h.sendText(msg.Chat.ID, tokenErrorMessage(err))
		return
	}

	h.redeemToken(msg.Chat.ID, msg.From.ID, token)
}

func (h *Handler) redeemToken(chatID, userID int64, token string) {
	if _, err := h.workflow.ValidateToken(token, userID); err != nil {
		h.sendText(chatID, tokenErrorMessage(err))
		return
	}

	// Create the invite before burning the token so a transport hiccup
	// never strands a paid user.
	invite, err := h.createInviteLink()
	if err != nil {
		h.logger.Error("failed to create invite link", "error", err, "user_id", userID)
		h.sendText(chatID, "Token accepted but the invite link could not be created. Please contact the admin.")
		h.notifyAdmin(fmt.Sprintf("Invite link creation failed for user %d: %v", userID, err))
		return
	}

	if err := h.workflow.ConsumeToken(token); err != nil {
		h.logger.Error("failed to mark token used", "error", err, "user_id", userID)
	}

	h.sendText(chatID, fmt.Sprintf(
		"Token accepted. Here is your single-use invite link (expires soon):\n%s", invite))
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, verification.ErrTokenNotFound):
		return "Invalid token. Please ensure you entered the token provided after payment."
	case errors.Is(err, verification.ErrTokenExpired):
		return "This token has expired. Please contact the admin for a new one."
	case errors.Is(err, verification.ErrTokenUsed):
		return "This token has already been used."
	case errors.Is(err, verification.ErrTokenWrongOwner):
		return "This token is not assigned to your account."
	default:
		return apperrors.GetUserMessage(err)
	}
}

func (h *Handler) handleReceipt(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if !h.limiter.TryAcquire(userID) {
		h.sendText(msg.Chat.ID, apperrors.ErrVerificationInProgress.UserMsg)
		return
	}
	defer h.limiter.Release(userID)

	statusMsg, err := h.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, "Processing receipt image... Verifying amount and details."))
	if err != nil {
		h.logger.Error("failed to send status message", "error", err)
	}

	// Telegram sends multiple resolutions; the last is the largest
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := h.downloadPhoto(ctx, photo.FileID)
	if err != nil {
		h.logger.Error("failed to download receipt", "error", err, "user_id", userID)
		h.editOrSend(msg.Chat.ID, statusMsg.MessageID, "Could not download the image. Please try again.")
		return
	}

	h.logger.Info("receipt received", "user_id", userID, "size", len(data))

	outcome, err := h.workflow.SubmitReceipt(ctx, userID, data)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransportFailure) {
			h.notifyAdmin(fmt.Sprintf(
				"Payment verified for user %d (%s) but the join approval call keeps failing. Use /approve %d to finish manually.",
				userID, msg.From.FirstName, userID))
		}
		h.editOrSend(msg.Chat.ID, statusMsg.MessageID, apperrors.GetUserMessage(err))
		return
	}

	if outcome.Decision == verification.DecisionApproved {
		h.editOrSend(msg.Chat.ID, statusMsg.MessageID, fmt.Sprintf(
			"Payment verified and approved.\n\n"+
				"Amount: %s\n"+
				"Reference: %s\n\n"+
				"Welcome to the VIP group. If your join request was pending it has been approved.",
			formatNaira(outcome.Request.Amount), outcome.Request.Reference))

		h.sendText(msg.Chat.ID, fmt.Sprintf(
			"Your personal join token: %s\n"+
				"It is valid for %s. Use /redeem <token> or send me the token to receive your single-use invite link.",
			outcome.JoinToken, h.payment.TokenTTL))

		h.notifyAdmin(fmt.Sprintf(
			"New payment verified.\nUser: %s (%d)\nAmount: %s\nRef: %s",
			msg.From.FirstName, userID,
			formatNaira(outcome.Request.Amount), outcome.Request.Reference))
		return
	}

	var sb strings.Builder
	sb.WriteString("Payment verification failed.\n\n")
	for _, reason := range outcome.Reasons {
		sb.WriteString(reason)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nExpected details:\nAmount: %s\nReference: %s\nReceiver: %s\n",
		formatNaira(outcome.Request.Amount), outcome.Request.Reference, h.payment.ReceiverName)
	if h.payment.AllowResubmit {
		sb.WriteString("\nYou may upload a clearer screenshot until the request expires.")
	}
	h.editOrSend(msg.Chat.ID, statusMsg.MessageID, sb.String())
}

func (h *Handler) handleJoinRequest(jr *tgbotapi.ChatJoinRequest) {
	if !h.gate.IsVIPChat(jr.Chat.ID) {
		return
	}
	userID := jr.From.ID

	req, created, err := h.workflow.CreateRequest(userID, jr.From.FirstName)
	if err != nil {
		h.logger.Error("failed to create request for join request", "error", err, "user_id", userID)
		return
	}

	h.logger.Info("join request received", "user_id", userID, "created", created)

	text := "Your join request is pending payment verification.\n\n" + h.paymentInstructions(req)
	if !created {
		text = "Your join request is pending payment verification. You already have an open payment request:\n\n" + h.paymentInstructions(req)
	}
	// DM may fail when the user never started the bot
	if _, err := h.bot.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		h.logger.Warn("could not DM join requester", "error", err, "user_id", userID)
	}
}

// handleNewMembers enforces the token gate on the VIP group: anyone who
// joined without redeeming a token is removed (kick then unban, so they can
// rejoin once verified).
func (h *Handler) handleNewMembers(msg *tgbotapi.Message) {
	if !h.gate.IsVIPChat(msg.Chat.ID) {
		return
	}

	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}

		used, err := h.workflow.HasUsedToken(member.ID)
		if err != nil {
			h.logger.Error("failed to check token status", "error", err, "user_id", member.ID)
			continue
		}
		if used {
			h.sendText(msg.Chat.ID, fmt.Sprintf("Welcome %s! Your token has been verified.", member.FirstName))
			continue
		}

		if _, err := h.bot.Send(tgbotapi.NewMessage(member.ID,
			"You must verify payment before joining the VIP group. Use /pay to create a payment request, then send me your join token.")); err != nil {
			h.logger.Debug("could not DM unverified member", "error", err, "user_id", member.ID)
		}

		memberCfg := tgbotapi.ChatMemberConfig{ChatID: msg.Chat.ID, UserID: member.ID}
		if _, err := h.bot.Request(tgbotapi.BanChatMemberConfig{ChatMemberConfig: memberCfg}); err != nil {
			h.logger.Error("could not remove unverified member", "error", err, "user_id", member.ID)
			continue
		}
		if _, err := h.bot.Request(tgbotapi.UnbanChatMemberConfig{ChatMemberConfig: memberCfg}); err != nil {
			h.logger.Error("could not unban removed member", "error", err, "user_id", member.ID)
		}
		h.sendText(msg.Chat.ID, fmt.Sprintf(
			"%s was removed. DM the bot your join token to get a rejoin link.", member.FirstName))
	}
}

func (h *Handler) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := h.workflow.Stats()
	if err != nil {
		h.logger.Error("failed to load stats", "error", err)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}
	price, err := h.workflow.Price()
	if err != nil {
		price = h.payment.Amount
	}

	ocrStatus := "online"
	if err := h.ocrClient.CheckHealth(ctx); err != nil {
		ocrStatus = fmt.Sprintf("offline (%v)", err)
	}

	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Bot statistics\n\n"+
			"Pending payments: %d\n"+
			"Verified payments: %d\n"+
			"Total processed: %s\n\n"+
			"Current price: %s\n"+
			"Request timeout: %s\n"+
			"Active verifications: %d\n"+
			"OCR service: %s",
		stats.PendingCount, stats.VerifiedCount, formatNaira(stats.TotalAmount),
		formatNaira(price), h.payment.RequestTimeout,
		h.limiter.ActiveCount(), ocrStatus))
}

func (h *Handler) handleSetPrice(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendText(msg.Chat.ID, "Usage: /setprice <amount>")
		return
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || amount <= 0 {
		h.sendText(msg.Chat.ID, "Please provide a positive whole amount (e.g. /setprice 2000).")
		return
	}

	if err := h.workflow.SetPrice(amount); err != nil {
		h.logger.Error("failed to set price", "error", err)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}

	h.sendText(msg.Chat.ID, fmt.Sprintf(
		"Price updated to %s. Requests already in flight keep the amount they were created with.",
		formatNaira(amount)))
}

func (h *Handler) handlePendingRequests(msg *tgbotapi.Message) {
	reqs, err := h.workflow.PendingRequests()
	if err != nil {
		h.logger.Error("failed to list pending requests", "error", err)
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}
	if len(reqs) == 0 {
		h.sendText(msg.Chat.ID, "No pending requests.")
		return
	}

	now := time.Now().UTC()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pending requests (%d)\n\n", len(reqs))
	for _, r := range reqs {
		fmt.Fprintf(&sb, "%s (%d)\n  %s, %s, %s left [%s]\n\n",
			r.Username, r.UserID,
			formatNaira(r.Amount), r.Reference,
			r.TimeLeft(now).Round(time.Second), r.Status)
	}
	h.sendText(msg.Chat.ID, sb.String())
}

func (h *Handler) handleOverride(ctx context.Context, msg *tgbotapi.Message, decision verification.Decision) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		h.sendText(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
		return
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendText(msg.Chat.ID, "Please provide a numeric user ID.")
		return
	}

	outcome, err := h.workflow.AdminOverride(ctx, userID, decision)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransportFailure) {
			h.sendText(msg.Chat.ID, fmt.Sprintf(
				"The join approval call for user %d keeps failing; the request is still marked verifying. Try again shortly.", userID))
			return
		}
		h.sendText(msg.Chat.ID, apperrors.GetUserMessage(err))
		return
	}

	if outcome.Decision == verification.DecisionApproved {
		h.sendText(msg.Chat.ID, fmt.Sprintf("User %d approved.", userID))
		if _, err := h.bot.Send(tgbotapi.NewMessage(userID, fmt.Sprintf(
			"Your payment was approved by an admin.\n"+
				"Your personal join token: %s\n"+
				"Use /redeem <token> to receive your single-use invite link.",
			outcome.JoinToken))); err != nil {
			h.logger.Warn("could not DM approved user", "error", err, "user_id", userID)
		}
		return
	}

	h.sendText(msg.Chat.ID, fmt.Sprintf("User %d declined.", userID))
	if _, err := h.bot.Send(tgbotapi.NewMessage(userID,
		"Your payment request was declined by an admin.")); err != nil {
		h.logger.Warn("could not DM declined user", "error", err, "user_id", userID)
	}
}

// NotifyExpired tells a user their request expired without a verified
// payment. Fire and forget.
func (h *Handler) NotifyExpired(req verification.Request) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(req.UserID, fmt.Sprintf(
		"Your payment request %s expired without a verified payment. Use /pay to create a new one.",
		req.Reference))); err != nil {
		h.logger.Debug("could not DM expired user", "error", err, "user_id", req.UserID)
	}
}

func (h *Handler) downloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	file, err := h.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", file.Link(h.bot.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file server returned %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (h *Handler) createInviteLink() (string, error) {
	resp, err := h.bot.Request(tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: h.gate.VIPChatID()},
		ExpireDate:  int(time.Now().Add(h.payment.InviteTTL).Unix()),
		MemberLimit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("unmarshal invite link: %w", err)
	}
	return link.InviteLink, nil
}

func (h *Handler) notifyAdmin(text string) {
	adminID := h.gate.AdminUserID()
	if adminID == 0 {
		return
	}
	if _, err := h.bot.Send(tgbotapi.NewMessage(adminID, text)); err != nil {
		h.logger.Error("failed to notify admin", "error", err)
	}
}

func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Error("failed to send message", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) editOrSend(chatID int64, messageID int, text string) {
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		if _, err := h.bot.Send(edit); err == nil {
			return
		}
	}
	h.sendText(chatID, text)
}

// formatNaira renders an amount with thousands separators, e.g. ₦2,000.
func formatNaira(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}

	if neg {
		return "-₦" + sb.String()
	}
	return "₦" + sb.String()
}
