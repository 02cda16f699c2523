// Package dashboard is the Telegram front-end: X-ray grading, the risk
// questionnaire and account sign up / log in over chat.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/osteo-care/internal/auth"
	"github.com/Brownie44l1/osteo-care/internal/diagnosis"
)

const (
	msgStart = `Welcome to Osteo Care.
An AI-based platform for knee osteoarthritis prediction and risk assessment.

Send a knee X-ray (photo or PNG/JPEG file) to get a severity grade.

Commands:
/questionnaire - risk assessment
/signup Full Name; email; password - create an account
/login email password - log in
/about - about Osteo Care
/cancel - stop the current questionnaire`

	msgHelp = `How to use the bot:

1. Send a clear knee X-ray as a photo or as a PNG/JPEG file.
2. The bot replies with the predicted severity.

Or run /questionnaire and answer six Yes/No questions for a risk level.`

	msgAbout = "This platform provides AI-based assessment for knee osteoarthritis risk and severity based on X-ray images and questionnaires."

	msgUnknownCommand  = "Unknown command. Use /help."
	msgSendImage       = "Send a knee X-ray image, or /questionnaire for a risk assessment."
	msgCancelled       = "Cancelled. Send /questionnaire to start again."
	msgNothingToCancel = "Nothing to cancel."
	msgSignupUsage     = "Usage: /signup Full Name; email; password"
	msgLoginUsage      = "Usage: /login email password"
	msgRegistered      = "Registration successful! Please log in."
	msgEmailTaken      = "Email is already registered."
	msgSignupFailed    = "Registration failed, please try again."
	msgPasswordTooLong = "Password is too long."
	msgInvalidLogin    = "Invalid email or password."
	msgInvalidFileType = "Invalid file type. Send a PNG or JPEG image."
	msgInvalidImage    = "Invalid image format. Supported: JPEG, PNG"
	msgPredictionError = "Error occurred during prediction"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Options configures a Bot.
type Options struct {
	Logger *slog.Logger
	// HTTPClient downloads files from Telegram.
	HTTPClient *http.Client
	// MaxDownloadBytes caps image downloads.
	MaxDownloadBytes int64
}

// Bot answers Telegram updates.
type Bot struct {
	api    API
	diag   *diagnosis.Service
	users  *auth.Service
	chats  *conversations
	logger *slog.Logger
	client *http.Client

	maxDownload int64
}

// NewBot wires a Bot. diag should report dashboard severity wording.
func NewBot(api API, diag *diagnosis.Service, users *auth.Service, opts Options) *Bot {
	b := &Bot{
		api:         api,
		diag:        diag,
		users:       users,
		chats:       newConversations(),
		logger:      opts.Logger,
		client:      opts.HTTPClient,
		maxDownload: opts.MaxDownloadBytes,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: 30 * time.Second}
	}
	if b.maxDownload <= 0 {
		// Bot API file download limit.
		b.maxDownload = 20 << 20
	}
	return b
}

// Run long-polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		b.handleCallback(ctx, upd.CallbackQuery)
		return
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	default:
		b.send(msg.Chat.ID, msgSendImage)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		text := msgStart
		if user := b.chats.get(chatID).user; user != "" {
			text = "Welcome back, " + user + "!\n\n" + text
		}
		b.send(chatID, text)
	case "help":
		b.send(chatID, msgHelp)
	case "about":
		b.send(chatID, msgAbout)
	case "signup":
		b.signup(ctx, chatID, msg.CommandArguments())
	case "login":
		b.login(ctx, chatID, msg.CommandArguments())
	case "questionnaire":
		b.startQuestionnaire(chatID)
	case "cancel":
		var active bool
		b.chats.update(chatID, func(c *conversation) {
			active = c.step != idle
			c.step = idle
		})
		if !active {
			b.send(chatID, msgNothingToCancel)
			return
		}
		b.send(chatID, msgCancelled)
	default:
		b.send(chatID, msgUnknownCommand)
	}
}

func (b *Bot) signup(ctx context.Context, chatID int64, args string) {
	parts := strings.Split(args, ";")
	if len(parts) != 3 {
		b.send(chatID, msgSignupUsage)
		return
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	_, err := b.users.Register(ctx, parts[0], parts[1], parts[2])
	switch {
	case err == nil:
		b.send(chatID, msgRegistered)
	case errors.Is(err, auth.ErrEmailTaken):
		b.send(chatID, msgEmailTaken)
	case errors.Is(err, auth.ErrMissingField):
		b.send(chatID, msgSignupUsage)
	case errors.Is(err, auth.ErrPasswordTooLong):
		b.send(chatID, msgPasswordTooLong)
	default:
		b.logger.ErrorContext(ctx, "register user", "chat_id", chatID, "error", err)
		b.send(chatID, msgSignupFailed)
	}
}

func (b *Bot) login(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.send(chatID, msgLoginUsage)
		return
	}

	u, err := b.users.Authenticate(ctx, fields[0], fields[1])
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			b.logger.ErrorContext(ctx, "authenticate user", "chat_id", chatID, "error", err)
		}
		b.send(chatID, msgInvalidLogin)
		return
	}

	b.chats.update(chatID, func(c *conversation) { c.user = u.FullName })
	b.send(chatID, "Welcome "+u.FullName+"!")
}

func (b *Bot) send(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message", "chat_id", msg.ChatID, "error", err)
	}
}
