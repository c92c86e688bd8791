package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"twitch_notify/internal/config"
	"twitch_notify/internal/model"
	"twitch_notify/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChannelNotifier is told about every channel registration change.
type ChannelNotifier interface {
	Notify(ctx context.Context, change model.ChannelChange) error
}

// TriggerCache is the compiled-trigger cache used by the match engine.
type TriggerCache interface {
	Invalidate(channel string)
	InvalidateAll()
}

// Bot is the Telegram bot that handles user commands and delivers
// notifications.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	cfg      *config.Config
	subs     ChannelNotifier
	triggers TriggerCache
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and config.
func New(token string, store storage.Storage, cfg *config.Config, subs ChannelNotifier, triggers TriggerCache, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		store:    store,
		cfg:      cfg,
		subs:     subs,
		triggers: triggers,
		log:      log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || update.Message.From == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Deliver sends a highlighted chat message to the recipient's chat.
func (b *Bot) Deliver(ctx context.Context, n model.NotificationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.RecipientID, FormatNotification(n.Message))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send notification to %d: %w", n.RecipientID, err)
	}
	return nil
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "about":
		b.handleAbout(chatID)
	case "ping":
		b.reply(chatID, "pong")
	case cmdChannel:
		b.handleChannel(ctx, chatID, args)
	case cmdTrigger:
		b.handleTrigger(ctx, chatID, args)
	case cmdIgnore:
		b.handleIgnore(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
