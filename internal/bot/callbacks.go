package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdRmTrigger = "rmtrigger"
	cmdNoop      = "noop"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, idStr, ok := strings.Cut(data, ":")
	if !ok || action == cmdNoop {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return
	}

	b.log.Info("callback",
		"action", action,
		"id", id,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdRmTrigger:
		b.removeTrigger(ctx, chatID, id)
	}
}
