package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"twitch_notify/internal/filter"
	"twitch_notify/internal/model"
	"twitch_notify/internal/storage"
)

const (
	cmdChannel = "channel"
	cmdTrigger = "trigger"
	cmdIgnore  = "ignore"
)

var validChannel = regexp.MustCompile(`^[a-z0-9_]{1,25}$`)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Twitch Notify Bot!

Watch Twitch chats and get notified when someone mentions your triggers.

Quick start:
1. /channel add <channel> - watch a Twitch chat
2. /trigger add <word> - get notified when it appears
3. /ignore add <user> - mute a chatter

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Channels:
/channel add <channel...> - watch Twitch chats
/channel remove <channel...> - stop watching
/channel list - show watched chats

Triggers:
/trigger add [-c] [-r] <pattern> - add a trigger
/trigger remove <id> - remove a trigger
/trigger list - show your triggers

Flags: -c case-sensitive, -r regular expression

Ignored users:
/ignore add <user...> - ignore messages from users
/ignore remove <user...> - stop ignoring
/ignore list - show ignored users

Other:
/about - about this bot
/ping - check the bot is alive`)
}

func (b *Bot) handleAbout(chatID int64) {
	b.reply(chatID, `Twitch Notify Bot reads Twitch chat anonymously and forwards every message matching one of your triggers, with the matched parts highlighted.`)
}

// --- channels ---

func (b *Bot) handleChannel(ctx context.Context, chatID int64, args string) {
	sub, rest := ParseSubcommand(args)
	switch sub {
	case "add":
		b.handleChannelAdd(ctx, chatID, rest)
	case "remove":
		b.handleChannelRemove(ctx, chatID, rest)
	case "list":
		b.handleChannelList(ctx, chatID)
	default:
		b.reply(chatID, "Usage: /channel add|remove <channel...> or /channel list")
	}
}

func (b *Bot) handleChannelAdd(ctx context.Context, chatID int64, args string) {
	names := ParseNames(args, model.NormalizeChannel)
	if len(names) == 0 {
		b.reply(chatID, "Usage: /channel add <channel...>")
		return
	}

	var lines []string
	for _, ch := range names {
		if !validChannel.MatchString(ch) {
			lines = append(lines, fmt.Sprintf("#%s: invalid channel name", ch))
			continue
		}
		added, err := b.store.AddChannel(ctx, chatID, ch)
		if err != nil {
			b.log.Error("add channel", "chat_id", chatID, "channel", ch, "error", err)
			lines = append(lines, fmt.Sprintf("#%s: error saving channel", ch))
			continue
		}
		if !added {
			lines = append(lines, fmt.Sprintf("#%s: already watched", ch))
			continue
		}

		change := model.ChannelChange{Kind: model.ChannelAdded, RecipientID: chatID, Channel: ch}
		if err := b.subs.Notify(ctx, change); err != nil {
			b.log.Error("notify channel added", "chat_id", chatID, "channel", ch, "error", err)
			if _, rerr := b.store.RemoveChannel(ctx, chatID, ch); rerr != nil {
				b.log.Error("roll back channel", "chat_id", chatID, "channel", ch, "error", rerr)
			}
			lines = append(lines, fmt.Sprintf("#%s: could not join right now, please retry", ch))
			continue
		}
		b.triggers.Invalidate(ch)
		lines = append(lines, fmt.Sprintf("#%s: added", ch))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleChannelRemove(ctx context.Context, chatID int64, args string) {
	names := ParseNames(args, model.NormalizeChannel)
	if len(names) == 0 {
		b.reply(chatID, "Usage: /channel remove <channel...>")
		return
	}

	var lines []string
	for _, ch := range names {
		removed, err := b.store.RemoveChannel(ctx, chatID, ch)
		if err != nil {
			b.log.Error("remove channel", "chat_id", chatID, "channel", ch, "error", err)
			lines = append(lines, fmt.Sprintf("#%s: error removing channel", ch))
			continue
		}
		if !removed {
			lines = append(lines, fmt.Sprintf("#%s: not watched", ch))
			continue
		}
		b.triggers.Invalidate(ch)

		change := model.ChannelChange{Kind: model.ChannelRemoved, RecipientID: chatID, Channel: ch}
		if err := b.subs.Notify(ctx, change); err != nil {
			b.log.Warn("notify channel removed", "chat_id", chatID, "channel", ch, "error", err)
		}
		lines = append(lines, fmt.Sprintf("#%s: removed", ch))
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleChannelList(ctx context.Context, chatID int64) {
	channels, err := b.store.ListChannels(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatChannelList(channels))
}

// --- triggers ---

func (b *Bot) handleTrigger(ctx context.Context, chatID int64, args string) {
	sub, rest := ParseSubcommand(args)
	switch sub {
	case "add":
		b.handleTriggerAdd(ctx, chatID, rest)
	case "remove":
		id, err := ParseIDArg(rest)
		if err != nil {
			b.reply(chatID, "Usage: /trigger remove <id>")
			return
		}
		b.removeTrigger(ctx, chatID, id)
	case "list":
		b.handleTriggerList(ctx, chatID)
	default:
		b.reply(chatID, "Usage: /trigger add [-c] [-r] <pattern>, /trigger remove <id> or /trigger list")
	}
}

func (b *Bot) handleTriggerAdd(ctx context.Context, chatID int64, args string) {
	parsed, err := ParseTriggerArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := filter.ValidatePattern(parsed.Pattern, parsed.IsRegex, parsed.CaseSensitive); err != nil {
		b.reply(chatID, fmt.Sprintf("Trigger rejected: %v", err))
		return
	}

	t := &model.Trigger{
		RecipientID:   chatID,
		Pattern:       parsed.Pattern,
		CaseSensitive: parsed.CaseSensitive,
		IsRegex:       parsed.IsRegex,
	}
	if err := b.store.CreateTrigger(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			b.reply(chatID, fmt.Sprintf("You already have the trigger %q.", parsed.Pattern))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.triggers.InvalidateAll()

	b.reply(chatID, fmt.Sprintf("Trigger T%d added: %s (%s)", t.ID, t.Pattern, triggerLabel(*t)))
}

func (b *Bot) removeTrigger(ctx context.Context, chatID int64, id int64) {
	t, err := b.store.GetTrigger(ctx, id)
	if err != nil || t.RecipientID != chatID {
		b.reply(chatID, fmt.Sprintf("Trigger T%d not found.", id))
		return
	}
	if err := b.store.DeleteTrigger(ctx, id); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.triggers.InvalidateAll()
	b.reply(chatID, fmt.Sprintf("Trigger T%d removed: %s", id, t.Pattern))
}

func (b *Bot) handleTriggerList(ctx context.Context, chatID int64) {
	triggers, err := b.store.ListTriggers(ctx, chatID)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatTriggerList(triggers))
	if len(triggers) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(triggers))
		for _, t := range triggers {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Remove T%d", t.ID), fmt.Sprintf("%s:%d", cmdRmTrigger, t.ID)),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send trigger list", "chat_id", chatID, "error", err)
	}
}

// --- ignores ---

func (b *Bot) handleIgnore(ctx context.Context, chatID int64, args string) {
	sub, rest := ParseSubcommand(args)
	switch sub {
	case "add", "remove":
		users := ParseNames(rest, model.NormalizeUsername)
		if len(users) == 0 {
			b.reply(chatID, fmt.Sprintf("Usage: /ignore %s <user...>", sub))
			return
		}
		b.updateIgnores(ctx, chatID, sub == "add", users)
	case "list":
		users, err := b.store.ListIgnores(ctx, chatID)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Error: %v", err))
			return
		}
		b.reply(chatID, FormatIgnoreList(users))
	default:
		b.reply(chatID, "Usage: /ignore add|remove <user...> or /ignore list")
	}
}

func (b *Bot) updateIgnores(ctx context.Context, chatID int64, add bool, users []string) {
	var lines []string
	for _, u := range users {
		var (
			changed bool
			err     error
		)
		if add {
			changed, err = b.store.AddIgnore(ctx, chatID, u)
		} else {
			changed, err = b.store.RemoveIgnore(ctx, chatID, u)
		}
		switch {
		case err != nil:
			b.log.Error("update ignore list", "chat_id", chatID, "username", u, "error", err)
			lines = append(lines, fmt.Sprintf("%s: error", u))
		case add && changed:
			lines = append(lines, fmt.Sprintf("%s: ignored", u))
		case add:
			lines = append(lines, fmt.Sprintf("%s: already ignored", u))
		case changed:
			lines = append(lines, fmt.Sprintf("%s: no longer ignored", u))
		default:
			lines = append(lines, fmt.Sprintf("%s: not ignored", u))
		}
	}
	b.reply(chatID, strings.Join(lines, "\n"))
}
