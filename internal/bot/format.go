package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"twitch_notify/internal/model"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

// FormatNotification renders an annotated chat message as Telegram HTML with
// every span in bold.
func FormatNotification(m model.AnnotatedMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>#%s</b> %s:\n", escape(m.Channel), escape(m.Author))
	b.WriteString(Highlight(m.Text, m.Spans))
	return b.String()
}

// Highlight escapes text and wraps each span in <b> tags. Spans must be
// sorted and disjoint; spans outside text or overlapping a previous one are
// skipped.
func Highlight(text string, spans []model.MatchSpan) string {
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if !s.Valid() || s.Start < pos || s.End > len(text) {
			continue
		}
		b.WriteString(escape(text[pos:s.Start]))
		b.WriteString("<b>")
		b.WriteString(escape(text[s.Start:s.End]))
		b.WriteString("</b>")
		pos = s.End
	}
	b.WriteString(escape(text[pos:]))
	return b.String()
}

// FormatChannelList formats the watched channels of a recipient.
func FormatChannelList(channels []string) string {
	if len(channels) == 0 {
		return "You are not watching any channels. Use /channel add <channel> to add one."
	}
	var b strings.Builder
	b.WriteString("Watched channels:\n")
	for _, ch := range channels {
		fmt.Fprintf(&b, "  #%s\n", ch)
	}
	return b.String()
}

// FormatTriggerList formats the triggers of a recipient.
func FormatTriggerList(triggers []model.Trigger) string {
	if len(triggers) == 0 {
		return "You have no triggers yet. Use /trigger add <pattern> to add one."
	}
	var b strings.Builder
	b.WriteString("Your triggers:\n")
	for _, t := range triggers {
		fmt.Fprintf(&b, "  T%d: %s (%s)\n", t.ID, t.Pattern, triggerLabel(t))
	}
	return b.String()
}

// FormatIgnoreList formats the ignored usernames of a recipient.
func FormatIgnoreList(users []string) string {
	if len(users) == 0 {
		return "You are not ignoring anyone."
	}
	return "Ignored users:\n  " + strings.Join(users, "\n  ") + "\n"
}

func triggerLabel(t model.Trigger) string {
	kind := "word"
	if t.IsRegex {
		kind = "regex"
	}
	if t.CaseSensitive {
		return kind + ", case-sensitive"
	}
	return kind + ", any case"
}
