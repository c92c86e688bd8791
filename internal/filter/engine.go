package filter

import (
	"context"
	"fmt"
	"log/slog"

	"twitch_notify/internal/model"
)

// Store is the read-only query surface the engine needs.
type Store interface {
	TriggersForChannel(ctx context.Context, channel string) ([]model.Trigger, error)
	IgnoresForRecipients(ctx context.Context, recipientIDs []int64) (map[int64][]string, error)
}

// StoreQueryError reports a failed lookup that aborted evaluation of an event.
type StoreQueryError struct {
	Op      string
	Channel string
	Err     error
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Channel, e.Err)
}

func (e *StoreQueryError) Unwrap() error { return e.Err }

// Engine evaluates chat events against the triggers of subscribed recipients.
type Engine struct {
	index *Index
	store Store
	log   *slog.Logger
}

// NewEngine creates an Engine reading triggers through index and ignore
// lists from store.
func NewEngine(index *Index, store Store, log *slog.Logger) *Engine {
	return &Engine{index: index, store: store, log: log}
}

// Evaluate returns the raw match spans of ev per recipient. Recipients that
// ignore the event's author, or whose triggers do not match, are absent from
// the result. Any store failure aborts the whole event.
func (e *Engine) Evaluate(ctx context.Context, ev model.ChatEvent) (map[int64][]model.MatchSpan, error) {
	matchers, err := e.index.Triggers(ctx, ev.Channel)
	if err != nil {
		return nil, err
	}
	if len(matchers) == 0 {
		return nil, nil
	}

	byRecipient := make(map[int64][]*Matcher)
	var recipients []int64
	for _, m := range matchers {
		id := m.Trigger.RecipientID
		if _, ok := byRecipient[id]; !ok {
			recipients = append(recipients, id)
		}
		byRecipient[id] = append(byRecipient[id], m)
	}

	ignores, err := e.store.IgnoresForRecipients(ctx, recipients)
	if err != nil {
		return nil, &StoreQueryError{Op: "ignores for recipients", Channel: ev.Channel, Err: err}
	}

	author := model.NormalizeUsername(ev.Author)
	out := make(map[int64][]model.MatchSpan)
	for _, id := range recipients {
		if ignored(ignores[id], author) {
			e.log.Debug("author ignored", "recipient_id", id, "author", author, "channel", ev.Channel)
			continue
		}
		var spans []model.MatchSpan
		for _, m := range byRecipient[id] {
			spans = append(spans, m.FindAll(ev.Text)...)
		}
		if len(spans) > 0 {
			out[id] = spans
		}
	}
	return out, nil
}

func ignored(usernames []string, author string) bool {
	for _, u := range usernames {
		if u == author {
			return true
		}
	}
	return false
}
