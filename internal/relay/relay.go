// Package relay wires the match engine, span merger and router into the
// handler run for every chat event.
package relay

import (
	"context"
	"log/slog"

	"twitch_notify/internal/metrics"
	"twitch_notify/internal/model"
	"twitch_notify/internal/span"
)

// Evaluator returns raw per-recipient match spans for a chat event.
type Evaluator interface {
	Evaluate(ctx context.Context, ev model.ChatEvent) (map[int64][]model.MatchSpan, error)
}

// Router enqueues notifications for merged spans.
type Router interface {
	Route(ev model.ChatEvent, matches map[int64][]model.MatchSpan) int
}

// Relay processes chat events one at a time.
type Relay struct {
	engine Evaluator
	router Router
	log    *slog.Logger
}

// New creates a Relay.
func New(engine Evaluator, router Router, log *slog.Logger) *Relay {
	return &Relay{engine: engine, router: router, log: log}
}

// Handle matches ev, merges each recipient's spans and routes the result. A
// failed store lookup drops the event; it never propagates to the connection.
func (r *Relay) Handle(ctx context.Context, ev model.ChatEvent) {
	matches, err := r.engine.Evaluate(ctx, ev)
	if err != nil {
		metrics.StoreErrors.Inc()
		r.log.Error("evaluate chat message",
			"channel", ev.Channel,
			"author", ev.Author,
			"seq", ev.Seq,
			"error", err,
		)
		return
	}
	if len(matches) == 0 {
		return
	}

	merged := make(map[int64][]model.MatchSpan, len(matches))
	for id, spans := range matches {
		if m := span.Merge(spans); len(m) > 0 {
			merged[id] = m
		}
	}
	if len(merged) == 0 {
		return
	}

	metrics.MatchedMessages.Inc()
	sent := r.router.Route(ev, merged)
	r.log.Debug("chat message matched",
		"channel", ev.Channel,
		"seq", ev.Seq,
		"recipients", len(merged),
		"routed", sent,
	)
}
