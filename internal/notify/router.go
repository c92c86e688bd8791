// Package notify routes match results to recipients and drains them toward
// the delivery surface.
package notify

import (
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"twitch_notify/internal/metrics"
	"twitch_notify/internal/model"
)

// ErrQueueFull is logged when a notification is dropped because the output
// queue has no room.
var ErrQueueFull = errors.New("notification queue full")

// Router turns per-recipient spans into notification events on a bounded
// queue. Route never blocks.
type Router struct {
	queue   chan model.NotificationEvent
	log     *slog.Logger
	now     func() time.Time
	dropped atomic.Uint64
}

// NewRouter creates a Router whose queue holds up to capacity events.
func NewRouter(capacity int, log *slog.Logger) *Router {
	if capacity <= 0 {
		capacity = 1
	}
	return &Router{
		queue: make(chan model.NotificationEvent, capacity),
		log:   log,
		now:   time.Now,
	}
}

// Queue returns the receiving end of the output queue.
func (r *Router) Queue() <-chan model.NotificationEvent {
	return r.queue
}

// Dropped returns how many events were discarded on overflow.
func (r *Router) Dropped() uint64 {
	return r.dropped.Load()
}

// Route enqueues one notification per recipient with at least one span, in
// ascending recipient order, and returns how many were enqueued. The spans
// must already be merged.
func (r *Router) Route(ev model.ChatEvent, matches map[int64][]model.MatchSpan) int {
	recipients := make([]int64, 0, len(matches))
	for id, spans := range matches {
		if len(spans) > 0 {
			recipients = append(recipients, id)
		}
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i] < recipients[j] })

	now := r.now()
	sent := 0
	for _, id := range recipients {
		n := model.NotificationEvent{
			RecipientID: id,
			Message: model.AnnotatedMessage{
				Channel: ev.Channel,
				Author:  ev.Author,
				Text:    ev.Text,
				Spans:   matches[id],
			},
			ReceivedAt: now,
		}
		select {
		case r.queue <- n:
			sent++
			metrics.NotificationsRouted.Inc()
		default:
			r.dropped.Add(1)
			metrics.NotificationsDropped.Inc()
			r.log.Warn("drop notification",
				"recipient_id", id,
				"channel", ev.Channel,
				"seq", ev.Seq,
				"error", ErrQueueFull,
			)
		}
	}
	return sent
}
