package notify

import (
	"context"
	"log/slog"
	"time"

	"twitch_notify/internal/metrics"
	"twitch_notify/internal/model"
)

// Deliverer sends a notification to its recipient on the messaging surface.
type Deliverer interface {
	Deliver(ctx context.Context, n model.NotificationEvent) error
}

// Dispatcher drains the notification queue into a Deliverer.
type Dispatcher struct {
	queue     <-chan model.NotificationEvent
	deliverer Deliverer
	log       *slog.Logger
	pace      time.Duration
}

// NewDispatcher creates a Dispatcher reading from queue.
func NewDispatcher(queue <-chan model.NotificationEvent, d Deliverer, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:     queue,
		deliverer: d,
		log:       log,
		// Telegram allows roughly 20 messages per second per bot.
		pace: 50 * time.Millisecond,
	}
}

// SetPace overrides the delay between two deliveries.
func (d *Dispatcher) SetPace(p time.Duration) {
	d.pace = p
}

// Run delivers queued notifications until ctx is cancelled. Failed deliveries
// are logged and not retried.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
			if d.pace > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(d.pace):
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n model.NotificationEvent) {
	if err := d.deliverer.Deliver(ctx, n); err != nil {
		metrics.NotificationsFailed.Inc()
		d.log.Error("deliver notification",
			"recipient_id", n.RecipientID,
			"channel", n.Message.Channel,
			"error", err,
		)
		return
	}
	metrics.NotificationsDelivered.Inc()
	d.log.Debug("notification delivered", "recipient_id", n.RecipientID, "channel", n.Message.Channel)
}
