package filter

import (
	"context"
	"log/slog"
	"sync"

	"twitch_notify/internal/metrics"
	"twitch_notify/internal/model"
)

// Index caches compiled triggers per channel. Entries are dropped by the
// registration layer whenever subscriptions or triggers change.
type Index struct {
	store Store
	log   *slog.Logger

	mu      sync.RWMutex
	entries map[string][]*Matcher
	gen     uint64
}

// NewIndex creates an empty trigger index backed by store.
func NewIndex(store Store, log *slog.Logger) *Index {
	return &Index{
		store:   store,
		log:     log,
		entries: make(map[string][]*Matcher),
	}
}

// Triggers returns the compiled triggers of every recipient subscribed to
// channel. On a cache miss they are loaded with a single store query; triggers
// that fail to compile are logged and left out.
func (x *Index) Triggers(ctx context.Context, channel string) ([]*Matcher, error) {
	channel = model.NormalizeChannel(channel)

	x.mu.RLock()
	cached, ok := x.entries[channel]
	gen := x.gen
	x.mu.RUnlock()
	if ok {
		return cached, nil
	}

	triggers, err := x.store.TriggersForChannel(ctx, channel)
	if err != nil {
		return nil, &StoreQueryError{Op: "triggers for channel", Channel: channel, Err: err}
	}

	matchers := make([]*Matcher, 0, len(triggers))
	for _, t := range triggers {
		m, err := Compile(t)
		if err != nil {
			metrics.PatternErrors.Inc()
			x.log.Warn("skip trigger",
				"channel", channel,
				"trigger_id", t.ID,
				"recipient_id", t.RecipientID,
				"error", err,
			)
			continue
		}
		matchers = append(matchers, m)
	}

	x.mu.Lock()
	// A concurrent invalidation makes this result stale; serve it once but do
	// not cache it.
	if x.gen == gen {
		x.entries[channel] = matchers
	}
	x.mu.Unlock()

	return matchers, nil
}

// Invalidate drops the cached triggers of one channel.
func (x *Index) Invalidate(channel string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, model.NormalizeChannel(channel))
	x.gen++
}

// InvalidateAll drops every cached channel.
func (x *Index) InvalidateAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = make(map[string][]*Matcher)
	x.gen++
}
