// Package subscription turns channel registration changes into join/part
// intents for the chat connection.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"twitch_notify/internal/chat"
	"twitch_notify/internal/model"
)

// Store is the query surface the synchronizer needs.
type Store interface {
	ListAllSubscriptions(ctx context.Context) ([]model.ChannelSubscription, error)
	AnySubscriber(ctx context.Context, channel string) (bool, error)
}

// IntentSender accepts chat intents without blocking.
type IntentSender interface {
	Send(in chat.Intent) error
}

// Synchronizer tracks which recipients subscribe to each channel. A channel is
// joined when its first subscriber arrives and parted when the last one leaves.
type Synchronizer struct {
	store Store
	out   IntentSender
	log   *slog.Logger

	mu   sync.Mutex
	subs map[string]map[int64]struct{}
}

// New creates a Synchronizer emitting intents to out.
func New(store Store, out IntentSender, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		store: store,
		out:   out,
		log:   log,
		subs:  make(map[string]map[int64]struct{}),
	}
}

// Load seeds the subscriber sets from the store and returns the channels to
// join on connect. No intents are emitted.
func (s *Synchronizer) Load(ctx context.Context) ([]string, error) {
	all, err := s.store.ListAllSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	s.mu.Lock()
	s.subs = make(map[string]map[int64]struct{})
	for _, sub := range all {
		s.addLocked(model.NormalizeChannel(sub.Channel), sub.RecipientID)
	}
	s.mu.Unlock()

	return s.Channels(), nil
}

// Notify applies a registration change. A Join or Part intent is sent only when
// the channel's subscriber count moves between zero and one. If the intent
// cannot be queued the change is rolled back and the error returned; it is
// not retried.
func (s *Synchronizer) Notify(ctx context.Context, change model.ChannelChange) error {
	channel := model.NormalizeChannel(change.Channel)
	if channel == "" {
		return fmt.Errorf("empty channel name")
	}

	switch change.Kind {
	case model.ChannelAdded:
		return s.added(channel, change.RecipientID)
	case model.ChannelRemoved:
		return s.removed(ctx, channel, change.RecipientID)
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

func (s *Synchronizer) added(channel string, recipientID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.addLocked(channel, recipientID) {
		return nil
	}
	if len(s.subs[channel]) != 1 {
		return nil
	}

	if err := s.out.Send(chat.Join(channel)); err != nil {
		s.removeLocked(channel, recipientID)
		s.log.Error("queue join", "channel", channel, "recipient_id", recipientID, "error", err)
		return fmt.Errorf("join %s: %w", channel, err)
	}
	s.log.Debug("channel gained first subscriber", "channel", channel, "recipient_id", recipientID)
	return nil
}

func (s *Synchronizer) removed(ctx context.Context, channel string, recipientID int64) error {
	// Ask the store before taking the lock.
	stillSubscribed, err := s.store.AnySubscriber(ctx, channel)
	if err != nil {
		s.log.Warn("check remaining subscribers", "channel", channel, "error", err)
		stillSubscribed = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeLocked(channel, recipientID) {
		return nil
	}
	if len(s.subs[channel]) > 0 {
		return nil
	}
	if stillSubscribed {
		s.log.Warn("store still lists subscribers, keeping channel", "channel", channel)
		return nil
	}

	delete(s.subs, channel)
	if err := s.out.Send(chat.Part(channel)); err != nil {
		s.addLocked(channel, recipientID)
		s.log.Error("queue part", "channel", channel, "recipient_id", recipientID, "error", err)
		return fmt.Errorf("part %s: %w", channel, err)
	}
	s.log.Debug("channel lost last subscriber", "channel", channel, "recipient_id", recipientID)
	return nil
}

// Channels returns the channels with at least one subscriber, sorted.
func (s *Synchronizer) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.subs))
	for ch, set := range s.subs {
		if len(set) > 0 {
			out = append(out, ch)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Synchronizer) addLocked(channel string, recipientID int64) bool {
	set, ok := s.subs[channel]
	if !ok {
		set = make(map[int64]struct{})
		s.subs[channel] = set
	}
	if _, ok := set[recipientID]; ok {
		return false
	}
	set[recipientID] = struct{}{}
	return true
}

func (s *Synchronizer) removeLocked(channel string, recipientID int64) bool {
	set, ok := s.subs[channel]
	if !ok {
		return false
	}
	if _, ok := set[recipientID]; !ok {
		return false
	}
	delete(set, recipientID)
	if len(set) == 0 {
		delete(s.subs, channel)
	}
	return true
}
