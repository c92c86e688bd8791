package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"twitch_notify/internal/chat"
	"twitch_notify/internal/model"
)

// fakeStore answers AnySubscriber from its own subscription set, which the
// tests update the way the registration layer would before notifying.
type fakeStore struct {
	mu   sync.Mutex
	subs map[model.ChannelSubscription]bool
	err  error
}

func newFakeStore(subs ...model.ChannelSubscription) *fakeStore {
	f := &fakeStore{subs: make(map[model.ChannelSubscription]bool)}
	for _, s := range subs {
		f.subs[s] = true
	}
	return f
}

func (f *fakeStore) set(recipientID int64, channel string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := model.ChannelSubscription{RecipientID: recipientID, Channel: channel}
	if on {
		f.subs[key] = true
	} else {
		delete(f.subs, key)
	}
}

func (f *fakeStore) ListAllSubscriptions(_ context.Context) ([]model.ChannelSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []model.ChannelSubscription
	for s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) AnySubscriber(_ context.Context, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for s := range f.subs {
		if s.Channel == channel {
			return true, nil
		}
	}
	return false, nil
}

type recordingSender struct {
	mu      sync.Mutex
	intents []chat.Intent
	full    bool
}

func (r *recordingSender) Send(in chat.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return chat.ErrCommandQueueFull
	}
	r.intents = append(r.intents, in)
	return nil
}

func (r *recordingSender) take() []chat.Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.intents
	r.intents = nil
	return out
}

func newTestSync(store *fakeStore, out *recordingSender) *Synchronizer {
	return New(store, out, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSharedChannelDedup(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	out := &recordingSender{}
	s := newTestSync(store, out)

	const a, b = int64(1), int64(2)

	steps := []struct {
		name   string
		change model.ChannelChange
		want   []chat.Intent
	}{
		{
			name:   "A adds foo",
			change: model.ChannelChange{Kind: model.ChannelAdded, RecipientID: a, Channel: "foo"},
			want:   []chat.Intent{chat.Join("foo")},
		},
		{
			name:   "B adds foo",
			change: model.ChannelChange{Kind: model.ChannelAdded, RecipientID: b, Channel: "#FOO"},
			want:   nil,
		},
		{
			name:   "A removes foo while B stays",
			change: model.ChannelChange{Kind: model.ChannelRemoved, RecipientID: a, Channel: "foo"},
			want:   nil,
		},
		{
			name:   "B removes foo",
			change: model.ChannelChange{Kind: model.ChannelRemoved, RecipientID: b, Channel: "foo"},
			want:   []chat.Intent{chat.Part("foo")},
		},
	}

	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			store.set(st.change.RecipientID, model.NormalizeChannel(st.change.Channel), st.change.Kind == model.ChannelAdded)
			if err := s.Notify(ctx, st.change); err != nil {
				t.Fatalf("notify: %v", err)
			}
			if diff := cmp.Diff(st.want, out.take()); diff != "" {
				t.Errorf("intents mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if got := s.Channels(); len(got) != 0 {
		t.Errorf("expected no channels left, got %v", got)
	}
}

func TestDuplicateNotificationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	out := &recordingSender{}
	s := newTestSync(store, out)

	add := model.ChannelChange{Kind: model.ChannelAdded, RecipientID: 1, Channel: "foo"}
	rm := model.ChannelChange{Kind: model.ChannelRemoved, RecipientID: 1, Channel: "foo"}

	store.set(1, "foo", true)
	for i := 0; i < 3; i++ {
		if err := s.Notify(ctx, add); err != nil {
			t.Fatalf("notify add: %v", err)
		}
	}
	store.set(1, "foo", false)
	for i := 0; i < 3; i++ {
		if err := s.Notify(ctx, rm); err != nil {
			t.Fatalf("notify remove: %v", err)
		}
	}

	want := []chat.Intent{chat.Join("foo"), chat.Part("foo")}
	if diff := cmp.Diff(want, out.take()); diff != "" {
		t.Errorf("intents mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSeedsWithoutIntents(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(
		model.ChannelSubscription{RecipientID: 1, Channel: "foo"},
		model.ChannelSubscription{RecipientID: 2, Channel: "foo"},
		model.ChannelSubscription{RecipientID: 2, Channel: "bar"},
	)
	out := &recordingSender{}
	s := newTestSync(store, out)

	channels, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"bar", "foo"}, channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
	if got := out.take(); len(got) != 0 {
		t.Errorf("expected no intents on load, got %v", got)
	}

	// A third subscriber to a seeded channel must not trigger a second join.
	store.set(3, "foo", true)
	if err := s.Notify(ctx, model.ChannelChange{Kind: model.ChannelAdded, RecipientID: 3, Channel: "foo"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := out.take(); len(got) != 0 {
		t.Errorf("expected no intents, got %v", got)
	}
}

func TestLoadStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk I/O error")
	s := newTestSync(store, &recordingSender{})

	if _, err := s.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestQueueFullRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	out := &recordingSender{full: true}
	s := newTestSync(store, out)

	add := model.ChannelChange{Kind: model.ChannelAdded, RecipientID: 1, Channel: "foo"}
	store.set(1, "foo", true)

	err := s.Notify(ctx, add)
	if !errors.Is(err, chat.ErrCommandQueueFull) {
		t.Fatalf("expected ErrCommandQueueFull, got %v", err)
	}
	if got := s.Channels(); len(got) != 0 {
		t.Errorf("expected rollback, got channels %v", got)
	}

	out.full = false
	if err := s.Notify(ctx, add); err != nil {
		t.Fatalf("retry notify: %v", err)
	}
	if diff := cmp.Diff([]chat.Intent{chat.Join("foo")}, out.take()); diff != "" {
		t.Errorf("intents mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveKeepsChannelWhenStoreDisagrees(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	out := &recordingSender{}
	s := newTestSync(store, out)

	store.set(1, "foo", true)
	if err := s.Notify(ctx, model.ChannelChange{Kind: model.ChannelAdded, RecipientID: 1, Channel: "foo"}); err != nil {
		t.Fatalf("notify add: %v", err)
	}
	_ = out.take()

	// Another recipient was written to the store without a change event.
	store.set(9, "foo", true)
	store.set(1, "foo", false)
	if err := s.Notify(ctx, model.ChannelChange{Kind: model.ChannelRemoved, RecipientID: 1, Channel: "foo"}); err != nil {
		t.Fatalf("notify remove: %v", err)
	}
	if got := out.take(); len(got) != 0 {
		t.Errorf("expected no part, got %v", got)
	}
}

func TestNotifyRejectsBadInput(t *testing.T) {
	s := newTestSync(newFakeStore(), &recordingSender{})

	tests := []struct {
		name   string
		change model.ChannelChange
	}{
		{name: "empty channel", change: model.ChannelChange{Kind: model.ChannelAdded, RecipientID: 1, Channel: " # "}},
		{name: "unknown kind", change: model.ChannelChange{Kind: "renamed", RecipientID: 1, Channel: "foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Notify(context.Background(), tt.change); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
