package notify

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"twitch_notify/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func drain(ch <-chan model.NotificationEvent) []model.NotificationEvent {
	var out []model.NotificationEvent
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func TestRoute(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := model.ChatEvent{Seq: 4, Channel: "foo", Author: "bob", Text: "hello world hello"}

	r := NewRouter(8, discardLogger())
	r.now = func() time.Time { return fixed }

	n := r.Route(ev, map[int64][]model.MatchSpan{
		30: {{Start: 0, End: 5}},
		10: {{Start: 0, End: 5}, {Start: 12, End: 17}},
		20: nil,
	})
	if diff := cmp.Diff(2, n); diff != "" {
		t.Errorf("routed count mismatch (-want +got):\n%s", diff)
	}

	want := []model.NotificationEvent{
		{
			RecipientID: 10,
			Message: model.AnnotatedMessage{
				Channel: "foo", Author: "bob", Text: "hello world hello",
				Spans: []model.MatchSpan{{Start: 0, End: 5}, {Start: 12, End: 17}},
			},
			ReceivedAt: fixed,
		},
		{
			RecipientID: 30,
			Message: model.AnnotatedMessage{
				Channel: "foo", Author: "bob", Text: "hello world hello",
				Spans: []model.MatchSpan{{Start: 0, End: 5}},
			},
			ReceivedAt: fixed,
		},
	}
	if diff := cmp.Diff(want, drain(r.Queue())); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
}

func TestRouteNoMatches(t *testing.T) {
	r := NewRouter(4, discardLogger())

	if n := r.Route(model.ChatEvent{Channel: "foo"}, nil); n != 0 {
		t.Errorf("expected nothing routed, got %d", n)
	}
	if got := drain(r.Queue()); len(got) != 0 {
		t.Errorf("expected empty queue, got %v", got)
	}
}

func TestRouteDropsOnOverflow(t *testing.T) {
	var logs bytes.Buffer
	r := NewRouter(2, slog.New(slog.NewTextHandler(&logs, nil)))

	matches := map[int64][]model.MatchSpan{
		1: {{Start: 0, End: 1}},
		2: {{Start: 0, End: 1}},
		3: {{Start: 0, End: 1}},
	}

	done := make(chan int, 1)
	go func() { done <- r.Route(model.ChatEvent{Channel: "foo", Text: "x"}, matches) }()

	select {
	case n := <-done:
		if diff := cmp.Diff(2, n); diff != "" {
			t.Errorf("routed count mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(time.Second):
		t.Fatal("Route blocked on a full queue")
	}

	if diff := cmp.Diff(uint64(1), r.Dropped()); diff != "" {
		t.Errorf("dropped mismatch (-want +got):\n%s", diff)
	}
	got := drain(r.Queue())
	if diff := cmp.Diff([]int64{1, 2}, []int64{got[0].RecipientID, got[1].RecipientID}); diff != "" {
		t.Errorf("kept recipients mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "notification queue full") {
		t.Errorf("expected drop to be logged, got:\n%s", logs.String())
	}
}
