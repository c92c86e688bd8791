// Package chat owns the connection to the Twitch chat network.
//
// A Connection is an actor: a single goroutine (the one calling Run) owns the
// live session, reads its messages, applies join/part/say intents arriving
// through one command channel, and replaces the session on recoverable
// failures. Other goroutines only ever call Send.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"

	"twitch_notify/internal/metrics"
	"twitch_notify/internal/model"
)

// State is the lifecycle state of a Connection.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// IntentKind identifies an outbound chat command.
type IntentKind int

// Intent kinds.
const (
	IntentJoin IntentKind = iota
	IntentPart
	IntentSay
)

// Intent is an outbound command for the connection owner to apply.
type Intent struct {
	Kind    IntentKind
	Channel string
	Text    string
}

// Join returns an intent to join channel.
func Join(channel string) Intent {
	return Intent{Kind: IntentJoin, Channel: model.NormalizeChannel(channel)}
}

// Part returns an intent to leave channel.
func Part(channel string) Intent {
	return Intent{Kind: IntentPart, Channel: model.NormalizeChannel(channel)}
}

// Say returns an intent to send text to channel.
func Say(channel, text string) Intent {
	return Intent{Kind: IntentSay, Channel: model.NormalizeChannel(channel), Text: text}
}

// Handler processes one chat event. It runs on the connection's owner
// goroutine; the next event is not read until it returns.
type Handler func(ctx context.Context, ev model.ChatEvent)

// Options configures a Connection. Zero values select the defaults.
type Options struct {
	Dialer         Dialer
	CommandBuffer  int
	EventBuffer    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxRetries is the number of consecutive failed reconnects tolerated
	// before giving up. Zero means retry forever.
	MaxRetries int
	// OnStateChange observes state transitions together with the channel set.
	OnStateChange func(State, []string)
}

// Connection is a persistent chat-network connection.
type Connection struct {
	opts Options
	cmds chan Intent
	log  *slog.Logger
}

// New creates a Connection. It does not connect until Run is called.
func New(log *slog.Logger, opts Options) *Connection {
	if opts.Dialer == nil {
		opts.Dialer = TwitchDialer(DefaultAddress)
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 64
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 2 * time.Minute
	}
	return &Connection{
		opts: opts,
		cmds: make(chan Intent, opts.CommandBuffer),
		log:  log,
	}
}

// Send queues an intent for the owner goroutine. It never blocks and returns
// ErrCommandQueueFull when the queue has no room.
func (c *Connection) Send(in Intent) error {
	select {
	case c.cmds <- in:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Run connects, joins channels and delivers chat events to handle until ctx
// is cancelled (nil is returned) or the connection fails for good (a fatal
// *ConnectionError is returned). Recoverable failures are retried with
// exponential backoff, keeping the channel set.
func (c *Connection) Run(ctx context.Context, channels []string, handle Handler) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.InitialBackoff
	bo.MaxInterval = c.opts.MaxBackoff
	bo.Reset()

	r := &run{
		conn:     c,
		channels: make(map[string]struct{}),
		handle:   handle,
		backoff:  bo,
	}
	for _, ch := range channels {
		if ch = model.NormalizeChannel(ch); ch != "" {
			r.channels[ch] = struct{}{}
		}
	}
	metrics.JoinedChannels.Set(float64(len(r.channels)))

	r.setState(StateConnecting)
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			r.setState(StateDisconnected)
			return nil
		}

		if Classify(err) == Fatal {
			c.log.Error("chat connection failed", "error", err)
			r.setState(StateDisconnected)
			return &ConnectionError{Kind: Fatal, Err: err}
		}

		r.failures++
		if c.opts.MaxRetries > 0 && r.failures > c.opts.MaxRetries {
			c.log.Error("chat reconnect gave up", "attempts", r.failures-1, "error", err)
			r.setState(StateDisconnected)
			return &ConnectionError{Kind: Fatal, Err: fmt.Errorf("%w: %w", ErrRetriesExhausted, err)}
		}

		wait := bo.NextBackOff()
		if wait < 0 {
			wait = c.opts.MaxBackoff
		}
		c.log.Warn("chat connection lost", "error", err, "attempt", r.failures, "retry_in", wait)
		r.setState(StateReconnecting)
		metrics.Reconnects.Inc()

		if !r.wait(ctx, wait) {
			r.setState(StateDisconnected)
			return nil
		}
	}
}

// run is the state of one Run call. It is only touched by the owner goroutine.
type run struct {
	conn     *Connection
	channels map[string]struct{}
	handle   Handler
	backoff  *backoff.ExponentialBackOff
	failures int
	state    State
}

func (r *run) session(ctx context.Context) error {
	c := r.conn
	nick := AnonymousNick()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan model.ChatEvent, c.opts.EventBuffer)
	connected := make(chan struct{}, 1)
	sess := c.opts.Dialer(nick, Hooks{
		OnConnect: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
		OnMessage: func(ev model.ChatEvent) {
			select {
			case events <- ev:
			case <-sctx.Done():
			}
		},
	})

	if list := r.channelList(); len(list) > 0 {
		sess.Join(list...)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Connect() }()

	c.log.Debug("chat session started", "nick", nick, "channels", len(r.channels))

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			cancel()
			_ = sess.Disconnect()
			return ctx.Err()
		case <-connected:
			r.failures = 0
			r.backoff.Reset()
			if r.state != StateConnected {
				c.log.Info("chat connected", "nick", nick, "channels", len(r.channels))
				r.setState(StateConnected)
			}
		case ev := <-events:
			seq++
			ev.Seq = seq
			metrics.ChatMessages.Inc()
			r.handle(ctx, ev)
		case in := <-c.cmds:
			r.apply(sess, in)
		case err := <-done:
			return err
		}
	}
}

// wait sleeps for d while still accepting intents, so the channel set is
// current when the next session starts.
func (r *run) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			return true
		case in := <-r.conn.cmds:
			r.apply(nil, in)
		}
	}
}

// apply executes an intent against sess, which is nil between sessions.
func (r *run) apply(sess Session, in Intent) {
	log := r.conn.log
	if in.Channel == "" {
		log.Warn("drop chat intent without channel", "kind", in.Kind)
		return
	}

	switch in.Kind {
	case IntentJoin:
		if _, ok := r.channels[in.Channel]; ok {
			return
		}
		r.channels[in.Channel] = struct{}{}
		if sess != nil {
			sess.Join(in.Channel)
		}
		log.Info("join channel", "channel", in.Channel)
	case IntentPart:
		if _, ok := r.channels[in.Channel]; !ok {
			return
		}
		delete(r.channels, in.Channel)
		if sess != nil {
			sess.Depart(in.Channel)
		}
		log.Info("part channel", "channel", in.Channel)
	case IntentSay:
		if sess == nil || r.state != StateConnected {
			log.Warn("drop chat message while disconnected", "channel", in.Channel)
			return
		}
		sess.Say(in.Channel, in.Text)
	}
	metrics.JoinedChannels.Set(float64(len(r.channels)))
}

func (r *run) setState(s State) {
	r.state = s
	r.conn.log.Debug("chat state", "state", s.String())
	if r.conn.opts.OnStateChange != nil {
		r.conn.opts.OnStateChange(s, r.channelList())
	}
}

func (r *run) channelList() []string {
	list := make([]string, 0, len(r.channels))
	for ch := range r.channels {
		list = append(list, ch)
	}
	sort.Strings(list)
	return list
}
