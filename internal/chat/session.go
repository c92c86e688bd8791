package chat

import (
	"fmt"
	"math/rand/v2"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"twitch_notify/internal/model"
)

// DefaultAddress is the Twitch IRC endpoint with TLS.
const DefaultAddress = "irc.chat.twitch.tv:6697"

// Twitch accepts any password for justinfan logins.
const anonymousPassword = "oauth:59301"

// Hooks are the callbacks a session reports through. They are invoked on the
// session's own reader goroutine.
type Hooks struct {
	OnConnect func()
	OnMessage func(model.ChatEvent)
}

// Session is one login to the chat network. Connect blocks until the session
// ends and returns the reason.
type Session interface {
	Join(channels ...string)
	Depart(channel string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// Dialer creates a fresh, not yet connected session for the given nick.
type Dialer func(nick string, hooks Hooks) Session

// AnonymousNick returns a random read-only login name.
func AnonymousNick() string {
	return fmt.Sprintf("justinfan%d", rand.Uint32())
}

// TwitchDialer returns a Dialer logging in anonymously to address over TLS.
func TwitchDialer(address string) Dialer {
	if address == "" {
		address = DefaultAddress
	}
	return func(nick string, hooks Hooks) Session {
		client := twitch.NewClient(nick, anonymousPassword)
		client.IrcAddress = address
		client.TLS = true

		client.OnConnect(hooks.OnConnect)
		client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
			received := msg.Time
			if received.IsZero() {
				received = time.Now()
			}
			hooks.OnMessage(model.ChatEvent{
				Channel:    model.NormalizeChannel(msg.Channel),
				Author:     model.NormalizeUsername(msg.User.Name),
				Text:       msg.Message,
				ReceivedAt: received,
			})
		})
		return &twitchSession{client: client}
	}
}

type twitchSession struct {
	client *twitch.Client
}

func (s *twitchSession) Join(channels ...string)  { s.client.Join(channels...) }
func (s *twitchSession) Depart(channel string)    { s.client.Depart(channel) }
func (s *twitchSession) Say(channel, text string) { s.client.Say(channel, text) }
func (s *twitchSession) Connect() error           { return s.client.Connect() }
func (s *twitchSession) Disconnect() error        { return s.client.Disconnect() }
