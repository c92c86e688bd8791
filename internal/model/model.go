// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// Trigger is a recipient-owned pattern watched for in chat messages.
type Trigger struct {
	ID            int64
	RecipientID   int64
	Pattern       string
	CaseSensitive bool
	IsRegex       bool
	CreatedAt     time.Time
}

// IgnoreEntry suppresses notifications to a recipient from one chat author.
type IgnoreEntry struct {
	RecipientID int64
	Username    string
}

// ChannelSubscription registers a recipient's interest in a chat channel.
type ChannelSubscription struct {
	RecipientID int64
	Channel     string
}

// ChatEvent is a single chat message as received from the chat network.
type ChatEvent struct {
	Seq        uint64
	Channel    string
	Author     string
	Text       string
	ReceivedAt time.Time
}

// MatchSpan is a half-open byte range [Start, End) into a message text.
type MatchSpan struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s MatchSpan) Len() int {
	return s.End - s.Start
}

// Valid reports whether the span covers at least one byte.
func (s MatchSpan) Valid() bool {
	return s.Start >= 0 && s.End > s.Start
}

// AnnotatedMessage is a chat message with its merged highlight spans.
type AnnotatedMessage struct {
	Channel string
	Author  string
	Text    string
	Spans   []MatchSpan
}

// NotificationEvent is a message to deliver to a single recipient.
type NotificationEvent struct {
	RecipientID int64
	Message     AnnotatedMessage
	ReceivedAt  time.Time
}

// ChangeKind describes a registration change on a channel subscription.
type ChangeKind string

// Supported change kinds.
const (
	ChannelAdded   ChangeKind = "added"
	ChannelRemoved ChangeKind = "removed"
)

// ChannelChange is emitted by the registration layer whenever a recipient
// adds or removes a channel.
type ChannelChange struct {
	Kind        ChangeKind
	RecipientID int64
	Channel     string
}

// NormalizeChannel lowercases a channel name and strips the network prefix.
func NormalizeChannel(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	return strings.ToLower(name)
}

// NormalizeUsername lowercases a chat login and strips a leading mention sign.
func NormalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "@")
	return strings.ToLower(name)
}
