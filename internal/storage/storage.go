// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"twitch_notify/internal/model"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("already exists")

// Storage is the interface for all persistence operations.
type Storage interface {
	AddChannel(ctx context.Context, recipientID int64, channel string) (bool, error)
	RemoveChannel(ctx context.Context, recipientID int64, channel string) (bool, error)
	ListChannels(ctx context.Context, recipientID int64) ([]string, error)
	ListAllSubscriptions(ctx context.Context) ([]model.ChannelSubscription, error)
	AnySubscriber(ctx context.Context, channel string) (bool, error)

	CreateTrigger(ctx context.Context, t *model.Trigger) error
	GetTrigger(ctx context.Context, id int64) (*model.Trigger, error)
	ListTriggers(ctx context.Context, recipientID int64) ([]model.Trigger, error)
	DeleteTrigger(ctx context.Context, id int64) error
	TriggersForChannel(ctx context.Context, channel string) ([]model.Trigger, error)

	AddIgnore(ctx context.Context, recipientID int64, username string) (bool, error)
	RemoveIgnore(ctx context.Context, recipientID int64, username string) (bool, error)
	ListIgnores(ctx context.Context, recipientID int64) ([]string, error)
	IgnoresForRecipients(ctx context.Context, recipientIDs []int64) (map[int64][]string, error)

	Close() error
}
