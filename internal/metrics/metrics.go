// Package metrics exposes the Prometheus collectors of the relay pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters.
var (
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_chat_messages_total",
		Help: "Chat messages received from the chat network",
	})
	MatchedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_matched_messages_total",
		Help: "Chat messages that matched at least one recipient",
	})
	NotificationsRouted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notifications_routed_total",
		Help: "Notification events placed on the output queue",
	})
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notifications_dropped_total",
		Help: "Notification events dropped because the output queue was full",
	})
	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notifications_delivered_total",
		Help: "Notification events handed to the delivery surface",
	})
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notifications_failed_total",
		Help: "Notification events the delivery surface failed to send",
	})
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_chat_reconnects_total",
		Help: "Reconnect attempts after recoverable chat connection errors",
	})
	PatternErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_pattern_compile_errors_total",
		Help: "Triggers skipped because their pattern failed to compile",
	})
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_store_query_errors_total",
		Help: "Chat events aborted because a store lookup failed",
	})
)

// JoinedChannels is the number of channels in the connection's channel set.
var JoinedChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "relay_chat_joined_channels",
	Help: "Channels currently in the chat connection's channel set",
})

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
