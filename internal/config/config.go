// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	TwitchAddress       string
	NotifyQueueSize     int
	CommandQueueSize    int
	ReconnectMaxRetries int
	ReconnectMaxBackoff time.Duration

	// MetricsAddr enables the Prometheus endpoint when non-empty.
	MetricsAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	notifySize, err := positiveInt("NOTIFY_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	commandSize, err := positiveInt("COMMAND_QUEUE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	maxRetries, err := positiveInt("RECONNECT_MAX_RETRIES", 10)
	if err != nil {
		return nil, err
	}

	maxBackoff := 2 * time.Minute
	if raw := os.Getenv("RECONNECT_MAX_BACKOFF"); raw != "" {
		maxBackoff, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONNECT_MAX_BACKOFF %q: %w", raw, err)
		}
		if maxBackoff <= 0 {
			return nil, fmt.Errorf("RECONNECT_MAX_BACKOFF must be positive, got %s", raw)
		}
	}

	return &Config{
		TelegramBotToken:    token,
		DatabasePath:        envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
		AllowedUsers:        allowedUsers,
		TwitchAddress:       envOrDefault("TWITCH_IRC_ADDRESS", "irc.chat.twitch.tv:6697"),
		NotifyQueueSize:     notifySize,
		CommandQueueSize:    commandSize,
		ReconnectMaxRetries: maxRetries,
		ReconnectMaxBackoff: maxBackoff,
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return n, nil
}
