package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var allKeys = []string{
	"TELEGRAM_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL", "ALLOWED_USERS",
	"TWITCH_IRC_ADDRESS", "NOTIFY_QUEUE_SIZE", "COMMAND_QUEUE_SIZE",
	"RECONNECT_MAX_RETRIES", "RECONNECT_MAX_BACKOFF", "METRICS_ADDR",
}

func defaults(token string) *Config {
	return &Config{
		TelegramBotToken:    token,
		DatabasePath:        "./data/bot.db",
		LogLevel:            "info",
		TwitchAddress:       "irc.chat.twitch.tv:6697",
		NotifyQueueSize:     256,
		CommandQueueSize:    64,
		ReconnectMaxRetries: 10,
		ReconnectMaxBackoff: 2 * time.Minute,
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: defaults("test-token"),
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":    "tok",
				"DATABASE_PATH":         "/tmp/bot.db",
				"LOG_LEVEL":             "debug",
				"ALLOWED_USERS":         "111,222,333",
				"TWITCH_IRC_ADDRESS":    "localhost:6667",
				"NOTIFY_QUEUE_SIZE":     "10",
				"COMMAND_QUEUE_SIZE":    "5",
				"RECONNECT_MAX_RETRIES": "3",
				"RECONNECT_MAX_BACKOFF": "30s",
				"METRICS_ADDR":          ":9090",
			},
			want: &Config{
				TelegramBotToken:    "tok",
				DatabasePath:        "/tmp/bot.db",
				LogLevel:            "debug",
				AllowedUsers:        []int64{111, 222, 333},
				TwitchAddress:       "localhost:6667",
				NotifyQueueSize:     10,
				CommandQueueSize:    5,
				ReconnectMaxRetries: 3,
				ReconnectMaxBackoff: 30 * time.Second,
				MetricsAddr:         ":9090",
			},
		},
		{
			name: "allowed users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: func() *Config {
				c := defaults("tok")
				c.AllowedUsers = []int64{10, 20}
				return c
			}(),
		},
		{
			name: "invalid user id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      "123,abc",
			},
			wantErr: true,
		},
		{
			name: "zero queue size",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"NOTIFY_QUEUE_SIZE":  "0",
			},
			wantErr: true,
		},
		{
			name: "non-numeric retries",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":    "tok",
				"RECONNECT_MAX_RETRIES": "many",
			},
			wantErr: true,
		},
		{
			name: "bad backoff duration",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":    "tok",
				"RECONNECT_MAX_BACKOFF": "soon",
			},
			wantErr: true,
		},
		{
			name: "negative backoff duration",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":    "tok",
				"RECONNECT_MAX_BACKOFF": "-1s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range allKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
