package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"twitch_notify/internal/bot"
	"twitch_notify/internal/chat"
	"twitch_notify/internal/config"
	"twitch_notify/internal/filter"
	"twitch_notify/internal/metrics"
	"twitch_notify/internal/notify"
	"twitch_notify/internal/relay"
	"twitch_notify/internal/storage"
	"twitch_notify/internal/subscription"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}

	if code := run(cfg, store, log); code != 0 {
		_ = store.Close()
		os.Exit(code)
	}
	_ = store.Close()
}

func run(cfg *config.Config, store *storage.SQLite, log *slog.Logger) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	index := filter.NewIndex(store, log.With("component", "index"))
	engine := filter.NewEngine(index, store, log.With("component", "engine"))
	router := notify.NewRouter(cfg.NotifyQueueSize, log.With("component", "router"))

	conn := chat.New(log.With("component", "chat"), chat.Options{
		Dialer:        chat.TwitchDialer(cfg.TwitchAddress),
		CommandBuffer: cfg.CommandQueueSize,
		MaxBackoff:    cfg.ReconnectMaxBackoff,
		MaxRetries:    cfg.ReconnectMaxRetries,
		OnStateChange: func(s chat.State, channels []string) {
			log.Info("chat connection state", "state", s.String(), "channels", len(channels))
		},
	})

	subs := subscription.New(store, conn, log.With("component", "subscription"))
	channels, err := subs.Load(ctx)
	if err != nil {
		log.Error("load subscriptions", "error", err)
		return 1
	}

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, subs, index, log.With("component", "bot"))
	if err != nil {
		log.Error("create bot", "error", err)
		return 1
	}

	dispatcher := notify.NewDispatcher(router.Queue(), b, log.With("component", "dispatcher"))
	rl := relay.New(engine, router, log.With("component", "relay"))

	log.Info("starting bot", "channels", len(channels), "twitch_address", cfg.TwitchAddress)

	var wg sync.WaitGroup
	if cfg.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMetrics(ctx, cfg.MetricsAddr, log)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	connErr := make(chan error, 1)
	go func() {
		connErr <- conn.Run(ctx, channels, rl.Handle)
		cancel()
	}()

	b.Run(ctx)
	wg.Wait()

	if err := <-connErr; err != nil {
		log.Error("chat connection failed", "error", err)
		return 1
	}
	log.Info("bot stopped", "dropped_notifications", router.Dropped())
	return 0
}

func serveMetrics(ctx context.Context, addr string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
