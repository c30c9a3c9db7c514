package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/set-night/coworker"
	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/config"
	"github.com/set-night/coworker/internal/escalation"
	"github.com/set-night/coworker/internal/handler"
	"github.com/set-night/coworker/internal/middleware"
	"github.com/set-night/coworker/internal/repository"
	"github.com/set-night/coworker/internal/service"
	"github.com/set-night/coworker/internal/storage"
	"github.com/set-night/coworker/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.BotToken == "" {
		slog.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	api := service.New(cfg)
	reg := chat.NewRegistry(api, provider, chat.WithLanguage(cfg.DefaultLanguage))
	flows := escalation.NewFlows()

	b, err := bot.New(cfg.BotToken,
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewChatLimiter(cfg.RateLimitPerMinute, config.RateLimitBurst)),
			middleware.Workspace(reg),
		),
		bot.WithDefaultHandler(func(context.Context, *bot.Bot, *models.Update) {}),
	)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	h := handler.New(handler.Deps{
		Bot:       b,
		Cfg:       cfg,
		API:       api,
		Counters:  service.NewCounterCache(api, config.CounterCacheDuration),
		Profiles:  service.NewProfileService(api),
		Flows:     flows,
		OpsLogger: telegram.NewOpsLogger(b, cfg),
	})
	h.Register()

	// Everything that is not a command is a question for the assistant.
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.HandleText)

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	slog.Info("starting bot", "username", me.Username, "storage", cfg.StorageDriver, "mock_api", cfg.UseMockAPI)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}

// openStorage returns the provider selected by STORAGE_DRIVER and a func that
// releases its connections.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Provider, func(), error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		migrationsFS, err := fs.Sub(coworker.MigrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return storage.NewPostgres(pool), pool.Close, nil
	case config.StorageRedis:
		client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client), func() {
			if err := client.Close(); err != nil {
				slog.Warn("close redis client", "error", err)
			}
		}, nil
	default:
		return storage.NewMemoryProvider(), func() {}, nil
	}
}

// serveMetrics exposes the Prometheus registry on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "error", err)
	}
}
