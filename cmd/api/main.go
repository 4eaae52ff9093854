package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/servimatch/backend/internal/auth"
	"github.com/servimatch/backend/internal/billing"
	"github.com/servimatch/backend/internal/config"
	"github.com/servimatch/backend/internal/handlers"
	"github.com/servimatch/backend/internal/lifecycle"
	"github.com/servimatch/backend/internal/middleware"
	"github.com/servimatch/backend/internal/notify"
	"github.com/servimatch/backend/internal/platform"
	"github.com/servimatch/backend/internal/router"
	"github.com/servimatch/backend/internal/store"
	"github.com/servimatch/backend/internal/wallet"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Notification worker + queue client
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewSendNotificationWorker(cfg.WebhookURL, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	enqueuer := notify.NewEnqueuer(func(ctx context.Context, args notify.SendNotificationArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}, logger)

	// Settings cache: Redis when configured, no-op locally
	var settingsCache platform.Cache = platform.NopCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, settings cache disabled", "error", err)
		} else {
			settingsCache = platform.NewRedisCache(rdb, logger)
			slog.Info("Connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	runTx := func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return store.WithTx(ctx, pool, fn)
	}

	platformSvc := platform.NewService(platform.NewRepository(pool), settingsCache, logger)

	walletSvc := wallet.NewService(wallet.NewRepository(pool), runTx)
	billingSvc := billing.NewService(billing.NewRepository(pool), walletSvc, enqueuer, runTx)
	lifecycleSvc := lifecycle.NewService(lifecycle.NewRepository(pool), walletSvc, enqueuer, runTx)

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	walletHandler := &handlers.WalletHandler{Wallet: walletSvc, Logger: logger}
	lifecycleHandler := &handlers.LifecycleHandler{Lifecycle: lifecycleSvc, Settings: platformSvc, Logger: logger}
	billingHandler := &handlers.BillingHandler{Billing: billingSvc, Settings: platformSvc, Logger: logger}
	platformHandler := &handlers.PlatformHandler{Platform: platformSvc, Logger: logger}

	mux := router.New(
		authHandler,
		walletHandler,
		lifecycleHandler,
		billingHandler,
		platformHandler,
		middleware.Authenticate(authSvc),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
