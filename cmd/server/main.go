package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/pricing-engine/internal/api"
	"github.com/atmx/pricing-engine/internal/config"
	"github.com/atmx/pricing-engine/internal/pricing"
	"github.com/atmx/pricing-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := flag.String("config", os.Getenv("PRICER_CONFIG"), "path to an optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize result cache ---
	var cache store.ResultStore
	var cleanup []func()

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis_url", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		rs := store.NewRedisStore(rdb, cfg.CacheTTL)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rs.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Error("redis connection failed", "err", err)
			os.Exit(1)
		}
		cache = rs
		slog.Info("redis result cache enabled", "ttl", cfg.CacheTTL)
	} else {
		slog.Warn("redis_url not set, using in-memory result cache")
		cache = store.NewMemoryStore(cfg.CacheTTL)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- WebSocket hub ---
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := api.NewWSHub()
	go wsHub.Run(hubCtx)

	// --- Pricing service ---
	svc := pricing.NewService(cache, wsHub, pricing.Options{
		Budget:      cfg.Budget(),
		Workers:     cfg.Workers,
		DefaultSeed: cfg.DefaultSeed,
	})

	r := api.NewRouter(svc, api.RouterOptions{Hub: wsHub, Timeout: cfg.RequestTimeout})

	// --- Server ---
	// WriteTimeout leaves room for the request timeout to answer first.
	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("pricing-engine listening",
			"port", cfg.Port,
			"workers", cfg.Workers,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down pricing-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stopHub()
	fmt.Println("pricing-engine stopped")
}
