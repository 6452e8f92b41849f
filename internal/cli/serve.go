package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/reserve/internal/cache"
	"github.com/lazypower/reserve/internal/config"
	"github.com/lazypower/reserve/internal/engine"
	"github.com/lazypower/reserve/internal/identity"
	"github.com/lazypower/reserve/internal/logging"
	"github.com/lazypower/reserve/internal/metrics"
	"github.com/lazypower/reserve/internal/server"
	"github.com/lazypower/reserve/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.Registry(cfg.Metrics.Namespace)),
	}
	if cfg.Cache.RedisAddr != "" {
		rc := cache.NewRedis(cache.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			UseTLS:   cfg.Cache.RedisTLS,
		}, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			return err
		}
		defer rc.Close()
		opts = append(opts, engine.WithCache(rc))
		logger.Info("summary cache", "backend", "redis", "addr", cfg.Cache.RedisAddr)
	}

	eng := engine.New(db, engine.ConfigFrom(cfg), opts...)
	eng.StartCooldownTimer()
	eng.StartDigestTimer()
	defer eng.Stop()

	resolver := identity.NewResolver(cfg.Identity.JWTSecret, cfg.Identity.JWTIssuer)
	srv := server.New(eng, resolver, logger, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("reserve serving", "addr", addr, "db", dbPath, "tokens", resolver.TokensEnabled())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
