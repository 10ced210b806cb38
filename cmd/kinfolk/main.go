package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/dukerupert/kinfolk/internal/analytics"
	"github.com/dukerupert/kinfolk/internal/config"
	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/digest"
	"github.com/dukerupert/kinfolk/internal/kv"
	"github.com/dukerupert/kinfolk/internal/logging"
	"github.com/dukerupert/kinfolk/internal/server"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s\n\n%s\n", os.Args[0], config.Usage())
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Validate already checked both.
	loc, _ := cfg.Location()
	locale, _ := analytics.ParseLocale(cfg.Locale)

	opts := server.Options{
		Locale:         locale,
		Location:       loc,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.Redis.Addr != "" {
		store, err := kv.NewRedis(ctx, kv.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer store.Close()
		opts.KV = store
		logger.Info("using redis key/value store", "addr", cfg.Redis.Addr)
	}

	if cfg.S3.Enabled() {
		opts.S3 = &digest.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,

			Passphrase: cfg.S3.Passphrase,
		}
	}

	srv := server.New(db, opts, logger)
	defer srv.Hub().Close()

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)

	if cfg.Digest.Enabled {
		if err := srv.Digest().Start(cfg.Digest.Schedule); err != nil {
			return err
		}
		defer func() {
			<-srv.Digest().Stop().Done()
		}()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("kinfolk listening", "addr", httpServer.Addr, "env", cfg.Env, "locale", locale, "tz", loc.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
