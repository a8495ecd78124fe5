package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/MrJamesThe3rd/stockbook/internal/config"
	"github.com/MrJamesThe3rd/stockbook/internal/database"
	"github.com/MrJamesThe3rd/stockbook/internal/events"
	stockbookHttp "github.com/MrJamesThe3rd/stockbook/internal/http"
	invoiceHandler "github.com/MrJamesThe3rd/stockbook/internal/http/invoice"
	productHandler "github.com/MrJamesThe3rd/stockbook/internal/http/product"
	purchaseHandler "github.com/MrJamesThe3rd/stockbook/internal/http/purchase"
	registryHandler "github.com/MrJamesThe3rd/stockbook/internal/http/registry"
	setupHandler "github.com/MrJamesThe3rd/stockbook/internal/http/setup"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/invoice"
	"github.com/MrJamesThe3rd/stockbook/internal/product"
	"github.com/MrJamesThe3rd/stockbook/internal/purchase"
	"github.com/MrJamesThe3rd/stockbook/internal/registry"
	"github.com/MrJamesThe3rd/stockbook/internal/setup"
	"github.com/MrJamesThe3rd/stockbook/internal/store/memory"
	"github.com/MrJamesThe3rd/stockbook/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	ledger := inventory.NewLedger(cfg.Inventory.SaleAttribution)

	var (
		productService  = product.NewService(repo, ledger)
		invoiceService  = invoice.NewService(repo, ledger, publisher)
		purchaseService = purchase.NewService(repo, ledger, publisher)
		registryService = registry.NewService(repo)
		setupService    = setup.NewService(repo)
	)

	if cfg.Inventory.InitOnStart {
		if _, err := setupService.Initialize(ctx); err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
	}

	router, err := stockbookHttp.New(
		stockbookHttp.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RateLimit:      cfg.HTTP.RateLimit,
			JWTSecret:      cfg.HTTP.JWTSecret,
		},
		productHandler.NewHandler(productService),
		invoiceHandler.NewHandler(invoiceService),
		purchaseHandler.NewHandler(purchaseService),
		registryHandler.NewHandler(registryService),
		setupHandler.NewHandler(setupService),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           http.TimeoutHandler(router, cfg.Server.Timeout, "request timed out"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "store", cfg.Store.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (inventory.Repository, func(), error) {
	if cfg.Store.Driver == config.DriverLocal {
		st, err := memory.Open(cfg.Store.LocalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening local store: %w", err)
		}

		return st, func() {}, nil
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return postgres.New(db), func() { closeDB(db) }, nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("closing database", "error", err)
	}
}

// newPublisher always logs events and also fans them out to Redis and the
// document webhook when those are configured.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	publishers := events.Multi{events.Log{}}
	closers := []func(){}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		publishers = append(publishers, events.NewRedisPublisher(client, cfg.Redis.ChannelPrefix))
		closers = append(closers, func() { _ = client.Close() })
	}

	if cfg.DocumentWebhook.URL != "" {
		publishers = append(publishers, events.NewWebhookPublisher(cfg.DocumentWebhook.URL, cfg.DocumentWebhook.Token))
	}

	return publishers, func() {
		for _, c := range closers {
			c()
		}
	}
}
