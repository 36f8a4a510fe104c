// Command server runs the blood bank HTTP API. Storage is selected at boot:
// PostgreSQL when DATABASE_URL is set, otherwise in-memory stores suitable
// for development and tests. REDIS_URL optionally enables the inventory
// snapshot cache.
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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	identityhandler "github.com/sou1357/bloodbankapp/internal/identity/handler"
	identityservice "github.com/sou1357/bloodbankapp/internal/identity/service"
	identitystore "github.com/sou1357/bloodbankapp/internal/identity/store"
	"github.com/sou1357/bloodbankapp/internal/identity/token"
	inventorycache "github.com/sou1357/bloodbankapp/internal/inventory/cache"
	inventoryhandler "github.com/sou1357/bloodbankapp/internal/inventory/handler"
	inventoryservice "github.com/sou1357/bloodbankapp/internal/inventory/service"
	inventorystore "github.com/sou1357/bloodbankapp/internal/inventory/store"
	"github.com/sou1357/bloodbankapp/internal/issuance"
	"github.com/sou1357/bloodbankapp/internal/platform/config"
	"github.com/sou1357/bloodbankapp/internal/platform/httpserver"
	"github.com/sou1357/bloodbankapp/internal/platform/logger"
	"github.com/sou1357/bloodbankapp/internal/platform/metrics"
	"github.com/sou1357/bloodbankapp/internal/platform/middleware"
	platformredis "github.com/sou1357/bloodbankapp/internal/platform/redis"
	requesthandler "github.com/sou1357/bloodbankapp/internal/request/handler"
	requestservice "github.com/sou1357/bloodbankapp/internal/request/service"
	requeststore "github.com/sou1357/bloodbankapp/internal/request/store"
	"github.com/sou1357/bloodbankapp/pkg/platform/httputil"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()
	tokens := token.NewService(cfg.JWTSigningKey, cfg.TokenTTL)

	var (
		users     identityservice.UserStore
		requests  requestservice.Store
		ledger    inventoryservice.Store
		decrement issuance.Ledger
		txRunner  issuance.StoreTx
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		users = identitystore.NewPostgres(db)
		pgRequests := requeststore.NewPostgres(db)
		pgLedger := inventorystore.NewPostgres(db)
		requests, ledger, decrement = pgRequests, pgLedger, pgLedger
		txRunner = issuance.NewPostgresTx(db)
		log.Info("storage backend ready", "backend", "postgres")
	} else {
		memRequests := requeststore.NewInMemory()
		memLedger := inventorystore.NewInMemory()
		users = identitystore.NewInMemory()
		requests, ledger, decrement = memRequests, memLedger, memLedger
		txRunner = issuance.NewMemoryTx()
		log.Info("storage backend ready", "backend", "memory")
	}

	inventoryOpts := []inventoryservice.Option{inventoryservice.WithLogger(log)}
	var snapshots *inventorycache.AvailabilityCache
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		snapshots = inventorycache.New(redisClient.Client, config.AvailabilityCacheTTL)
		inventoryOpts = append(inventoryOpts, inventoryservice.WithSnapshotCache(snapshots))
		log.Info("inventory snapshot cache enabled")
	}

	identitySvc := identityservice.New(users, tokens, identityservice.WithLogger(log))
	inventorySvc := inventoryservice.New(ledger, inventoryOpts...)
	requestSvc := requestservice.New(requests, identitySvc,
		requestservice.WithLogger(log),
		requestservice.WithMetrics(m),
	)

	issuerOpts := []issuance.Option{
		issuance.WithLogger(log),
		issuance.WithMetrics(m),
	}
	if snapshots != nil {
		issuerOpts = append(issuerOpts, issuance.WithSnapshotInvalidator(snapshots))
	}
	issuer := issuance.New(requests, decrement, txRunner, issuerOpts...)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.ContentTypeJSON)

	identityhandler.New(identitySvc, tokens, log).Register(r)
	inventoryhandler.New(inventorySvc, tokens, log).Register(r)
	requesthandler.New(requestSvc, issuer, tokens, log).Register(r)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
