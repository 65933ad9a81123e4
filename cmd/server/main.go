package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"caseledger/internal/identity/resolver"
	"caseledger/internal/platform/config"
	"caseledger/internal/platform/httpserver"
	"caseledger/internal/platform/logger"
	"caseledger/internal/platform/metrics"
	platformredis "caseledger/internal/platform/redis"
	"caseledger/internal/profile"
	profilehandler "caseledger/internal/profile/handler"
	"caseledger/internal/registry"
	"caseledger/internal/registry/store/cached"
	"caseledger/internal/registry/store/memory"
	"caseledger/internal/registry/store/postgres"
	httptransport "caseledger/internal/transport/http"
	"caseledger/pkg/platform/middleware/auth"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store registry.Store
	health := map[string]httptransport.HealthCheck{}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("database pool init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		store = pg
		health["database"] = pool.Ping
	} else {
		// No database configured: an empty in-memory store, for local
		// development against seeded fixtures only.
		log.Warn("DATABASE_URL not set, using in-memory store")
		store = memory.New()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = cached.New(store, redisClient.Client, config.SummaryCacheTTL,
			cached.WithLogger(log),
			cached.WithMetrics(m),
		)
		health["cache"] = redisClient.Health
	}

	res := resolver.New(store,
		resolver.WithLogger(log),
		resolver.WithMetrics(m),
		resolver.WithLookupTimeout(cfg.LookupTimeout),
		resolver.WithRetryAttempts(cfg.RetryAttempts),
	)
	svc := profile.New(store, res,
		profile.WithLogger(log),
		profile.WithMetrics(m),
		profile.WithResolveWorkers(cfg.ResolveWorkers),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Profile:   profilehandler.New(svc, log),
		Validator: auth.NewHMACValidator(cfg.JWTSigningKey),
		Health:    health,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("caseledger listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("caseledger stopped")
}
