// Package app wires the reconciliation engine, its stores, the provider
// adapters, and the HTTP surface into a running service.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/topup-reconciler/internal/domain/order"
	domainprovider "github.com/xenking/topup-reconciler/internal/domain/provider"
	"github.com/xenking/topup-reconciler/internal/handler"
	"github.com/xenking/topup-reconciler/internal/provider"
	"github.com/xenking/topup-reconciler/internal/reconcile"
	"github.com/xenking/topup-reconciler/internal/storage"
	"github.com/xenking/topup-reconciler/internal/storage/memory"
	"github.com/xenking/topup-reconciler/internal/storage/postgres"
	"github.com/xenking/topup-reconciler/pkg/health"
	"github.com/xenking/topup-reconciler/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the scheduler and the HTTP server, and
// handles graceful shutdown. It is the single wiring point for the service.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))
	ctx = zctx.Base(ctx, lg)

	// The in-memory store is authoritative; a configured database adds a
	// durable write-through mirror rehydrated at boot.
	memStore := memory.NewOrderStore()
	var store order.Store = memStore

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		pgStore := postgres.NewOrderStore(pool)
		n, err := storage.Load(ctx, pgStore, memStore)
		if err != nil {
			return errors.Wrap(err, "load orders from mirror")
		}
		lg.Info("Loaded orders from mirror", zap.Int("count", n))

		store = storage.NewMirrored(memStore, pgStore)
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}

	if cfg.SeedFile != "" {
		n, err := seedOrders(ctx, store, cfg.SeedFile)
		if err != nil {
			return errors.Wrap(err, "seed orders")
		}
		lg.Info("Seeded orders", zap.Int("count", n), zap.String("file", cfg.SeedFile))
	}

	// Provider adapters: only configured providers are registered, orders for
	// anything else are excluded from polling.
	var checkers []domainprovider.Checker
	if cfg.Providers.Airtel.BaseURL != "" {
		checkers = append(checkers, provider.NewAirtel(
			cfg.Providers.Airtel.BaseURL, cfg.Providers.Airtel.Token, cfg.Check.Timeout))
	}
	if cfg.Providers.MTN.BaseURL != "" {
		checkers = append(checkers, provider.NewMTN(
			cfg.Providers.MTN.BaseURL, cfg.Providers.MTN.APIKey, cfg.Check.Timeout))
	}
	registry := domainprovider.NewRegistry(checkers...)
	lg.Info("Registered providers", zap.Int("count", len(checkers)))

	checker := reconcile.NewChecker(registry)
	reconciler, err := reconcile.NewReconciler(store, checker, m.MeterProvider(), cfg.Check.Concurrency)
	if err != nil {
		return errors.Wrap(err, "create reconciler")
	}
	scheduler := reconcile.NewScheduler(reconciler, checker, store, cfg.Check.Interval)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Router: health endpoints + API routes on one server.
	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	mux.Mount("/api", handler.NewHandler(store, scheduler).Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := scheduler.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "scheduler")
		}
		return nil
	})

	g.Go(func() error {
		// Graceful shutdown: drain readiness, then stop the server.
		<-gCtx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
