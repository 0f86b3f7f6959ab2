package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/order"
	"github.com/ShreyanshuGhosh/nitebite/internal/handler"
	"github.com/ShreyanshuGhosh/nitebite/internal/remote"
	"github.com/ShreyanshuGhosh/nitebite/internal/session"
	"github.com/ShreyanshuGhosh/nitebite/internal/storage/memory"
	"github.com/ShreyanshuGhosh/nitebite/internal/storage/postgres"
	redisstore "github.com/ShreyanshuGhosh/nitebite/internal/storage/redis"
	"github.com/ShreyanshuGhosh/nitebite/pkg/health"
	"github.com/ShreyanshuGhosh/nitebite/pkg/httpmiddleware"
)

const (
	serviceName          = "nitebite-storefront"
	couponRefreshPeriod  = 5 * time.Minute
	sessionSweepInterval = time.Minute
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pricing, err := cfg.Pricing.Pricing()
	if err != nil {
		return errors.Wrap(err, "pricing")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slots, rdb, err := cartStates(lg, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// Repositories.
	catalog := postgres.NewCatalog(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Independent startup work.
	var filter *coupon.CodeFilter
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := coupon.LoadCodeFilter(gctx, couponRepo)
		if err != nil {
			return err
		}
		filter = f
		return nil
	})
	if rdb != nil {
		g.Go(func() error {
			return errors.Wrap(rdb.Ping(gctx).Err(), "ping redis")
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "startup")
	}

	// Domain services.
	couponService := coupon.NewService(couponRepo, filter, lg.Named("coupon"))
	orderService := order.NewService(orderRepo, couponService,
		order.Payee{VPA: cfg.UPI.VPA, Name: cfg.UPI.Name, Note: cfg.UPI.Note},
		m.TracerProvider().Tracer("nitebite/order"),
		lg.Named("order"),
	)

	var stock cart.StockChecker
	if cfg.StockTracking {
		stock = remote.NewStockGuard(catalog, cfg.Breaker, lg.Named("stock"))
	}
	sessions := session.NewRegistry(session.Deps{
		Slots:    slots,
		Stock:    stock,
		Coupons:  remote.NewCouponGuard(couponService, cfg.Breaker, lg.Named("coupon")),
		Notifier: handler.NoticeSink,
		Pricing:  pricing,
		Logger:   lg.Named("cart"),
		Meter:    m.MeterProvider().Meter("nitebite/cart"),
	}, cfg.Sessions.Idle)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool.Ping))
	if rdb != nil {
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h, err := handler.New(
		handler.Config{
			ImageBaseURL:  cfg.ImageBaseURL,
			SessionTTL:    cfg.Sessions.TTL,
			SecureCookies: cfg.Sessions.SecureCookies,
		},
		handler.Deps{
			Catalog:  catalog,
			Sessions: sessions,
			Coupons:  couponService,
			Orders:   orderService,
			Auth:     auth.NewSigner([]byte(cfg.AuthSecret)),
			Meter:    m.MeterProvider().Meter("nitebite/storefront"),
		},
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

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
				Origins:     cfg.CORS.Origins,
				Headers:     []string{"Content-Type", "Authorization", handler.HeaderSessionID},
				Expose:      []string{handler.HeaderSessionID, httpmiddleware.HeaderRequestID},
				Credentials: cfg.CORS.AllowCredentials,
				MaxAge:      86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
		),
	}

	// Background workers stop with ctx.
	go func() {
		_ = sessions.Run(ctx, sessionSweepInterval)
	}()
	go refreshCoupons(ctx, lg, filter, couponRepo)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// cartStates picks Redis when configured and process memory otherwise.
func cartStates(lg *zap.Logger, cfg *Config) (session.Slots, *redis.Client, error) {
	if cfg.RedisURL == "" {
		lg.Warn("No Redis configured, carts are kept in memory")
		return memory.NewCartStates(), nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)
	return redisstore.NewCartStates(rdb, cfg.Sessions.TTL), rdb, nil
}

// refreshCoupons keeps the code filter in step with coupons created after
// startup.
func refreshCoupons(ctx context.Context, lg *zap.Logger, f *coupon.CodeFilter, repo coupon.Repository) {
	ticker := time.NewTicker(couponRefreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Refresh(ctx, repo); err != nil {
				lg.Warn("Coupon filter refresh failed", zap.Error(err))
			}
		}
	}
}
