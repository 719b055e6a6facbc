package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Jis87-63/moz-digital-store/internal/cart"
	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/internal/config"
	"github.com/Jis87-63/moz-digital-store/internal/event"
	handler "github.com/Jis87-63/moz-digital-store/internal/handler/http"
	"github.com/Jis87-63/moz-digital-store/internal/identity"
	"github.com/Jis87-63/moz-digital-store/internal/provider"
	"github.com/Jis87-63/moz-digital-store/internal/provider/gibrapay"
	"github.com/Jis87-63/moz-digital-store/internal/provider/mock"
	mongorepo "github.com/Jis87-63/moz-digital-store/internal/repository/mongo"
	pgrepo "github.com/Jis87-63/moz-digital-store/internal/repository/postgres"
	redisrepo "github.com/Jis87-63/moz-digital-store/internal/repository/redis"
	"github.com/Jis87-63/moz-digital-store/internal/service"
	"github.com/Jis87-63/moz-digital-store/migrations"
	"github.com/Jis87-63/moz-digital-store/pkg/database"
	"github.com/Jis87-63/moz-digital-store/pkg/health"
	pkgkafka "github.com/Jis87-63/moz-digital-store/pkg/kafka"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
	"github.com/Jis87-63/moz-digital-store/pkg/tracing"
)

const (
	serviceName       = "storefront"
	slowQueryLogAfter = 200 * time.Millisecond
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	mongoDB        *mongo.Database
	producer       *pkgkafka.Producer
	carts          *cart.Registry
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Tracing.
	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTELEndpoint
	tcfg.SampleRate = cfg.OTELSampleRate
	tcfg.Enabled = cfg.OTELEnabled
	shutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown
	database.SetSlowQueryLogging(slowQueryLogAfter, logger)

	// PostgreSQL for profiles and credentials.
	a.pool, err = database.NewPostgresPool(ctx, database.DefaultPostgresConfig(cfg.PostgresDSN), logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, serviceName); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	// Redis for carts and revoked sessions.
	a.rdb, err = database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))

	// MongoDB for the catalog, support inbox and images.
	a.mongoDB, err = database.ConnectMongo(ctx, database.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: 50,
	}, logger)
	if err != nil {
		return err
	}
	if err := mongorepo.EnsureIndexes(ctx, a.mongoDB); err != nil {
		return fmt.Errorf("ensure mongo indexes: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

	// Kafka is optional; without it events are dropped.
	var publisher pkgkafka.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Warn("kafka disabled, domain events will not be published")
	}
	events := event.NewProducer(publisher, logger)

	// Repositories.
	mopts := mongorepo.Options{PollInterval: cfg.CatalogPollInterval, Logger: logger}
	products := mongorepo.NewProductRepository(a.mongoDB, mopts)
	categories := mongorepo.NewCategoryRepository(a.mongoDB, mopts)
	banners := mongorepo.NewBannerRepository(a.mongoDB, mopts)
	support := mongorepo.NewSupportRepository(a.mongoDB, mopts)
	media := mongorepo.NewMediaStorage(a.mongoDB)
	users := pgrepo.NewUserRepository(a.pool)

	// Identity.
	idp := identity.NewProvider(identity.Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		TTL:        cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, users, redisrepo.NewRevocationRepository(a.rdb), logger)
	gate := identity.NewGate(idp, users, cfg.ProfileTTL, logger)
	gate.Subscribe(events.IdentityListener())

	// Carts.
	a.carts = cart.NewRegistry(
		redisrepo.NewCartStorage(a.rdb, cfg.CartTTL),
		logger,
		cfg.CartIdleTTL,
		cart.NewMetricsObserver(prometheus.DefaultRegisterer),
		events.CartObserver(),
	)

	// Services.
	checkout := service.NewCheckoutService(a.gateway(), events, logger, service.CheckoutConfig{
		Currency:      cfg.Currency,
		PublicBaseURL: cfg.PublicBaseURL,
		LoginPath:     cfg.LoginPath,
	}, prometheus.DefaultRegisterer)
	admin := service.NewAdminService(service.AdminDeps{
		Products:   products,
		Categories: categories,
		Banners:    banners,
		Support:    support,
		Media:      media,
		Users:      users,
		Profiles:   gate,
	}, cfg.PublicBaseURL, logger)
	supportSvc := service.NewSupportService(support, events, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", a.pool.Ping)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return a.rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterCritical("mongodb", func(ctx context.Context) error {
		return a.mongoDB.Client().Ping(ctx, nil)
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP.
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	router := handler.NewRouter(handler.Deps{
		Catalog:  catalog.New(products, categories, banners, logger),
		Carts:    a.carts,
		Gate:     gate,
		Checkout: checkout,
		Admin:    admin,
		Support:  supportSvc,
		Health:   healthHandler,
		Metrics:  middleware.NewHTTPMetrics(prometheus.DefaultRegisterer, serviceName),
		Limiter:  a.limiter,
	}, handler.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		CatalogMaxAge:  cfg.CatalogMaxAge,
		PprofEnabled:   cfg.PprofEnabled,
		PprofCIDRs:     cfg.PprofCIDRs,
	}, logger)

	// No WriteTimeout: catalog streams stay open. Other routes are bounded by
	// the router's request timeout.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

func (a *App) gateway() provider.Gateway {
	if a.cfg.PaymentProvider == config.ProviderGibrapay {
		a.logger.Info("using gibrapay payment gateway", slog.String("base_url", a.cfg.GibrapayBaseURL))
		return gibrapay.New(gibrapay.Config{
			BaseURL:   a.cfg.GibrapayBaseURL,
			AuthToken: a.cfg.GibrapayAuthToken,
			APIKey:    a.cfg.GibrapayAPIKey,
			WalletID:  a.cfg.GibrapayWallet,
			Timeout:   a.cfg.GibrapayTimeout,
		}, a.logger)
	}
	a.logger.Warn("using mock payment gateway, no real payments will be made")
	return mock.New()
}

// Run starts the HTTP server and background loops and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.carts.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		a.limiter.Run(bgCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stopBackground()
	wg.Wait()

	if err := a.Shutdown(); err != nil {
		return err
	}
	return runErr
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases every connection that was opened, in reverse order.
func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.mongoDB != nil {
		if err := a.mongoDB.Client().Disconnect(ctx); err != nil {
			a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
