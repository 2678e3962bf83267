package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/freightdesk/freightdesk-backend/api"
	"github.com/freightdesk/freightdesk-backend/api/controllers"
	"github.com/freightdesk/freightdesk-backend/api/routes"
	"github.com/freightdesk/freightdesk-backend/internal/auth"
	"github.com/freightdesk/freightdesk-backend/internal/cache"
	"github.com/freightdesk/freightdesk-backend/internal/dashboard"
	"github.com/freightdesk/freightdesk-backend/internal/fleet"
	"github.com/freightdesk/freightdesk-backend/internal/indents"
	"github.com/freightdesk/freightdesk-backend/internal/loadboard"
	"github.com/freightdesk/freightdesk-backend/internal/payments"
	"github.com/freightdesk/freightdesk-backend/internal/trips"
	"github.com/freightdesk/freightdesk-backend/internal/users"
	"github.com/freightdesk/freightdesk-backend/pkg/auth/session"
	"github.com/freightdesk/freightdesk-backend/pkg/config"
	"github.com/freightdesk/freightdesk-backend/pkg/db"
	"github.com/freightdesk/freightdesk-backend/pkg/ledger"
	"github.com/freightdesk/freightdesk-backend/pkg/lifecycle"
	"github.com/freightdesk/freightdesk-backend/pkg/logger"
	"github.com/freightdesk/freightdesk-backend/pkg/metrics"
	"github.com/freightdesk/freightdesk-backend/pkg/migrate"
	"github.com/freightdesk/freightdesk-backend/pkg/outbox"
	"github.com/freightdesk/freightdesk-backend/pkg/redis"
	"github.com/freightdesk/freightdesk-backend/pkg/shortid"
)

const shutdownTimeout = 15 * time.Second

// tripHeaders breaks the construction cycle between payments (which prints
// trip headers on statements) and trips (which seeds payments on assignment).
type tripHeaders struct {
	trips trips.Service
}

func (t *tripHeaders) StatementHeader(ctx context.Context, tripID uuid.UUID) (*payments.StatementHeader, error) {
	if t.trips == nil {
		return nil, nil
	}
	return t.trips.StatementHeader(ctx, tripID)
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"
	if port := os.Getenv("PORT"); port != "" {
		cfg.App.Port = port
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	haltingMode, err := ledger.ParseHaltingMode(cfg.Ledger.HaltingMode)
	if err != nil {
		return err
	}
	indentPolicy, err := lifecycle.IndentPolicy(cfg.Lifecycle.Permissive, cfg.Lifecycle.IndentTable)
	if err != nil {
		return err
	}
	tripPolicy, err := lifecycle.TripPolicy(cfg.Lifecycle.Permissive, cfg.Lifecycle.TripTable)
	if err != nil {
		return err
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.DefaultRegisterer
	transitionMetrics := metrics.NewTransitionMetrics(reg)
	feedMetrics := metrics.NewFeedMetrics(reg)

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	entityCache := cache.New(redisClient, cfg.Cache.TTL, logg)
	ids := shortid.New()

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return err
	}

	fleetService, err := fleet.NewService(fleet.NewRepository(conn))
	if err != nil {
		return err
	}

	indentService, err := indents.NewService(indents.NewRepository(conn), dbClient, emitter, indents.Options{
		Policy:  &indentPolicy,
		IDs:     ids,
		Cache:   entityCache,
		Feed:    loadboard.NewNotifier(redisClient, cfg.Feed.Channel, logg),
		Metrics: transitionMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	headers := &tripHeaders{}
	paymentService, err := payments.NewService(payments.NewRepository(conn), dbClient, emitter, payments.Options{
		HaltingMode: haltingMode,
		Cache:       entityCache,
		Trips:       headers,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	tripService, err := trips.NewService(trips.NewRepository(conn), dbClient, emitter, trips.Deps{
		Indents:  indentService,
		Trucks:   fleetService,
		Payments: paymentService,
	}, trips.Options{
		Policy:  &tripPolicy,
		IDs:     ids,
		Cache:   entityCache,
		Metrics: transitionMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}
	headers.trips = tripService

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(conn), cfg.App.Location(), nil)
	if err != nil {
		return err
	}

	board := loadboard.NewBoard()
	hub := loadboard.NewHub(0, feedMetrics)
	defer hub.Close()
	subscriber, err := loadboard.NewSubscriber(loadboard.SubscriberParams{
		Listener: redisClient,
		Channel:  cfg.Feed.Channel,
		Board:    board,
		Hub:      hub,
		Source:   indentService,
		Cache:    entityCache,
		Metrics:  feedMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"port":        cfg.App.Port,
	})

	if err := subscriber.Seed(ctx); err != nil {
		return err
	}

	server := api.NewServer(cfg, routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,
		Redis:    redisClient,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Gatherer:  prometheus.DefaultGatherer,
		HTTP:      metrics.NewHTTPMetrics(reg),
		Auth:      authService,
		Indents:   indentService,
		Trips:     tripService,
		Payments:  paymentService,
		Fleet:     fleetService,
		Dashboard: dashboardService,
		Board:     board,
		Hub:       hub,
	}))

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := subscriber.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-gctx.Done()
		// Drop stream viewers first; Shutdown does not wait on hijacked or
		// long-lived responses otherwise.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down gracefully")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
