package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"registration-service/internal/auth"
	"registration-service/internal/catalog"
	"registration-service/internal/config"
	"registration-service/internal/db"
	"registration-service/internal/health"
	"registration-service/internal/logger"
	"registration-service/internal/messaging"
	"registration-service/internal/metrics"
	"registration-service/internal/middleware"
	"registration-service/internal/realtime"
	"registration-service/internal/registration"
	"registration-service/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun"
)

const (
	roomBufferSize      = 64
	healthProbeInterval = 10 * time.Second
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	telemetry *telemetry.Telemetry
	grpc      *health.GRPCServer

	room     *realtime.Room
	ws       *realtime.Handler
	natsConn *nats.Conn
	consumer *messaging.Consumer
	audit    *messaging.AuditProducer

	stopBackground context.CancelFunc
}

// routes groups everything the router mounts.
type routes struct {
	registrations *registration.Handler
	catalog       *catalog.Handler
	auth          *auth.Handler
	realtime      *realtime.Handler
	health        *health.Handler

	// nil when the respective feature is disabled
	adminOnly   func(http.Handler) http.Handler
	createLimit func(http.Handler) http.Handler
}

func New(ctx context.Context) (*App, error) {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "commit", GitCommit, "built", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	bg, stop := context.WithCancel(context.Background())
	a := &App{
		config:         cfg,
		logger:         slogLogger,
		stopBackground: stop,
	}

	if err := a.init(ctx, bg); err != nil {
		a.release(context.Background())
		return nil, err
	}

	slogLogger.Info("application initialized successfully")
	return a, nil
}

func (a *App) init(ctx, bg context.Context) error {
	cfg := a.config
	log := a.logger

	tel, err := telemetry.Init(ctx, cfg.Telemetry.OTLPEndpoint, ServiceName, Version, cfg.Env, log)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.telemetry = tel

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.db = database

	if err := db.RunMigrations(ctx, database, registration.Models(), registration.Indexes()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	cat := catalog.FromConfig(cfg.Catalog)
	a.room = realtime.NewRoom(roomBufferSize, log)

	dbMetrics, err := metrics.NewDatabaseMetrics(tel.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize database metrics: %w", err)
	}
	if _, err := dbMetrics.RegisterDB(database.DB, tel.Meter); err != nil {
		log.Warn("failed to register database pool metrics", "error", err)
	}

	healthHandler := health.NewHandler(log)
	healthHandler.SetRecorder(tel.Health)
	healthHandler.AddCheck("database", database.PingContext)

	notifiers := a.notifiers(healthHandler)

	if cfg.Server.GRPCPort != "" {
		a.grpc = health.NewGRPCServer(healthHandler, healthProbeInterval, log)
	}

	repo := registration.NewRepository(database, log)
	service := registration.NewService(repo, cat, notifiers, registration.Options{
		Timeout:         cfg.Store.Timeout(),
		DefaultPageSize: cfg.Store.DefaultPageSize,
		MaxPageSize:     cfg.Store.MaxPageSize,
		StatsTTL:        cfg.Store.StatsTTL(),
	}, log, tel.Metrics)

	a.ws = realtime.NewHandler(a.room, cfg.Server.CORSOrigins, log, tel.Metrics)

	r := routes{
		registrations: registration.NewHandler(service, log, cfg.IsDevelopment()),
		catalog:       catalog.NewHandler(cat),
		realtime:      a.ws,
		health:        healthHandler,
	}

	if cfg.Server.CreateRateLimit > 0 {
		r.createLimit = middleware.NewRateLimiter(bg, cfg.Server.CreateRateLimit, cfg.Server.CreateBurst).Middleware
	}

	if cfg.Auth.Enabled {
		authn, err := auth.NewStaticAuthenticator(cfg.Auth.Username, cfg.Auth.PasswordHash)
		if err != nil {
			return err
		}
		tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
		r.auth = auth.NewHandler(auth.NewService(authn, tokens, log), log)
		r.adminOnly = auth.Middleware(tokens, log)
	} else {
		log.Warn("admin authentication disabled")
	}

	a.router = newRouter(cfg, log, r)
	return nil
}

// notifiers picks the sinks for new registrations. Without NATS the local
// room is notified directly; with NATS every instance's consumer feeds its room.
func (a *App) notifiers(healthHandler *health.Handler) []registration.Notifier {
	cfg := a.config
	log := a.logger
	var out []registration.Notifier

	if cfg.NATS.URL != "" {
		conn, err := messaging.Connect(cfg.NATS.URL, ServiceName, log)
		if err != nil {
			log.Warn("failed to connect to NATS, broadcasting locally", "error", err)
		} else {
			consumer := messaging.NewConsumer(conn, cfg.NATS.Subject, a.room, log, a.telemetry.Metrics)
			if err := consumer.Start(); err != nil {
				log.Warn("failed to start NATS consumer, broadcasting locally", "error", err)
				conn.Close()
			} else {
				a.natsConn = conn
				a.consumer = consumer
				healthHandler.AddCheck("nats", func(context.Context) error { return consumer.HealthCheck() })
				out = append(out, messaging.NewProducer(conn, cfg.NATS.Subject, log))
			}
		}
	}
	if a.consumer == nil {
		out = append(out, a.room)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		audit, err := messaging.NewAuditProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Warn("failed to initialize kafka audit producer", "error", err)
		} else {
			a.audit = audit
			out = append(out, audit)
		}
	}

	return out
}

func newRouter(cfg *config.Config, log *slog.Logger, r routes) chi.Router {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	r.health.RegisterRoutes(router)

	router.Route("/api", func(api chi.Router) {
		api.Use(chimw.Compress(5))
		r.catalog.RegisterRoutes(api)
		if r.auth != nil {
			r.auth.RegisterRoutes(api)
		}
		r.registrations.RegisterRoutes(api, r.adminOnly, r.createLimit)
	})

	r.realtime.RegisterRoutes(router, r.adminOnly)

	return router
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	if a.grpc != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		go func() {
			if err := a.grpc.Serve(lis); err != nil {
				a.logger.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes the websocket connections (which
// http.Server.Shutdown does not track) and releases every dependency.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.ws != nil {
		if err := a.ws.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("websocket shutdown: %w", err))
		}
	}
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if a.grpc != nil {
		a.grpc.Stop()
	}

	a.release(ctx)
	return errors.Join(errs...)
}

func (a *App) release(ctx context.Context) {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("failed to close NATS consumer", "error", err)
		}
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.natsConn.Close()
		}
	}
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn("failed to close kafka audit producer", "error", err)
		}
	}
	if a.room != nil {
		a.room.Close()
	}
	if a.db != nil {
		db.Close(a.db)
	}
	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
	a.stopBackground()
}
