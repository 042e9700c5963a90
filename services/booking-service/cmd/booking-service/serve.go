package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/appointbook/libs/config"
	"github.com/md-rashed-zaman/appointbook/libs/db"
	"github.com/md-rashed-zaman/appointbook/libs/httpx"
	"github.com/md-rashed-zaman/appointbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/appointbook/libs/otel"
	"github.com/md-rashed-zaman/appointbook/libs/runtime"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/storage"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC availability service and the outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := runtime.SignalContextFrom(parent)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := time.LoadLocation(config.String("SCHEDULE_TIMEZONE", "UTC"))
	if err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE: %w", err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.OpenWithOptions(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return err
	}
	defer pool.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	store := storage.New(pool)
	resolver := hours.NewResolver(store)
	validator := booking.NewValidator(resolver, conflict.NewDetector(store), m)
	bookings := booking.NewService(validator, store, logger, m)
	computer := availability.NewComputer(resolver, store, loc, m)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outbox.NewRepository(), logger, m, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	limiter, rdb := rateLimit(logger)
	if rdb != nil {
		defer rdb.Close()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())
	handlers.Register(mux,
		handlers.NewBookingHandler(bookings, logger),
		handlers.NewAvailabilityHandler(computer, logger),
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader, httpx.BusinessIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		limiter,
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 15))*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpcserver.NewServer(logger)
	grpcserver.Register(grpcSrv, computer, logger)
	grpcserver.Serve(ctx, logger, grpcSrv, lis)

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// rateLimit picks the shared Redis limiter when REDIS_ADDR is set and the per-process one otherwise.
func rateLimit(logger *slog.Logger) (httpx.Middleware, *redis.Client) {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return httpx.NewRateLimiter(limit, time.Minute).Middleware(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
		DB:       config.Int("REDIS_DB", 0),
	})
	rl := httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "appointbook:ratelimit")
	return rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)), rdb
}
