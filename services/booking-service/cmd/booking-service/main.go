package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/glowstudio/studio/libs/config"
	"github.com/glowstudio/studio/libs/db"
	"github.com/glowstudio/studio/libs/grpcx"
	"github.com/glowstudio/studio/libs/kafkax"
	otelx "github.com/glowstudio/studio/libs/otel"
	"github.com/glowstudio/studio/libs/runtime"
	"github.com/glowstudio/studio/services/booking-service/internal/availability"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/grpcserver"
	"github.com/glowstudio/studio/services/booking-service/internal/outbox"
	"github.com/glowstudio/studio/services/booking-service/internal/payments"
	"github.com/glowstudio/studio/services/booking-service/internal/slotcache"
	"github.com/glowstudio/studio/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func parseReminderOffsets(raw []string, logger *slog.Logger) []time.Duration {
	var offsets []time.Duration
	for _, part := range raw {
		mins, err := strconv.Atoi(part)
		if err != nil || mins <= 0 {
			logger.Warn("invalid reminder offset", "value", part)
			continue
		}
		offsets = append(offsets, time.Duration(mins)*time.Minute)
	}
	return offsets
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer runtime.Shutdown(logger, "otel", 5*time.Second, otelShutdown)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	loc, err := config.Location("BUSINESS_TIMEZONE")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", "")), Optional: true},
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		// The slot cache and rate limiter both degrade without redis.
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	cache := slotcache.New(rdb, config.Seconds("SLOT_CACHE_TTL_SECONDS", time.Minute), logger)

	outboxRepo := outbox.NewRepository()
	store := storage.NewStore(pool, outboxRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	var gateway payments.Gateway = payments.Noop{}
	if key := config.String("STRIPE_SECRET_KEY", ""); key != "" {
		gateway = payments.NewStripeGateway(key)
	}

	granularity := config.Int("SLOT_GRANULARITY_MINUTES", availability.DefaultGranularityMinutes)
	bookingService := booking.NewService(store, cache, gateway, logger, booking.Config{
		Availability: availability.Config{
			GranularityMinutes: granularity,
			RequireFit:         config.Bool("SLOT_REQUIRE_FIT", true),
		},
		Location:             loc,
		EnforceBusinessHours: config.Bool("ENFORCE_BUSINESS_HOURS", true),
		ReminderOffsets:      parseReminderOffsets(config.List("REMINDER_OFFSETS_MINUTES", "1440,60"), logger),
		DepositPercent:       config.Int("DEPOSIT_PERCENT", 0),
	})

	grpcServer := grpcx.NewServer(logger)
	grpcserver.Register(grpcServer, bookingService, granularity, logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	grpcx.Serve(ctx, logger, grpcServer, lis)

	mux := runtime.NewBaseMuxWithReady(checks...)
	registerRoutes(mux, routeDeps{
		svc:         bookingService,
		store:       store,
		cache:       cache,
		granularity: granularity,
		jwtSecret:   config.String("JWT_SECRET", ""),
		logger:      logger,
	})

	httpHandler := otelhttp.NewHandler(withMiddleware(mux, rdb, logger), "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	runtime.Shutdown(logger, "http server", config.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second), srv.Shutdown)
}
