package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/glowstudio/studio/libs/auth"
	"github.com/glowstudio/studio/libs/config"
	"github.com/glowstudio/studio/libs/httpx"
	"github.com/glowstudio/studio/services/booking-service/internal/booking"
	"github.com/glowstudio/studio/services/booking-service/internal/handlers"
	"github.com/glowstudio/studio/services/booking-service/internal/slotcache"
	"github.com/glowstudio/studio/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	svc         *booking.Service
	store       *storage.Store
	cache       *slotcache.Cache
	granularity int
	jwtSecret   string
	logger      *slog.Logger
}

func registerRoutes(mux *http.ServeMux, d routeDeps) {
	bookingHandler := handlers.NewBookingHandler(d.svc, d.store, d.granularity, d.logger)
	scheduleHandler := handlers.NewScheduleHandler(d.store, d.cache, d.logger)
	catalogHandler := handlers.NewCatalogHandler(d.store, d.logger)
	tokenHandler := handlers.NewTokenHandler(handlers.TokenConfig{
		AdminEmail:        config.String("ADMIN_EMAIL", ""),
		AdminPasswordHash: config.String("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         d.jwtSecret,
		TTL:               config.Seconds("ADMIN_TOKEN_TTL_SECONDS", 12*time.Hour),
	}, d.logger)
	webhookHandler := handlers.NewPaymentWebhookHandler(d.svc,
		config.String("STRIPE_WEBHOOK_SECRET", ""),
		config.Seconds("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 5*time.Minute),
		d.logger)

	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/slots/check", bookingHandler.Check)
	mux.HandleFunc("/api/v1/public/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/public/services", catalogHandler.Public)
	mux.HandleFunc("/api/v1/auth/token", tokenHandler.Issue)
	mux.HandleFunc("/api/v1/webhooks/stripe", webhookHandler.Stripe)

	if d.jwtSecret == "" {
		d.logger.Warn("JWT_SECRET not set; admin routes disabled")
	}
	admin := func(h http.HandlerFunc) http.Handler {
		if d.jwtSecret == "" {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "admin api not configured", http.StatusServiceUnavailable)
			})
		}
		return httpx.Chain(h, httpx.RequireAuth(d.jwtSecret), httpx.RequireRole(auth.RoleAdmin))
	}
	mux.Handle("/api/v1/appointments", admin(bookingHandler.List))
	mux.Handle("/api/v1/appointments/status", admin(bookingHandler.UpdateStatus))
	mux.Handle("/api/v1/admin/business-hours", admin(scheduleHandler.BusinessHours))
	mux.Handle("/api/v1/admin/blocked-intervals", admin(scheduleHandler.BlockedIntervals))
	mux.Handle("/api/v1/admin/services", admin(catalogHandler.Admin))
}

func withMiddleware(h http.Handler, rdb *redis.Client, logger *slog.Logger) http.Handler {
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	return httpx.Chain(h,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key"),
			ExposedHeaders: config.List("CORS_EXPOSED_HEADERS", "Idempotent-Replayed,X-Request-Id"),
			MaxAge:         config.Seconds("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
		rateLimitMW,
	)
}
