package middleware

import (
	"TryOnGolang/internal/entity"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"os"
	"strconv"
)

const (
	defaultRateLimit = 50
	defaultBurst     = 100
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewTokenMiddleware(ctx *fiber.Ctx) error
	NewLoggingMiddleware(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

type Option func(*options)

type options struct {
	limit rate.Limit
	burst int
	role  string
}

// WithRateLimit overrides the per-IP limit read from the environment.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(o *options) {
		o.limit = limit
		o.burst = burst
	}
}

// WithRole sets the token role admitted by NewTokenMiddleware.
func WithRole(role string) Option {
	return func(o *options) {
		o.role = role
	}
}

// limitFromEnv reads RATE_LIMIT_RPS and RATE_LIMIT_BURST, ignoring values
// that do not parse or are not positive.
func limitFromEnv() (rate.Limit, int) {
	limit := rate.Limit(defaultRateLimit)
	if v, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64); err == nil && v > 0 {
		limit = rate.Limit(v)
	}

	burst := defaultBurst
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST")); err == nil && v > 0 {
		burst = v
	}

	return limit, burst
}

type middleware struct {
	token               *tokenMiddleware
	rateLimitter        *rateLimiter
	loggingMiddleware   *loggingMiddleware
	requestIDMiddleware fiber.Handler
	log                 *logrus.Logger
}

func New(logger *logrus.Logger, opts ...Option) Middleware {
	limit, burst := limitFromEnv()
	o := options{limit: limit, burst: burst, role: entity.RoleAdmin}
	for _, opt := range opts {
		opt(&o)
	}

	logger.WithFields(logrus.Fields{
		"rate_limit": float64(o.limit),
		"burst":      o.burst,
	}).Debug("Middleware configured")

	return &middleware{
		token:               newTokenMiddleware(o.role),
		rateLimitter:        newRateLimiter(o.limit, o.burst),
		loggingMiddleware:   newLoggingMiddleware(logger),
		requestIDMiddleware: NewRequestIDMiddleware(),
		log:                 logger,
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	if requestID, ok := ctx.Locals(RequestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}
