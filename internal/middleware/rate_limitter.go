package middleware

import (
	"TryOnGolang/pkg/response"
	"github.com/gofiber/fiber/v2"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
	"math"
	"net/http"
	"strconv"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

type rateLimiter struct {
	bucket    cmap.ConcurrentMap[string, *rate.Limiter]
	rate      rate.Limit
	burstSize int
}

func newRateLimiter(reqRate rate.Limit, burstSize int) *rateLimiter {
	return &rateLimiter{
		bucket:    cmap.New[*rate.Limiter](),
		rate:      reqRate,
		burstSize: burstSize,
	}
}

func (r *rateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	if limiter, ok := r.bucket.Get(ip); ok {
		return limiter
	}

	r.bucket.SetIfAbsent(ip, rate.NewLimiter(r.rate, r.burstSize))
	limiter, _ := r.bucket.Get(ip)
	return limiter
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()
	limiter := m.rateLimitter.GetLimiterFrom(clientIP)

	if !limiter.Allow() {
		m.log.WithFields(map[string]interface{}{
			"request_id": m.GetRequestID(ctx),
			"ip":         clientIP,
			"path":       ctx.Path(),
		}).Warn("Too many requests")

		retryAfter := math.Ceil(1 / float64(m.rateLimitter.rate))
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter)))
		return ctx.Status(ErrTooManyRequests.(*response.Error).Code).JSON(fiber.Map{
			"error": "Too many requests",
			"code":  "RATE_LIMITED",
		})
	}

	return ctx.Next()
}
