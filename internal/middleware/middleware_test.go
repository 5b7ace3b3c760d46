package middleware

import (
	"TryOnGolang/internal/entity"
	jwtPkg "TryOnGolang/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"io"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newApp(m Middleware) *fiber.App {
	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/limited", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/admin", m.NewTokenMiddleware, func(c *fiber.Ctx) error {
		admin, err := jwtPkg.GetAdminLoginData(c)
		if err != nil {
			return err
		}
		return c.SendString(admin.Username)
	})
	return app
}

func TestRequestIDIsEchoed(t *testing.T) {
	app := newApp(New(testLogger()))

	req := httptest.NewRequest("GET", "/limited", nil)
	req.Header.Set(RequestIDKey, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get(RequestIDKey); got != "req-1" {
		t.Errorf("request id = %q, want req-1", got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/limited", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get(RequestIDKey); len(got) != 26 {
		t.Errorf("generated request id = %q, want a ULID", got)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "1000")
	app := newApp(New(testLogger(), WithRateLimit(1, 2)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/limited", nil))
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		codes = append(codes, resp.StatusCode)
	}

	want := []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes = %v, want %v", codes, want)
		}
	}
}

func TestTokenMiddleware(t *testing.T) {
	t.Setenv(AccessTokenSecret, "test-secret")
	app := newApp(New(testLogger()))

	sign := func(role string) string {
		token, _, err := jwtPkg.Sign(map[string]interface{}{
			"id":       "admin:ops",
			"username": "ops",
			"role":     role,
		}, time.Hour)
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		return token
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: fiber.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: fiber.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: fiber.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + sign("viewer"), want: fiber.StatusForbidden},
		{name: "admin", header: "Bearer " + sign(entity.RoleAdmin), want: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if tt.want == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != "ops" {
					t.Errorf("body = %q, want ops", body)
				}
			}
		})
	}
}

func TestSanitizeRequestBody(t *testing.T) {
	got := sanitizeRequestBody("/api/v1/auth/login", `{"username":"ops","password":"hunter22"}`)
	if got != `{"password":"[SECRET]","username":"[SECRET]"}` {
		t.Errorf("auth body = %s", got)
	}

	got = sanitizeRequestBody("/api/v1/glasses", `{"name":"Grey"}`)
	if got != `{"name":"Grey"}` {
		t.Errorf("catalog body = %s", got)
	}

	if got := sanitizeRequestBody("/api/v1/glasses", "plain"); got != "[non-JSON body]" {
		t.Errorf("non-JSON body = %s", got)
	}
}

func TestValidRequestID(t *testing.T) {
	tests := map[string]bool{
		"":                           false,
		"01HZX3K9Q2W8E7R6T5Y4U3I2O1": true,
		"abc-123_x.y":                true,
		"bad id":                     false,
		"line\nbreak":                false,
	}
	for id, want := range tests {
		if got := validRequestID(id); got != want {
			t.Errorf("validRequestID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestLimitFromEnv(t *testing.T) {
	tests := []struct {
		rps, burst string
		wantLimit  rate.Limit
		wantBurst  int
	}{
		{rps: "", burst: "", wantLimit: defaultRateLimit, wantBurst: defaultBurst},
		{rps: "2.5", burst: "7", wantLimit: 2.5, wantBurst: 7},
		{rps: "-1", burst: "zero", wantLimit: defaultRateLimit, wantBurst: defaultBurst},
	}

	for _, tt := range tests {
		t.Setenv("RATE_LIMIT_RPS", tt.rps)
		t.Setenv("RATE_LIMIT_BURST", tt.burst)
		limit, burst := limitFromEnv()
		if limit != tt.wantLimit || burst != tt.wantBurst {
			t.Errorf("limitFromEnv(%q, %q) = %v, %d; want %v, %d", tt.rps, tt.burst, limit, burst, tt.wantLimit, tt.wantBurst)
		}
	}
}
