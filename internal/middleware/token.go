package middleware

import (
	jwtPkg "TryOnGolang/pkg/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = jwtPkg.AccessTokenSecretKey
)

type tokenMiddleware struct {
	role string
}

func newTokenMiddleware(role string) *tokenMiddleware {
	return &tokenMiddleware{role: role}
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}

// NewTokenMiddleware admits requests carrying a valid admin bearer token
// and stores the caller in the request locals.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	fields := logrus.Fields{
		"request_id": m.GetRequestID(ctx),
		"path":       ctx.Path(),
		"client_ip":  ctx.IP(),
	}

	token, err := jwtPkg.BearerToken(ctx.Get(fiber.HeaderAuthorization))
	if err != nil {
		m.log.WithFields(fields).Warn("Authorization header is missing or malformed")
		return unauthorized(ctx)
	}

	admin, err := jwtPkg.ParseAdminToken(token, AccessTokenSecret)
	if err != nil {
		fields["error"] = err.Error()
		m.log.WithFields(fields).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	if admin.Role != m.token.role {
		fields["username"] = admin.Username
		fields["role"] = admin.Role
		m.log.WithFields(fields).Warn("Token role not allowed")
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden",
		})
	}

	jwtPkg.SetAdminLoginData(ctx, admin)

	m.log.WithField("username", admin.Username).Debug("Authentication successful")
	return ctx.Next()
}
