package jwtPkg

import (
	"TryOnGolang/internal/entity"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
	"time"
)

const (
	AccessTokenSecretKey = "JWT_ACCESS_TOKEN_SECRET"

	adminLocalsKey = "admin"
	bearerPrefix   = "Bearer "
)

var (
	ErrSecretNotSet  = errors.New("jwt secret not configured")
	ErrMissingBearer = errors.New("missing bearer token")
	ErrIncomplete    = errors.New("token claims are missing required fields")
)

// AdminClaims is the payload carried by an admin access token.
type AdminClaims struct {
	AdminID  string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Sign issues an HS256 access token holding data, valid for ttl. It returns
// the token and its expiry as a unix timestamp.
func Sign(data map[string]interface{}, ttl time.Duration) (string, int64, error) {
	secret := os.Getenv(AccessTokenSecretKey)
	if secret == "" {
		return "", 0, fmt.Errorf("%s: %w", AccessTokenSecretKey, ErrSecretNotSet)
	}

	now := time.Now()
	expiresAt := now.Add(ttl).Unix()

	claims := jwt.MapClaims{
		"iat":           now.Unix(),
		"exp":           expiresAt,
		"authorization": true,
	}
	for k, v := range data {
		claims[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign access token")
		return "", 0, err
	}

	return signed, expiresAt, nil
}

// BearerToken pulls the token out of an Authorization header value.
func BearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrMissingBearer
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}

// ParseAdminToken verifies token against the secret stored in secretEnvKey.
// Only HS256 tokens with an expiry are accepted.
func ParseAdminToken(token, secretEnvKey string) (entity.AdminLoginData, error) {
	secret := os.Getenv(secretEnvKey)
	if secret == "" {
		return entity.AdminLoginData{}, fmt.Errorf("%s: %w", secretEnvKey, ErrSecretNotSet)
	}

	var claims AdminClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return entity.AdminLoginData{}, err
	}

	if claims.AdminID == "" || claims.Username == "" {
		return entity.AdminLoginData{}, ErrIncomplete
	}

	return entity.AdminLoginData{
		ID:       claims.AdminID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

func SetAdminLoginData(c *fiber.Ctx, admin entity.AdminLoginData) {
	c.Locals(adminLocalsKey, admin)
}

func GetAdminLoginData(c *fiber.Ctx) (entity.AdminLoginData, error) {
	admin, ok := c.Locals(adminLocalsKey).(entity.AdminLoginData)
	if !ok {
		return entity.AdminLoginData{}, fiber.ErrUnauthorized
	}
	return admin, nil
}
