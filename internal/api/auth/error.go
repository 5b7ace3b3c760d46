package auth

import (
	"TryOnGolang/pkg/response"
	"net/http"
)

var (
	ErrInvalidUsernameOrPassword = response.NewError(http.StatusUnauthorized, "username or password is wrong")
	ErrTooManyLoginAttempts      = response.NewError(http.StatusTooManyRequests, "too many failed login attempts, try again later")
	ErrAdminNotConfigured        = response.NewError(http.StatusServiceUnavailable, "admin login is not configured")
)
