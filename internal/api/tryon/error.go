package tryon

import (
	"TryOnGolang/pkg/response"
	"net/http"
)

var (
	ErrConnectionNotFound = response.NewError(http.StatusNotFound, "try-on connection not found")
	ErrInvalidCommand     = response.NewError(http.StatusBadRequest, "invalid try-on command")
	ErrSessionNotStarted  = response.NewError(http.StatusConflict, "no try-on session, send a start command first")
	ErrTooManyConnections = response.NewError(http.StatusServiceUnavailable, "too many try-on connections")
)
