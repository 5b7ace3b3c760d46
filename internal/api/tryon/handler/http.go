package tryonHandler

import (
	tryonService "TryOnGolang/internal/api/tryon/service"
	"TryOnGolang/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type TryOnHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	tryonService tryonService.ITryOnService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ts tryonService.ITryOnService,
) *TryOnHandler {
	return &TryOnHandler{
		log:          log,
		validator:    validator,
		middleware:   middleware,
		tryonService: ts,
	}
}

func (h *TryOnHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	tryon := srv.Group("/tryon")
	tryon.Use("/ws", wsMiddleware)
	tryon.Get("/ws", websocket.New(h.handleWebSocket))

	tryon.Get("/sessions", h.middleware.NewTokenMiddleware, h.GetSessions)
	tryon.Get("/sessions/:id", h.middleware.NewTokenMiddleware, h.GetSession)
}
