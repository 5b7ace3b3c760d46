package catalogHandler

import (
	catalogService "TryOnGolang/internal/api/catalog/service"
	"TryOnGolang/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CatalogHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	catalogService catalogService.ICatalogService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs catalogService.ICatalogService,
) *CatalogHandler {
	return &CatalogHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		catalogService: cs,
	}
}

func (h *CatalogHandler) Start(srv fiber.Router) {
	glasses := srv.Group("/glasses")

	// Public endpoints (no auth required)
	glasses.Get("", h.GetAllGlasses)
	glasses.Get("/stats", h.GetStats)
	glasses.Get("/:id", h.GetGlassesByID)

	// Catalog writes (requires admin token)
	glasses.Post("", h.middleware.NewTokenMiddleware, h.CreateGlasses)
	glasses.Put("/:id", h.middleware.NewTokenMiddleware, h.UpdateGlasses)
	glasses.Delete("/:id", h.middleware.NewTokenMiddleware, h.DeleteGlasses)
}
