package config

import (
	"TryOnGolang/pkg/handlerUtil"
	"errors"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"time"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "TryOn Backend",
			BodyLimit:         10 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: true,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ReadTimeout:       30 * time.Second,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				var fiberErr *fiber.Error
				if errors.As(err, &fiberErr) {
					return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
				}
				return handlerUtil.New(logger).Handle(c, "unknown", err, c.Path(), "fiber")
			},
		})

	return app
}
