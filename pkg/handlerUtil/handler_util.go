package handlerUtil

import (
	"TryOnGolang/internal/api/catalog"
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/log"
	"TryOnGolang/pkg/response"
	"context"
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed with error response")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}

		body := fiber.Map{"error": err.Error()}
		switch {
		case errors.Is(err, catalog.ErrAssetPathTaken):
			body["code"] = "ASSET_PATH_TAKEN"
		case errors.Is(err, catalog.ErrGlassesNotFound):
			body["code"] = "GLASSES_NOT_FOUND"
		}
		return c.Status(respErr.Code).JSON(body)
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return h.HandleValidationError(c, requestID, err, path)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Operation timed out")
		return h.HandleRequestTimeout(c)
	}

	// Try-on core errors
	if errors.Is(err, session.ErrDetectorInit) {
		h.logger.WithFields(fields).Error("Landmark detector unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Face landmark service unavailable",
			"code":  "DETECTOR_UNAVAILABLE",
		})
	}

	if errors.Is(err, asset.ErrNotFound) {
		h.logger.WithFields(fields).Warn("Model not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Model not found",
			"code":  "MODEL_NOT_FOUND",
		})
	}

	if errors.Is(err, asset.ErrInvalidModel) || errors.Is(err, asset.ErrNoGeometry) {
		h.logger.WithFields(fields).Warn("Model cannot be measured")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Model cannot be measured",
			"code":  "INVALID_MODEL",
		})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
