package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/errs"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps err to its HTTP status and body. Auth failures always share one
// body so a caller cannot tell which check failed.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	switch {
	case errors.Is(err, errs.ErrAuth):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "auth error"})
	case errors.Is(err, errs.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, errs.ErrDuplicateKey):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "duplicate key"})
	case errors.Is(err, errs.ErrValidation):
		body := fiber.Map{"error": "validation error"}
		if fields := fieldErrors(err); len(fields) > 0 {
			body["errors"] = fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.Is(err, errs.ErrPartialWrite):
		logger.Warn("partial write", zap.String("path", c.Path()), zap.Error(err))
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "partial write failure",
			"message": "the request may be retried",
		})
	case errors.Is(err, errs.ErrUpstream):
		logger.Warn("upstream failure", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream error"})
	default:
		logger.Error("request failed", zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server error"})
	}
}

func fieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	out := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		out[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return out
}

// parseBody decodes the JSON body into out and validates it.
func parseBody(c *fiber.Ctx, validate *validator.Validate, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("invalid request body: %w: %w", errs.ErrValidation, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid request body: %w: %w", errs.ErrValidation, err)
	}
	return nil
}

// timestamp accepts a JSON string or number and keeps its literal digits, which are
// part of the signed message.
type timestamp string

func (t *timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or a number")
	}
	*t = timestamp(n.String())
	return nil
}
