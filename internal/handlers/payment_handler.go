package handlers

import (
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles payment intent requests.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type paymentIntentRequest struct {
	Timestamp timestamp `json:"timestamp"`
	UUID      string    `json:"uuid" validate:"required"`
	Signature string    `json:"signature"`
	Amount    int64     `json:"amount" validate:"gt=0"`
	Currency  string    `json:"currency" validate:"required"`
}

// RegisterRoutes registers the payment routes with the Fiber app.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Put("/processor/:processor/intent", h.HandleCreateIntent)
}

// HandleCreateIntent forwards a buyer-signed payment intent to the processor.
func (h *PaymentHandler) HandleCreateIntent(c *fiber.Ctx) error {
	var req paymentIntentRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	intent, err := h.service.CreateIntent(c.UserContext(), c.Params("processor"), services.PaymentIntentInput{
		Timestamp: string(req.Timestamp),
		UUID:      req.UUID,
		Signature: req.Signature,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(intent)
}
