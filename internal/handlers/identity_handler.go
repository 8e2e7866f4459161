package handlers

import (
	"encoding/json"
	"errors"

	"storefront/internal/errs"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IdentityHandler handles HTTP requests for signer identities.
type IdentityHandler struct {
	service  *services.IdentityService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(service *services.IdentityService, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type registerRequest struct {
	Timestamp timestamp `json:"timestamp"`
	PubKey    string    `json:"pubKey" validate:"required"`
	Signature string    `json:"signature"`
}

// RegisterRoutes registers the identity routes with the Fiber app.
func (h *IdentityHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/user")
	userRoutes.Put("/create", h.HandleRegister)
	userRoutes.Get("/:uuid", h.HandleGetIdentity)
	userRoutes.Put("/:uuid/processor/:processor", h.HandleAttachProcessor)
}

// HandleRegister registers a public key.
func (h *IdentityHandler) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	identity, err := h.service.Register(c.UserContext(), string(req.Timestamp), req.PubKey, req.Signature)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(identity)
}

// HandleGetIdentity returns the signer's own identity. Unknown identities and bad
// signatures look the same from outside.
func (h *IdentityHandler) HandleGetIdentity(c *fiber.Ctx) error {
	identity, err := h.service.Get(c.UserContext(), c.Params("uuid"), c.Query("timestamp"), c.Query("signature"))
	if err != nil {
		if errors.Is(err, errs.ErrAuth) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(identity)
}

type attachProcessorRequest struct {
	Timestamp timestamp `json:"timestamp"`
	Signature string    `json:"signature"`
}

// HandleAttachProcessor links a payment processor account. The whole body is
// forwarded to the splitting service.
func (h *IdentityHandler) HandleAttachProcessor(c *fiber.Ctx) error {
	var req attachProcessorRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	body := json.RawMessage(append([]byte(nil), c.Body()...))
	account, err := h.service.AttachProcessor(c.UserContext(), c.Params("uuid"), c.Params("processor"), string(req.Timestamp), req.Signature, body)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(account)
}
