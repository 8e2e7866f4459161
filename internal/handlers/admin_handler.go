package handlers

import (
	"encoding/json"

	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminHandler handles the operator routes: token issue, order overview, reindex and
// the trusted spell path.
type AdminHandler struct {
	tokens   *services.OperatorTokenService
	orders   *services.OrderService
	reindex  *services.ReindexService
	spells   *services.SpellService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(tokens *services.OperatorTokenService, orders *services.OrderService, reindex *services.ReindexService, spells *services.SpellService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		tokens:   tokens,
		orders:   orders,
		reindex:  reindex,
		spells:   spells,
		validate: validator.New(),
		logger:   logger,
	}
}

type operatorTokenRequest struct {
	Timestamp timestamp `json:"timestamp"`
	UUID      string    `json:"uuid" validate:"required"`
	Signature string    `json:"signature"`
}

// RegisterRoutes registers the operator routes. Everything except token issue requires
// an operator bearer token.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/admin/token", h.HandleIssueToken)

	protected := middleware.OperatorRequired(h.tokens, h.logger)
	adminRoutes := router.Group("/admin", protected)
	adminRoutes.Get("/orders", h.HandleListAllOrders)
	adminRoutes.Post("/reindex", h.HandleReindex)

	router.Post("/magic/spell/:spellName", protected, h.HandleCastSpell)
}

// HandleIssueToken exchanges a signed operator request for a bearer token.
func (h *AdminHandler) HandleIssueToken(c *fiber.Ctx) error {
	var req operatorTokenRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	token, err := h.tokens.IssueToken(c.UserContext(), req.UUID, string(req.Timestamp), req.Signature)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

// HandleListAllOrders returns every order.
func (h *AdminHandler) HandleListAllOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListAllOrders(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(orders)
}

// HandleReindex rebuilds every secondary index.
func (h *AdminHandler) HandleReindex(c *fiber.Ctx) error {
	h.logger.Info("reindex requested", zap.Any("operator", c.Locals(middleware.OperatorUUIDKey)))
	result, err := h.reindex.Reindex(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(result)
}

// HandleCastSpell runs a spell forwarded by an operator.
func (h *AdminHandler) HandleCastSpell(c *fiber.Ctx) error {
	payload := json.RawMessage(append([]byte(nil), c.Body()...))
	result, err := h.spells.Cast(c.UserContext(), c.Params("spellName"), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"success": true, "result": result})
}
