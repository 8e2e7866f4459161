package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Headers carrying the signature of a multipart upload.
const (
	HeaderTimestamp    = "x-pn-timestamp"
	HeaderSignature    = "x-pn-signature"
	HeaderArtifactType = "x-pn-artifact-type"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type upsertProductRequest struct {
	Timestamp timestamp `json:"timestamp"`
	Signature string    `json:"signature"`
	models.ProductFields
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Put("/user/:uuid/product/:title", h.HandleUpsertProduct)
	router.Put("/user/:uuid/product/:title/image", h.HandleAttachImage)
	router.Put("/user/:uuid/product/:title/artifact", h.HandleAttachArtifact)

	productRoutes := router.Group("/products")
	productRoutes.Get("/base", h.HandleListAllProducts)
	productRoutes.Get("/:uuid", h.HandleListProducts)
	productRoutes.Get("/:uuid/:title", h.HandleGetProduct)
	productRoutes.Get("/:uuid/:title/:type", h.HandleProductPage)

	router.Get("/images/:ref", h.HandleGetBlob)
	router.Get("/artifacts/:ref", h.HandleGetBlob)
}

// HandleUpsertProduct creates or updates a product.
func (h *ProductHandler) HandleUpsertProduct(c *fiber.Ctx) error {
	var req upsertProductRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	product, err := h.service.UpsertProduct(c.UserContext(), c.Params("uuid"), c.Params("title"), services.UpsertProductInput{
		Timestamp: string(req.Timestamp),
		Signature: req.Signature,
		Fields:    req.ProductFields,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleAttachImage replaces the product image with the multipart "image" file.
func (h *ProductHandler) HandleAttachImage(c *fiber.Ctx) error {
	up, err := h.readUpload(c, "image", "")
	if err != nil {
		return respondError(c, h.logger, err)
	}
	product, err := h.service.AttachImage(c.UserContext(), c.Params("uuid"), c.Params("title"), up)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleAttachArtifact appends the multipart "artifact" file to the product.
func (h *ProductHandler) HandleAttachArtifact(c *fiber.Ctx) error {
	up, err := h.readUpload(c, "artifact", c.Get(HeaderArtifactType))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	product, err := h.service.AttachArtifact(c.UserContext(), c.Params("uuid"), c.Params("title"), up)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleListAllProducts returns every seller's products.
func (h *ProductHandler) HandleListAllProducts(c *fiber.Ctx) error {
	products, err := h.service.ListAllProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(products)
}

// HandleListProducts returns a seller's products keyed by title.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(products)
}

// HandleGetProduct returns one product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("uuid"), c.Params("title"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(product)
}

// HandleProductPage renders the product page for a template type.
func (h *ProductHandler) HandleProductPage(c *fiber.Ctx) error {
	page, err := h.service.RenderPage(c.UserContext(), c.Params("uuid"), c.Params("title"), c.Params("type"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(page)
}

// HandleGetBlob serves an uploaded image or artifact.
func (h *ProductHandler) HandleGetBlob(c *fiber.Ctx) error {
	ref := c.Params("ref")
	data, err := h.service.OpenBlob(c.UserContext(), ref)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if ext := filepath.Ext(ref); ext != "" {
		c.Type(strings.TrimPrefix(ext, "."))
	} else {
		c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	}
	return c.Send(data)
}

func (h *ProductHandler) readUpload(c *fiber.Ctx, field, artifactType string) (services.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, fmt.Errorf("multipart field %q is required: %w", field, errs.ErrValidation)
	}
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}

	ext := filepath.Ext(fh.Filename)
	if artifactType != "" {
		ext = "." + strings.TrimPrefix(artifactType, ".")
	}
	return services.Upload{
		Timestamp: c.Get(HeaderTimestamp),
		Signature: c.Get(HeaderSignature),
		Data:      data,
		Ext:       ext,
	}, nil
}
