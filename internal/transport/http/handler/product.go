package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/service"
	"github.com/sakashimaa/marketplace/internal/transport/http/middleware"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"github.com/sakashimaa/marketplace/pkg/utils"
	"go.uber.org/zap"
)

type ProductHandler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductHandler(service service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type CreateProductInput struct {
	Name              string `json:"name" validate:"required,min=3,max=100"`
	Description       string `json:"description" validate:"max=1000"`
	SKU               string `json:"sku" validate:"max=64"`
	ImageUrl          string `json:"imageUrl" validate:"omitempty,url"`
	Category          string `json:"category" validate:"required"`
	PriceCents        int64  `json:"priceCents" validate:"required,gt=0"`
	DiscountCents     int64  `json:"discountCents" validate:"gte=0"`
	StockQuantity     int64  `json:"stockQuantity" validate:"gte=0"`
	LowStockThreshold int64  `json:"lowStockThreshold" validate:"gte=0"`
	TrackQuantity     *bool  `json:"trackQuantity"`
	AllowBackorder    bool   `json:"allowBackorder"`
	Status            string `json:"status" validate:"omitempty,oneof=draft active"`
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	input := new(CreateProductInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in create product", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	trackQuantity := true
	if input.TrackQuantity != nil {
		trackQuantity = *input.TrackQuantity
	}

	product := &domain.Product{
		Name:              input.Name,
		Description:       input.Description,
		SKU:               input.SKU,
		ImageUrl:          input.ImageUrl,
		Category:          input.Category,
		PriceCents:        input.PriceCents,
		DiscountCents:     input.DiscountCents,
		StockQuantity:     input.StockQuantity,
		LowStockThreshold: input.LowStockThreshold,
		TrackQuantity:     trackQuantity,
		AllowBackorder:    input.AllowBackorder,
		Status:            domain.ProductStatus(input.Status),
	}

	id, err := h.service.Create(c.UserContext(), principal, product)
	if err != nil {
		return respondError(c, h.logger, "create product", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"product created",
		zap.Int64("product_id", id),
		zap.Int64("vendor_user_id", principal.UserID),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      id,
	})
}

func (h *ProductHandler) FindByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	product, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, "find product", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"product": product,
	})
}

func (h *ProductHandler) List(c *fiber.Ctx) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	search := c.Query("search")

	var vendorID int64
	if raw := c.Query("vendor_id"); raw != "" {
		vendorID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "vendor_id is invalid",
			})
		}
	}

	products, total, err := h.service.List(c.UserContext(), limit, offset, search, vendorID)
	if err != nil {
		return respondError(c, h.logger, "list products", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"products":    products,
		"total_count": total,
	})
}

func (h *ProductHandler) Update(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(domain.UpdateProductInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in update product", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.service.Update(c.UserContext(), principal, id, input); err != nil {
		return respondError(c, h.logger, "update product", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

type setProductStatusInput struct {
	Status string `json:"status" validate:"required,oneof=draft active inactive out_of_stock discontinued"`
}

func (h *ProductHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(setProductStatusInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in set product status", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	if err := h.service.SetStatus(c.UserContext(), principal, id, domain.ProductStatus(input.Status)); err != nil {
		return respondError(c, h.logger, "set product status", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	if err := h.service.Delete(c.UserContext(), principal, id); err != nil {
		return respondError(c, h.logger, "delete product", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"product deleted",
		zap.Int64("product_id", id),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
