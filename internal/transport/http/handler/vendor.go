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

type VendorHandler struct {
	service  service.VendorService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewVendorHandler(service service.VendorService, logger *zap.Logger) *VendorHandler {
	return &VendorHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type RegisterVendorInput struct {
	StoreName   string `json:"storeName" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (h *VendorHandler) Register(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	input := new(RegisterVendorInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in register vendor", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	vendor, err := h.service.Register(c.UserContext(), principal, input.StoreName, input.Description)
	if err != nil {
		return respondError(c, h.logger, "register vendor", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"vendor registered",
		zap.Int64("vendor_id", vendor.ID),
		zap.Int64("user_id", principal.UserID),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"vendor":  vendor,
	})
}

func (h *VendorHandler) FindByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	vendor, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, "find vendor", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"vendor":  vendor,
	})
}

type setVendorStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending approved suspended"`
}

func (h *VendorHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(setVendorStatusInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in set vendor status", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	if err := h.service.SetStatus(c.UserContext(), principal, id, domain.VendorStatus(input.Status)); err != nil {
		return respondError(c, h.logger, "set vendor status", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"vendor status updated",
		zap.Int64("vendor_id", id),
		zap.String("status", input.Status),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
