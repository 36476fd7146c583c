package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/internal/service"
	"github.com/sakashimaa/marketplace/internal/transport/http/middleware"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"github.com/sakashimaa/marketplace/pkg/utils"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	userRepo repository.UserRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(service service.OrderService, userRepo repository.UserRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		userRepo: userRepo,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	input := new(service.CheckoutRequest)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in checkout", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	orders, err := h.service.Checkout(c.UserContext(), principal.UserID, input)
	if err != nil {
		return respondError(c, h.logger, "checkout", err)
	}

	if principal.Email != "" {
		if err := h.userRepo.Save(c.UserContext(), &repository.User{
			ID:    principal.UserID,
			Email: principal.Email,
		}); err != nil {
			mylogger.Warn(c.UserContext(), h.logger, "failed to record customer email", zap.Error(err))
		}
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"checkout succeeded",
		zap.Int64("customer_id", principal.UserID),
		zap.Int("orders", len(orders)),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"orders":  orders,
	})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	order, err := h.service.GetOrder(c.UserContext(), principal, id)
	if err != nil {
		return respondError(c, h.logger, "get order", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

func (h *OrderHandler) MyOrders(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	status, err := statusFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	orders, total, err := h.service.ListCustomerOrders(c.UserContext(), principal.UserID, limit, offset, status)
	if err != nil {
		return respondError(c, h.logger, "list my orders", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"orders":      orders,
		"total_count": total,
	})
}

func (h *OrderHandler) VendorOrders(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	status, err := statusFilter(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	orders, total, err := h.service.ListVendorOrders(c.UserContext(), principal, limit, offset, status)
	if err != nil {
		return respondError(c, h.logger, "list vendor orders", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"orders":      orders,
		"total_count": total,
	})
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(service.UpdateStatusRequest)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in update status", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	order, err := h.service.UpdateStatus(c.UserContext(), principal, id, input)
	if err != nil {
		return respondError(c, h.logger, "update order status", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"order status updated",
		zap.Int64("order_id", id),
		zap.String("status", input.Status),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

type cancelInput struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(cancelInput)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(input); err != nil {
			h.logger.Warn("failed to parse body in cancel", zap.Error(err))
			return respondBadBody(c)
		}
	}

	order, err := h.service.Cancel(c.UserContext(), principal, id, input.Reason)
	if err != nil {
		return respondError(c, h.logger, "cancel order", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"order cancelled",
		zap.Int64("order_id", id),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

func pagination(c *fiber.Ctx) (int64, int64, error) {
	limit := int64(20)
	offset := int64(0)

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 || parsed > 100 {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "limit is invalid")
		}
		limit = parsed
	}

	// Either a 1-based page or a raw offset addresses the window; an explicit
	// offset takes precedence when both are sent.
	switch {
	case c.Query("offset") != "":
		parsed, err := strconv.ParseInt(c.Query("offset"), 10, 64)
		if err != nil || parsed < 0 {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "offset is invalid")
		}
		offset = parsed
	case c.Query("page") != "":
		parsed, err := strconv.ParseInt(c.Query("page"), 10, 64)
		if err != nil || parsed <= 0 {
			return 0, 0, fiber.NewError(fiber.StatusBadRequest, "page is invalid")
		}
		offset = (parsed - 1) * limit
	}

	return limit, offset, nil
}

func statusFilter(c *fiber.Ctx) (domain.OrderStatus, error) {
	raw := c.Query("status")
	if raw == "" {
		return "", nil
	}

	status := domain.OrderStatus(raw)
	if !status.Valid() {
		return "", fiber.NewError(fiber.StatusBadRequest, "status is invalid")
	}

	return status, nil
}
