package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/marketplace/internal/service"
	"github.com/sakashimaa/marketplace/internal/transport/http/middleware"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"github.com/sakashimaa/marketplace/pkg/utils"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	service  service.ReviewService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewReviewHandler(service service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type CreateReviewInput struct {
	Rating  int32  `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	input := new(CreateReviewInput)
	if err := c.BodyParser(input); err != nil {
		h.logger.Warn("failed to parse body in create review", zap.Error(err))
		return respondBadBody(c)
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	review, err := h.service.Create(c.UserContext(), principal, productID, input.Rating, input.Comment)
	if err != nil {
		return respondError(c, h.logger, "create review", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"review created",
		zap.Int64("review_id", review.ID),
		zap.Int64("product_id", productID),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"review":  review,
	})
}

func (h *ReviewHandler) ListByProduct(c *fiber.Ctx) error {
	productID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	limit, offset, err := pagination(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	reviews, total, err := h.service.ListByProduct(c.UserContext(), productID, limit, offset)
	if err != nil {
		return respondError(c, h.logger, "list reviews", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":     true,
		"reviews":     reviews,
		"total_count": total,
	})
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	principal, ok := middleware.PrincipalFromCtx(c)
	if !ok {
		return respondMissingPrincipal(c)
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondInvalidID(c)
	}

	if err := h.service.Delete(c.UserContext(), principal, id); err != nil {
		return respondError(c, h.logger, "delete review", err)
	}

	mylogger.Info(
		c.UserContext(),
		h.logger,
		"review deleted",
		zap.Int64("review_id", id),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
	})
}
