package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/internal/service"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.uber.org/zap"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrVendorNotFound),
		errors.Is(err, repository.ErrReviewNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRating):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrVendorNotApproved):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrOrderFinalized),
		errors.Is(err, repository.ErrVendorExists):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, logger *zap.Logger, op string, err error) error {
	code := statusFromError(err)

	if code == fiber.StatusInternalServerError {
		mylogger.Error(c.UserContext(), logger, op+" failed", zap.Error(err))

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": "internal error",
		})
	}

	mylogger.Warn(
		c.UserContext(),
		logger,
		op+" rejected",
		zap.Int("http_code", code),
		zap.Error(err),
	)

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

func respondBadBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "error parsing body",
	})
}

func respondInvalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Id is invalid",
	})
}

func respondMissingPrincipal(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": "Unauthorized: missed user",
	})
}
