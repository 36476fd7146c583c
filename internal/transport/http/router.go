package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/marketplace/internal/transport/http/handler"
	"github.com/sakashimaa/marketplace/internal/transport/http/middleware"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Product *handler.ProductHandler
	Vendor  *handler.VendorHandler
	Review  *handler.ReviewHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/products", h.Product.List)
	app.Get("/products/:id", h.Product.FindByID)
	app.Get("/products/:id/reviews", h.Review.ListByProduct)

	api := app.Group("/api", middleware.NewAuthMiddleware(jwtSecret))

	order := api.Group("/orders")
	order.Post("", h.Order.Checkout)
	order.Get("/my-orders", h.Order.MyOrders)
	order.Get("/:id", h.Order.GetOrder)
	order.Put("/:id/status", h.Order.UpdateStatus)
	order.Put("/:id/cancel", h.Order.Cancel)

	product := api.Group("/products")
	product.Post("", h.Product.Create)
	product.Put("/:id", h.Product.Update)
	product.Put("/:id/status", h.Product.SetStatus)
	product.Delete("/:id", h.Product.Delete)
	product.Post("/:id/reviews", h.Review.Create)

	vendor := api.Group("/vendors")
	vendor.Post("", h.Vendor.Register)
	vendor.Get("/orders", h.Order.VendorOrders)
	vendor.Get("/:id", h.Vendor.FindByID)
	vendor.Put("/:id/status", h.Vendor.SetStatus)

	api.Delete("/reviews/:id", h.Review.Delete)
}
