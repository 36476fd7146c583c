package service_test

import (
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/internal/service"
)

func (s *IntegrationTestSuite) TestCheckoutPersistsOrdersPerVendor() {
	vendorA := s.createVendor(10, domain.VendorStatusApproved)
	vendorB := s.createVendor(20, domain.VendorStatusApproved)
	productA := s.createProduct(vendorA.ID, 2000, 10)
	productB := s.createProduct(vendorB.ID, 5000, 10)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: productA.ID, Quantity: 2},
		service.CheckoutItem{ProductID: productB.ID, Quantity: 2},
	))
	s.Require().NoError(err)
	s.Require().Len(orders, 2)

	s.Equal(int64(2), s.countRows("orders"))
	s.Equal(int64(2), s.countRows("order_items"))
	s.Equal(int64(2), s.countRows("order_status_history"))
	s.Equal(int64(2), s.countRows("outbox"))

	// Pricing is computed per vendor order.
	first, err := s.OrderRepo.GetByID(s.Ctx, orders[0].ID)
	s.Require().NoError(err)
	s.Equal(int64(4000), first.SubtotalCents)
	s.Equal(int64(320), first.TaxCents)
	s.Equal(int64(599), first.ShippingCents)
	s.Equal(int64(4919), first.TotalCents)
	s.Require().Len(first.Items, 1)
	s.Equal(int32(2), first.Items[0].Quantity)
	s.Require().Len(first.History, 1)
	s.Equal(domain.OrderStatusPending, first.History[0].Status)

	second, err := s.OrderRepo.GetByID(s.Ctx, orders[1].ID)
	s.Require().NoError(err)
	s.Equal(int64(10000), second.SubtotalCents)
	s.Equal(int64(0), second.ShippingCents)
	s.Equal(int64(10800), second.TotalCents)

	// Stock was reserved for both products.
	got, err := s.ProductRepo.GetByID(s.Ctx, productA.ID)
	s.Require().NoError(err)
	s.Equal(int64(8), got.StockQuantity)
}

func (s *IntegrationTestSuite) TestCheckoutInsufficientStockRollsBackEverything() {
	vendorA := s.createVendor(10, domain.VendorStatusApproved)
	vendorB := s.createVendor(20, domain.VendorStatusApproved)
	productA := s.createProduct(vendorA.ID, 2000, 10)
	productB := s.createProduct(vendorB.ID, 3000, 1)

	_, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: productA.ID, Quantity: 2},
		service.CheckoutItem{ProductID: productB.ID, Quantity: 5},
	))
	s.Require().ErrorIs(err, repository.ErrInsufficientStock)

	s.Equal(int64(0), s.countRows("orders"))
	s.Equal(int64(0), s.countRows("order_items"))
	s.Equal(int64(0), s.countRows("outbox"))

	got, err := s.ProductRepo.GetByID(s.Ctx, productA.ID)
	s.Require().NoError(err)
	s.Equal(int64(10), got.StockQuantity)
}

func (s *IntegrationTestSuite) TestReserveStockFlipsStatusWhenDepleted() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 2)

	_, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 2},
	))
	s.Require().NoError(err)

	got, err := s.ProductRepo.GetByID(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(int64(0), got.StockQuantity)
	s.Equal(domain.ProductStatusOutOfStock, got.Status)
}

func (s *IntegrationTestSuite) TestCancelRestoresStockAndRecordsHistory() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 3},
	))
	s.Require().NoError(err)
	s.Require().Len(orders, 1)

	cancelled, err := s.OrderService.Cancel(
		s.Ctx,
		domain.Principal{UserID: 7, Role: domain.RoleCustomer},
		orders[0].ID,
		"ordered by mistake",
	)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.Equal("ordered by mistake", cancelled.CancelReason)

	got, err := s.ProductRepo.GetByID(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(int64(5), got.StockQuantity)

	reloaded, err := s.OrderRepo.GetByID(s.Ctx, orders[0].ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, reloaded.Status)
	s.Require().Len(reloaded.History, 2)
	s.Equal(domain.OrderStatusCancelled, reloaded.History[1].Status)

	// Placed + cancelled events await the outbox worker.
	s.Equal(int64(2), s.countRows("outbox"))
}

func (s *IntegrationTestSuite) TestCancelIsFirstWriterWins() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 3},
	))
	s.Require().NoError(err)

	customer := domain.Principal{UserID: 7, Role: domain.RoleCustomer}
	_, err = s.OrderService.Cancel(s.Ctx, customer, orders[0].ID, "first")
	s.Require().NoError(err)

	_, err = s.OrderService.Cancel(s.Ctx, customer, orders[0].ID, "second")
	s.Require().ErrorIs(err, service.ErrOrderNotCancellable)

	// The restore ran once: stock is back to 5, not 8.
	got, err := s.ProductRepo.GetByID(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(int64(5), got.StockQuantity)

	reloaded, err := s.OrderRepo.GetByID(s.Ctx, orders[0].ID)
	s.Require().NoError(err)
	s.Equal("first", reloaded.CancelReason)
	s.Len(reloaded.History, 2)
}

func (s *IntegrationTestSuite) TestOrderWritesGuardAgainstStaleReads() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 1},
	))
	s.Require().NoError(err)

	principal := domain.Principal{UserID: 10, Role: domain.RoleVendor}
	_, err = s.OrderService.UpdateStatus(s.Ctx, principal, orders[0].ID, &service.UpdateStatusRequest{
		Status: "shipped",
	})
	s.Require().NoError(err)

	// Cancelling writes through to a shipped row and must match nothing,
	// even when a caller raced past the snapshot check.
	tx, err := s.DbPool.Begin(s.Ctx)
	s.Require().NoError(err)
	err = s.OrderRepo.SetCancelled(s.Ctx, tx, orders[0].ID, "raced")
	s.Require().ErrorIs(err, repository.ErrOrderStateConflict)
	s.Require().NoError(tx.Rollback(s.Ctx))

	cancelled, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 1},
	))
	s.Require().NoError(err)
	_, err = s.OrderService.Cancel(s.Ctx, domain.Principal{UserID: 7, Role: domain.RoleCustomer}, cancelled[0].ID, "")
	s.Require().NoError(err)

	// Same guard on plain status updates against a cancelled row.
	tx, err = s.DbPool.Begin(s.Ctx)
	s.Require().NoError(err)
	err = s.OrderRepo.UpdateStatus(s.Ctx, tx, cancelled[0].ID, domain.OrderStatusConfirmed)
	s.Require().ErrorIs(err, repository.ErrOrderStateConflict)
	s.Require().NoError(tx.Rollback(s.Ctx))
}

func (s *IntegrationTestSuite) TestUpdateStatusPersistsTracking() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 1},
	))
	s.Require().NoError(err)

	principal := domain.Principal{UserID: 10, Role: domain.RoleVendor}
	_, err = s.OrderService.UpdateStatus(s.Ctx, principal, orders[0].ID, &service.UpdateStatusRequest{
		Status:         "shipped",
		Message:        "handed to carrier",
		TrackingNumber: "TRK-42",
		Carrier:        "DHL",
	})
	s.Require().NoError(err)

	reloaded, err := s.OrderRepo.GetByID(s.Ctx, orders[0].ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusShipped, reloaded.Status)
	s.Equal("TRK-42", reloaded.TrackingNumber)
	s.Equal("DHL", reloaded.Carrier)

	// Shipped orders can no longer be cancelled.
	_, err = s.OrderService.Cancel(s.Ctx, domain.Principal{UserID: 7, Role: domain.RoleCustomer}, orders[0].ID, "")
	s.Require().ErrorIs(err, service.ErrOrderNotCancellable)
}

func (s *IntegrationTestSuite) TestOrderItemsSnapshotSurvivesProductEdit() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	orders, err := s.OrderService.Checkout(s.Ctx, 7, checkoutRequest(
		service.CheckoutItem{ProductID: product.ID, Quantity: 1},
	))
	s.Require().NoError(err)

	newPrice := int64(9999)
	newName := "Renamed Product"
	err = s.ProductRepo.Update(s.Ctx, product.ID, &domain.UpdateProductInput{
		PriceCents: &newPrice,
		Name:       &newName,
	})
	s.Require().NoError(err)

	reloaded, err := s.OrderRepo.GetByID(s.Ctx, orders[0].ID)
	s.Require().NoError(err)
	s.Require().Len(reloaded.Items, 1)
	s.Equal(int64(2000), reloaded.Items[0].PriceCents)
	s.Equal("Test Product", reloaded.Items[0].Name)
}

func (s *IntegrationTestSuite) TestReviewRecomputesAggregates() {
	vendor := s.createVendor(10, domain.VendorStatusApproved)
	product := s.createProduct(vendor.ID, 2000, 5)

	customerA := domain.Principal{UserID: 7, Role: domain.RoleCustomer}
	customerB := domain.Principal{UserID: 8, Role: domain.RoleCustomer}

	_, err := s.ReviewService.Create(s.Ctx, customerA, product.ID, 4, "good")
	s.Require().NoError(err)
	review, err := s.ReviewService.Create(s.Ctx, customerB, product.ID, 5, "excellent")
	s.Require().NoError(err)

	got, err := s.ProductRepo.GetByID(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.InDelta(4.5, got.RatingAvg, 0.001)
	s.Equal(int64(2), got.RatingCount)

	gotVendor, err := s.VendorRepo.GetByID(s.Ctx, vendor.ID)
	s.Require().NoError(err)
	s.InDelta(4.5, gotVendor.RatingAvg, 0.001)
	s.Equal(int64(2), gotVendor.RatingCount)

	s.Require().NoError(s.ReviewService.Delete(s.Ctx, customerB, review.ID))

	got, err = s.ProductRepo.GetByID(s.Ctx, product.ID)
	s.Require().NoError(err)
	s.InDelta(4.0, got.RatingAvg, 0.001)
	s.Equal(int64(1), got.RatingCount)
}
