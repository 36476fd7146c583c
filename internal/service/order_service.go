package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	outboxDomain "github.com/sakashimaa/marketplace/pkg/outbox/domain"
	"github.com/sakashimaa/marketplace/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CheckoutItem struct {
	ProductID int64  `json:"product" validate:"required,gt=0"`
	Quantity  int32  `json:"quantity" validate:"required,gt=0"`
	Variant   string `json:"variant"`
}

type CheckoutPayment struct {
	Method string `json:"method" validate:"required,oneof=stripe paypal cod"`
}

type CheckoutRequest struct {
	Items           []CheckoutItem  `json:"items" validate:"required,min=1,dive"`
	ShippingAddress domain.Address  `json:"shippingAddress" validate:"required"`
	BillingAddress  *domain.Address `json:"billingAddress"`
	Payment         CheckoutPayment `json:"payment"`
}

type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	Message        string `json:"message"`
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
}

type OrderService interface {
	Checkout(ctx context.Context, customerID int64, req *CheckoutRequest) ([]domain.Order, error)
	GetOrder(ctx context.Context, principal domain.Principal, orderID int64) (*domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error)
	ListVendorOrders(ctx context.Context, principal domain.Principal, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, principal domain.Principal, orderID int64, req *UpdateStatusRequest) (*domain.Order, error)
	Cancel(ctx context.Context, principal domain.Principal, orderID int64, reason string) (*domain.Order, error)
}

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type orderService struct {
	pool        TxBeginner
	logger      *zap.Logger
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	vendorRepo  repository.VendorRepository
	outboxRepo  worker.OutboxRepository
	tracer      trace.Tracer
}

func NewOrderService(
	pool TxBeginner,
	logger *zap.Logger,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	vendorRepo repository.VendorRepository,
	outboxRepo worker.OutboxRepository,
) OrderService {
	return &orderService{
		pool:        pool,
		logger:      logger,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		outboxRepo:  outboxRepo,
		tracer:      otel.Tracer("order_service"),
	}
}

// vendorGroup collects the line items of one vendor. Groups keep the order in
// which their vendor first appeared in the cart, and each becomes one order.
type vendorGroup struct {
	vendorID int64
	items    []domain.OrderItem
}

// Checkout turns a cart into one order per vendor. The whole operation runs in
// a single transaction: products are resolved and availability-checked before
// anything is written, then orders are persisted group by group and stock is
// reserved per line item. Any failure rolls back every group.
func (s *orderService) Checkout(ctx context.Context, customerID int64, req *CheckoutRequest) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Checkout")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.Int("items_count", len(req.Items)),
	)

	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %v", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				shutdownCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	ids := make([]int64, 0, len(req.Items))
	seen := make(map[int64]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	// Validate the whole cart before persisting anything.
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			mylogger.Warn(
				ctx,
				s.logger,
				"Checkout references unknown product",
				zap.Int64("product_id", item.ProductID),
			)

			return nil, fmt.Errorf("product %d: %w", item.ProductID, repository.ErrProductNotFound)
		}

		if !product.Available(int64(item.Quantity)) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Insufficient availability",
				zap.Int64("product_id", item.ProductID),
				zap.Int32("requested", item.Quantity),
				zap.Int64("in_stock", product.StockQuantity),
			)

			return nil, fmt.Errorf("product %d: %w", item.ProductID, repository.ErrInsufficientStock)
		}
	}

	groups := s.partition(req.Items, products)

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	orders := make([]domain.Order, 0, len(groups))
	for _, group := range groups {
		order := domain.Order{
			OrderNumber:  uuid.NewString(),
			CustomerID:   customerID,
			VendorID:     group.vendorID,
			Status:       domain.OrderStatusPending,
			ShippingAddr: req.ShippingAddress,
			BillingAddr:  billing,
			Items:        group.items,
		}

		order.PriceFromItems()
		order.Payment = domain.Payment{
			Method:      domain.PaymentMethod(req.Payment.Method),
			Status:      "pending",
			AmountCents: order.TotalCents,
		}

		if err := s.orderRepo.Create(ctx, tx, &order); err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"Failed to create order",
				zap.Int64("customer_id", customerID),
				zap.Int64("vendor_id", group.vendorID),
				zap.Error(err),
			)

			return nil, fmt.Errorf("failed to create order: %v", err)
		}

		change := domain.StatusChange{
			OrderID: order.ID,
			Status:  domain.OrderStatusPending,
			Message: "Order placed",
			ActorID: customerID,
		}
		if err := s.orderRepo.AppendStatusHistory(ctx, tx, &change); err != nil {
			return nil, err
		}
		order.History = append(order.History, change)

		for _, item := range order.Items {
			remaining, err := s.productRepo.ReserveStock(ctx, tx, item.ProductID, int64(item.Quantity))
			if err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return nil, fmt.Errorf("product %d: %w", item.ProductID, err)
				}

				return nil, err
			}

			if product := products[item.ProductID]; product.TrackQuantity && remaining <= product.LowStockThreshold {
				mylogger.Warn(
					ctx,
					s.logger,
					"Product stock below threshold",
					zap.Int64("product_id", item.ProductID),
					zap.Int64("remaining", remaining),
				)
			}
		}

		if err := s.emitEvent(ctx, tx, order.ID, "OrderCreated", &domain.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			CustomerID:  order.CustomerID,
			VendorID:    order.VendorID,
			TotalCents:  order.TotalCents,
			Items:       itemEvents(order.Items),
		}); err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to commit transaction",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to commit transaction: %v", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Checkout complete",
		zap.Int64("customer_id", customerID),
		zap.Int("orders_created", len(orders)),
	)

	return orders, nil
}

// partition groups cart items by vendor, preserving first-seen vendor order,
// and snapshots product attributes into line items as it goes.
func (s *orderService) partition(items []CheckoutItem, products map[int64]*domain.Product) []vendorGroup {
	var order []int64
	byVendor := make(map[int64]*vendorGroup)

	for _, item := range items {
		product := products[item.ProductID]

		group, ok := byVendor[product.VendorID]
		if !ok {
			group = &vendorGroup{vendorID: product.VendorID}
			byVendor[product.VendorID] = group
			order = append(order, product.VendorID)
		}

		price := product.CurrentPrice()
		group.items = append(group.items, domain.OrderItem{
			ProductID:     product.ID,
			Name:          product.Name,
			ImageUrl:      product.ImageUrl,
			SKU:           product.SKU,
			Variant:       item.Variant,
			PriceCents:    price,
			Quantity:      item.Quantity,
			SubtotalCents: price * int64(item.Quantity),
		})
	}

	groups := make([]vendorGroup, 0, len(order))
	for _, vendorID := range order {
		groups = append(groups, *byVendor[vendorID])
	}

	return groups
}

func (s *orderService) GetOrder(ctx context.Context, principal domain.Principal, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRead(ctx, principal, order); err != nil {
		return nil, err
	}

	return order, nil
}

// authorizeRead admits the owning customer, the owning vendor and admins.
func (s *orderService) authorizeRead(ctx context.Context, principal domain.Principal, order *domain.Order) error {
	if principal.IsAdmin() {
		return nil
	}

	if order.CustomerID == principal.UserID {
		return nil
	}

	if principal.Role == domain.RoleVendor {
		vendor, err := s.vendorRepo.GetByUserID(ctx, principal.UserID)
		if err == nil && vendor.ID == order.VendorID {
			return nil
		}
	}

	return ErrNotAuthorized
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListCustomerOrders")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
	)

	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	return s.orderRepo.ListByCustomer(ctx, customerID, limit, offset, status)
}

func (s *orderService) ListVendorOrders(ctx context.Context, principal domain.Principal, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.ListVendorOrders")
	defer span.End()

	vendor, err := s.vendorRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, 0, err
	}

	if status != "" && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}

	return s.orderRepo.ListByVendor(ctx, vendor.ID, limit, offset, status)
}

// UpdateStatus is the vendor-facing lifecycle transition. Transitions are
// deliberately permissive between non-terminal statuses; terminal statuses are
// frozen, and cancellation goes through Cancel so stock is restored.
func (s *orderService) UpdateStatus(ctx context.Context, principal domain.Principal, orderID int64, req *UpdateStatusRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("new_status", req.Status),
	)

	newStatus := domain.OrderStatus(req.Status)
	if !newStatus.Valid() || newStatus == domain.OrderStatusCancelled {
		return nil, ErrInvalidStatus
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeVendor(ctx, principal, order); err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, ErrOrderFinalized
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.orderRepo.UpdateStatus(ctx, tx, orderID, newStatus); err != nil {
		if errors.Is(err, repository.ErrOrderStateConflict) {
			return nil, ErrOrderFinalized
		}

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to update order status",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, err
	}

	if req.TrackingNumber != "" || req.Carrier != "" {
		if err := s.orderRepo.SetTracking(ctx, tx, orderID, req.TrackingNumber, req.Carrier); err != nil {
			return nil, err
		}
	}

	change := domain.StatusChange{
		OrderID: orderID,
		Status:  newStatus,
		Message: req.Message,
		ActorID: principal.UserID,
	}
	if err := s.orderRepo.AppendStatusHistory(ctx, tx, &change); err != nil {
		return nil, err
	}

	if err := s.emitEvent(ctx, tx, orderID, "OrderStatusChanged", &domain.OrderStatusChangedEvent{
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		OldStatus:   string(order.Status),
		NewStatus:   string(newStatus),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	order.Status = newStatus
	if req.TrackingNumber != "" {
		order.TrackingNumber = req.TrackingNumber
	}
	if req.Carrier != "" {
		order.Carrier = req.Carrier
	}
	order.History = append(order.History, change)

	return order, nil
}

func (s *orderService) authorizeVendor(ctx context.Context, principal domain.Principal, order *domain.Order) error {
	if principal.IsAdmin() {
		return nil
	}

	if principal.Role == domain.RoleVendor {
		vendor, err := s.vendorRepo.GetByUserID(ctx, principal.UserID)
		if err == nil && vendor.ID == order.VendorID {
			return nil
		}
	}

	return ErrNotAuthorized
}

// Cancel is the customer-facing exit: only permitted before shipment, and it
// restores every reserved unit. A product deleted since the order was placed
// is logged and skipped, historical orders never cascade.
func (s *orderService) Cancel(ctx context.Context, principal domain.Principal, orderID int64, reason string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !principal.IsAdmin() && order.CustomerID != principal.UserID {
		return nil, ErrNotAuthorized
	}

	if !order.CanBeCancelled() {
		mylogger.Warn(
			ctx,
			s.logger,
			"Cancel rejected",
			zap.Int64("order_id", orderID),
			zap.String("status", string(order.Status)),
		)

		return nil, ErrOrderNotCancellable
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.orderRepo.SetCancelled(ctx, tx, orderID, reason); err != nil {
		if errors.Is(err, repository.ErrOrderStateConflict) {
			return nil, ErrOrderNotCancellable
		}

		mylogger.Error(
			ctx,
			s.logger,
			"Cancel order failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	change := domain.StatusChange{
		OrderID: orderID,
		Status:  domain.OrderStatusCancelled,
		Message: reason,
		ActorID: principal.UserID,
	}
	if err := s.orderRepo.AppendStatusHistory(ctx, tx, &change); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := s.productRepo.ReleaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				mylogger.Warn(
					ctx,
					s.logger,
					"Product gone, skipping stock restore",
					zap.Int64("product_id", item.ProductID),
					zap.Int32("quantity", item.Quantity),
				)

				continue
			}

			return nil, err
		}
	}

	if err := s.emitEvent(ctx, tx, orderID, "OrderCancelled", &domain.OrderCancelledEvent{
		OrderID:     orderID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Reason:      reason,
		Items:       itemEvents(order.Items),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelReason = reason
	order.History = append(order.History, change)

	return order, nil
}

func (s *orderService) emitEvent(ctx context.Context, tx pgx.Tx, orderID int64, eventType string, payload any) error {
	wrapper := map[string]any{
		"event":   eventType,
		"payload": payload,
	}

	wrapperBytes, err := json.Marshal(wrapper)
	if err != nil {
		return fmt.Errorf("failed to marshal wrapper: %w", err)
	}

	outboxEvent := &outboxDomain.OutboxEvent{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", orderID),
		EventType:     eventType,
		Payload:       wrapperBytes,
		Topic:         "order_events",
	}

	return s.outboxRepo.SaveOutboxEvent(ctx, tx, outboxEvent)
}

func itemEvents(items []domain.OrderItem) []domain.OrderItemEvent {
	events := make([]domain.OrderItemEvent, len(items))
	for i, item := range items {
		events[i] = domain.OrderItemEvent{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	return events
}
