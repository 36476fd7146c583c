package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error)
	ListByVendor(ctx context.Context, vendorID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error
	SetTracking(ctx context.Context, tx pgx.Tx, orderID int64, trackingNumber, carrier string) error
	SetCancelled(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error
	AppendStatusHistory(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/order_repo"),
	}
}

func (r *orderRepo) Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_number", order.OrderNumber),
		attribute.Int64("customer_id", order.CustomerID),
		attribute.Int64("vendor_id", order.VendorID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (order_number, customer_id, vendor_id, status,
			subtotal_cents, tax_cents, shipping_cents, total_cents,
			shipping_address, billing_address,
			payment_method, payment_status, payment_amount_cents,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.OrderNumber,
		order.CustomerID,
		order.VendorID,
		string(order.Status),
		order.SubtotalCents,
		order.TaxCents,
		order.ShippingCents,
		order.TotalCents,
		order.ShippingAddr,
		order.BillingAddr,
		string(order.Payment.Method),
		order.Payment.Status,
		order.Payment.AmountCents,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return err
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, name, image_url, sku, variant,
			price_cents, quantity, subtotal_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.Name,
			item.ImageUrl,
			item.SKU,
			item.Variant,
			item.PriceCents,
			item.Quantity,
			item.SubtotalCents,
		).Scan(&item.ID); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert item",
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %v", err)
		}
	}

	return nil
}

const orderColumns = `id, order_number, customer_id, vendor_id, status,
	subtotal_cents, tax_cents, shipping_cents, total_cents,
	shipping_address, billing_address,
	payment_method, payment_status, payment_amount_cents,
	cancel_reason, tracking_number, carrier, created_at, updated_at`

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.VendorID, &o.Status,
		&o.SubtotalCents, &o.TaxCents, &o.ShippingCents, &o.TotalCents,
		&o.ShippingAddr, &o.BillingAddr,
		&o.Payment.Method, &o.Payment.Status, &o.Payment.AmountCents,
		&o.CancelReason, &o.TrackingNumber, &o.Carrier, &o.CreatedAt, &o.UpdatedAt,
	)
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", id),
	)

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1;
	`

	var order domain.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order",
			zap.Int64("order_id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting order: %w", err)
	}

	items, err := r.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	historyQuery := `
		SELECT id, order_id, status, message, actor_id, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC;
	`

	rows, err := r.pool.Query(ctx, historyQuery, id)
	if err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("error querying status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.OrderID,
			&change.Status,
			&change.Message,
			&change.ActorID,
			&change.CreatedAt,
		); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning status history: %w", err)
		}

		order.History = append(order.History, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return &order, nil
}

func (r *orderRepo) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, name, image_url, sku, variant,
			price_cents, quantity, subtotal_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id ASC;
	`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order_items",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error querying order items: %w", err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.ImageUrl,
			&item.SKU,
			&item.Variant,
			&item.PriceCents,
			&item.Quantity,
			&item.SubtotalCents,
		); err != nil {
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}

		result[item.OrderID] = append(result[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *orderRepo) list(ctx context.Context, column string, ownerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	baseQuery := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ` + column + ` = $1`
	countQuery := `SELECT COUNT(*) FROM orders WHERE ` + column + ` = $1`

	args := []interface{}{ownerID}
	argId := 2

	if status != "" {
		filter := fmt.Sprintf(" AND status = $%d", argId)
		baseQuery += filter
		countQuery += filter

		args = append(args, string(status))
		argId++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query orders",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var orderIDs []int64
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, 0, fmt.Errorf("error scanning order: %w", err)
		}

		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(orderIDs) > 0 {
		items, err := r.loadItems(ctx, orderIDs)
		if err != nil {
			return nil, 0, err
		}

		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return orders, totalCount, nil
}

func (r *orderRepo) ListByCustomer(ctx context.Context, customerID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByCustomer")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", customerID),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	return r.list(ctx, "customer_id", customerID, limit, offset, status)
}

func (r *orderRepo) ListByVendor(ctx context.Context, vendorID, limit, offset int64, status domain.OrderStatus) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByVendor")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("vendor_id", vendorID),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	return r.list(ctx, "vendor_id", vendorID, limit, offset, status)
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID int64, status domain.OrderStatus) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", string(status)),
	)

	// Terminal rows are excluded in the WHERE so a transition racing a
	// delivery or cancellation loses at the database, not at a stale read.
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ('delivered', 'cancelled');
	`

	commandTag, err := tx.Exec(ctx, query, string(status), orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(
			ctx,
			r.logger,
			"Order missing or already terminal",
			zap.Int64("order_id", orderID),
		)

		return ErrOrderStateConflict
	}

	return nil
}

func (r *orderRepo) SetTracking(ctx context.Context, tx pgx.Tx, orderID int64, trackingNumber, carrier string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetTracking")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("tracking_number", trackingNumber),
	)

	query := `
		UPDATE orders
		SET tracking_number = $1, carrier = $2, updated_at = NOW()
		WHERE id = $3;
	`

	commandTag, err := tx.Exec(ctx, query, trackingNumber, carrier, orderID)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to set tracking: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) SetCancelled(ctx context.Context, tx pgx.Tx, orderID int64, reason string) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.SetCancelled")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	// The status predicate makes cancellation first-writer-wins: a second
	// cancel, or a cancel racing a shipment, matches zero rows and the stock
	// restore never runs twice.
	query := `
		UPDATE orders
		SET status = 'cancelled', cancel_reason = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'confirmed', 'processing');
	`

	commandTag, err := tx.Exec(ctx, query, reason, orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to cancel order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderStateConflict
	}

	return nil
}

func (r *orderRepo) AppendStatusHistory(ctx context.Context, tx pgx.Tx, change *domain.StatusChange) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.AppendStatusHistory")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", change.OrderID),
		attribute.String("status", string(change.Status)),
	)

	query := `
		INSERT INTO order_status_history (order_id, status, message, actor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		change.OrderID,
		string(change.Status),
		change.Message,
		change.ActorID,
	).Scan(&change.ID, &change.CreatedAt); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to append status history",
			zap.Int64("order_id", change.OrderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to append status history: %w", err)
	}

	return nil
}
