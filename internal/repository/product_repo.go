package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]*domain.Product, error)
	List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error)
	Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error
	SetStatus(ctx context.Context, id int64, status domain.ProductStatus) error
	SoftDelete(ctx context.Context, id int64) error
	ReserveStock(ctx context.Context, tx pgx.Tx, id, quantity int64) (int64, error)
	ReleaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error
	UpdateRating(ctx context.Context, tx pgx.Tx, productID int64) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/product_repo"),
	}
}

const productColumns = `id, vendor_id, name, description, sku, image_url, category,
	price_cents, discount_cents, stock_quantity, low_stock_threshold,
	track_quantity, allow_backorder, status, rating_avg, rating_count,
	created_at, updated_at`

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.VendorID, &p.Name, &p.Description, &p.SKU, &p.ImageUrl, &p.Category,
		&p.PriceCents, &p.DiscountCents, &p.StockQuantity, &p.LowStockThreshold,
		&p.TrackQuantity, &p.AllowBackorder, &p.Status, &p.RatingAvg, &p.RatingCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", product.Name),
		attribute.Int64("vendor_id", product.VendorID),
	)

	query := `
		INSERT INTO products (vendor_id, name, description, sku, image_url, category,
			price_cents, discount_cents, stock_quantity, low_stock_threshold,
			track_quantity, allow_backorder, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id;
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		product.VendorID,
		product.Name,
		product.Description,
		product.SKU,
		product.ImageUrl,
		product.Category,
		product.PriceCents,
		product.DiscountCents,
		product.StockQuantity,
		product.LowStockThreshold,
		product.TrackQuantity,
		product.AllowBackorder,
		product.Status,
	).Scan(&product.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating product",
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating product: %w", err)
	}

	return product.ID, nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND deleted_at IS NULL;
	`

	var res domain.Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error get by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

// GetByIDs resolves cart references inside the checkout transaction. A missing
// id is reported by the caller, not here: the result map simply lacks the key.
func (r *productRepo) GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByIDs")
	defer span.End()

	span.SetAttributes(
		attribute.Int("id_count", len(ids)),
	)

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL;
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error querying products by ids",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error querying products: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]*domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)

			return nil, fmt.Errorf("error scanning product: %w", err)
		}

		result[p.ID] = &p
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.List")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
		attribute.String("search", search),
	)

	baseQuery := `SELECT ` + productColumns + `
		FROM products
		WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`

	var args []interface{}
	argId := 1

	if search != "" {
		filter := fmt.Sprintf(" AND name ILIKE $%d", argId)
		baseQuery += filter
		countQuery += filter

		args = append(args, "%"+search+"%")
		argId++
	}

	if vendorID > 0 {
		filter := fmt.Sprintf(" AND vendor_id = $%d", argId)
		baseQuery += filter
		countQuery += filter

		args = append(args, vendorID)
		argId++
	}

	countArgs := make([]interface{}, len(args))
	copy(countArgs, args)

	baseQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argId, argId+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, baseQuery, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting products",
			zap.String("search", search),
			zap.Int64("limit", limit),
			zap.Int64("offset", offset),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error selecting products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to scan rows",
				zap.Error(err),
			)

			return nil, 0, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)

		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var totalCount int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to count products",
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	return products, totalCount, nil
}

func (r *productRepo) Update(ctx context.Context, id int64, input *domain.UpdateProductInput) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `UPDATE products SET `
	var args []interface{}
	argId := 1

	var updates []string

	appendUpdate := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argId))
		args = append(args, value)
		argId++
	}

	if input.Name != nil {
		appendUpdate("name", *input.Name)
	}
	if input.Description != nil {
		appendUpdate("description", *input.Description)
	}
	if input.SKU != nil {
		appendUpdate("sku", *input.SKU)
	}
	if input.ImageUrl != nil {
		appendUpdate("image_url", *input.ImageUrl)
	}
	if input.Category != nil {
		appendUpdate("category", *input.Category)
	}
	if input.PriceCents != nil {
		appendUpdate("price_cents", *input.PriceCents)
	}
	if input.DiscountCents != nil {
		appendUpdate("discount_cents", *input.DiscountCents)
	}
	if input.StockQuantity != nil {
		appendUpdate("stock_quantity", *input.StockQuantity)
	}
	if input.LowStockThreshold != nil {
		appendUpdate("low_stock_threshold", *input.LowStockThreshold)
	}
	if input.TrackQuantity != nil {
		appendUpdate("track_quantity", *input.TrackQuantity)
	}
	if input.AllowBackorder != nil {
		appendUpdate("allow_backorder", *input.AllowBackorder)
	}

	if len(updates) == 0 {
		return nil
	}

	updates = append(updates, "updated_at = NOW()")

	query += strings.Join(updates, ", ")
	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argId)
	args = append(args, id)

	commandTag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update product",
			zap.Int64("id", id),
		)

		return fmt.Errorf("error updating product: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) SetStatus(ctx context.Context, id int64, status domain.ProductStatus) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.SetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE products
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to set product status",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error setting product status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *productRepo) SoftDelete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.SoftDelete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		UPDATE products
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	commandTag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error deleting product by id: %v", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ReserveStock decrements inventory in one conditional statement so that
// concurrent checkouts cannot both take the last unit. The WHERE clause admits
// untracked and backorderable products unconditionally; for tracked products
// it requires sufficient stock, and the decrement clamps at zero. Returns the
// remaining quantity.
func (r *productRepo) ReserveStock(ctx context.Context, tx pgx.Tx, id, quantity int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ReserveStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("quantity", quantity),
	)

	query := `
		UPDATE products
		SET stock_quantity = GREATEST(stock_quantity - $2, 0),
			status = CASE
				WHEN track_quantity AND NOT allow_backorder
					AND stock_quantity - $2 <= 0 AND status = 'active'
				THEN 'out_of_stock' ELSE status
			END,
			updated_at = NOW()
		WHERE id = $1
			AND deleted_at IS NULL
			AND (track_quantity = false OR allow_backorder = true OR stock_quantity >= $2)
		RETURNING stock_quantity;
	`

	var remaining int64
	if err := tx.QueryRow(ctx, query, id, quantity).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientStock
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error reserving stock",
			zap.Int64("id", id),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error reserving stock for product %d: %w", id, err)
	}

	return remaining, nil
}

// ReleaseStock restores inventory after cancellation. An out_of_stock product
// flips back to active once units return.
func (r *productRepo) ReleaseStock(ctx context.Context, tx pgx.Tx, id int64, quantity int32) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ReleaseStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int("quantity", int(quantity)),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1,
			status = CASE
				WHEN status = 'out_of_stock' AND stock_quantity + $1 > 0
				THEN 'active' ELSE status
			END,
			updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	commandTag, err := tx.Exec(ctx, query, quantity, id)
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to release stock", zap.Error(err))

		return err
	}

	if commandTag.RowsAffected() == 0 {
		mylogger.Warn(ctx, r.logger, "Product not found", zap.Int64("product_id", id))
		return ErrProductNotFound
	}

	return nil
}

// UpdateRating recomputes the aggregate from the reviews table. Called
// explicitly by the review service after every review mutation.
func (r *productRepo) UpdateRating(ctx context.Context, tx pgx.Tx, productID int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.UpdateRating")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
	)

	query := `
		UPDATE products p
		SET rating_avg = COALESCE(agg.avg_rating, 0),
			rating_count = COALESCE(agg.review_count, 0),
			updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 1) AS avg_rating, COUNT(*) AS review_count
			FROM reviews
			WHERE product_id = $1
		) agg
		WHERE p.id = $1;
	`

	commandTag, err := tx.Exec(ctx, query, productID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to recompute product rating",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("error recomputing product rating: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}
