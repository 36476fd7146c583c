package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Vendor, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Vendor, error)
	SetStatus(ctx context.Context, id int64, status domain.VendorStatus) error
	UpdateRating(ctx context.Context, tx pgx.Tx, vendorID int64) error
}

type vendorRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewVendorRepository(pool *pgxpool.Pool, logger *zap.Logger) VendorRepository {
	return &vendorRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/vendor_repo"),
	}
}

func (r *vendorRepo) Create(ctx context.Context, vendor *domain.Vendor) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", vendor.UserID),
		attribute.String("store_name", vendor.StoreName),
	)

	query := `
		INSERT INTO vendors (user_id, store_name, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		vendor.UserID,
		vendor.StoreName,
		vendor.Description,
		vendor.Status,
	).Scan(&vendor.ID)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			return 0, ErrVendorExists
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating vendor",
			zap.Int64("user_id", vendor.UserID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating vendor: %w", err)
	}

	return vendor.ID, nil
}

func (r *vendorRepo) GetByID(ctx context.Context, id int64) (*domain.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, user_id, store_name, description, status, rating_avg, rating_count,
			created_at, updated_at
		FROM vendors
		WHERE id = $1;
	`

	var res domain.Vendor
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.UserID, &res.StoreName, &res.Description, &res.Status,
			&res.RatingAvg, &res.RatingCount, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting vendor",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting vendor: %w", err)
	}

	return &res, nil
}

func (r *vendorRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.GetByUserID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT id, user_id, store_name, description, status, rating_avg, rating_count,
			created_at, updated_at
		FROM vendors
		WHERE user_id = $1;
	`

	var res domain.Vendor
	if err := r.pool.QueryRow(ctx, query, userID).
		Scan(&res.ID, &res.UserID, &res.StoreName, &res.Description, &res.Status,
			&res.RatingAvg, &res.RatingCount, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting vendor by user",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting vendor by user: %w", err)
	}

	return &res, nil
}

func (r *vendorRepo) SetStatus(ctx context.Context, id int64, status domain.VendorStatus) error {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.SetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", string(status)),
	)

	query := `
		UPDATE vendors
		SET status = $1, updated_at = NOW()
		WHERE id = $2;
	`

	commandTag, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to set vendor status",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error setting vendor status: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrVendorNotFound
	}

	return nil
}

// UpdateRating aggregates over every review of the vendor's products.
func (r *vendorRepo) UpdateRating(ctx context.Context, tx pgx.Tx, vendorID int64) error {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.UpdateRating")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("vendor_id", vendorID),
	)

	query := `
		UPDATE vendors v
		SET rating_avg = COALESCE(agg.avg_rating, 0),
			rating_count = COALESCE(agg.review_count, 0),
			updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(r.rating)::numeric, 1) AS avg_rating, COUNT(*) AS review_count
			FROM reviews r
			JOIN products p ON p.id = r.product_id
			WHERE p.vendor_id = $1
		) agg
		WHERE v.id = $1;
	`

	commandTag, err := tx.Exec(ctx, query, vendorID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to recompute vendor rating",
			zap.Int64("vendor_id", vendorID),
			zap.Error(err),
		)

		return fmt.Errorf("error recomputing vendor rating: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrVendorNotFound
	}

	return nil
}
