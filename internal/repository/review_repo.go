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

type ReviewRepository interface {
	Create(ctx context.Context, tx pgx.Tx, review *domain.Review) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Review, error)
	Delete(ctx context.Context, tx pgx.Tx, id int64) error
	ListByProduct(ctx context.Context, productID, limit, offset int64) ([]domain.Review, int64, error)
}

type reviewRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewReviewRepository(pool *pgxpool.Pool, logger *zap.Logger) ReviewRepository {
	return &reviewRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/review_repo"),
	}
}

func (r *reviewRepo) Create(ctx context.Context, tx pgx.Tx, review *domain.Review) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", review.ProductID),
		attribute.Int64("customer_id", review.CustomerID),
		attribute.Int("rating", int(review.Rating)),
	)

	query := `
		INSERT INTO reviews (product_id, customer_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(
		ctx,
		query,
		review.ProductID,
		review.CustomerID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error creating review",
			zap.Int64("product_id", review.ProductID),
			zap.Error(err),
		)

		return 0, fmt.Errorf("error creating review: %w", err)
	}

	return review.ID, nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, product_id, customer_id, rating, comment, created_at
		FROM reviews
		WHERE id = $1;
	`

	var res domain.Review
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.ProductID, &res.CustomerID, &res.Rating, &res.Comment, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting review",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting review: %w", err)
	}

	return &res, nil
}

func (r *reviewRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		DELETE FROM reviews
		WHERE id = $1;
	`

	commandTag, err := tx.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error deleting review",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return fmt.Errorf("error deleting review: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID, limit, offset int64) ([]domain.Review, int64, error) {
	ctx, span := r.tracer.Start(ctx, "ReviewRepository.ListByProduct")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	query := `
		SELECT id, product_id, customer_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;
	`

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error listing reviews",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)

		return nil, 0, fmt.Errorf("error listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.CustomerID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			span.RecordError(err)

			return nil, 0, fmt.Errorf("error scanning review: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM reviews WHERE product_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, productID).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	return reviews, totalCount, nil
}
