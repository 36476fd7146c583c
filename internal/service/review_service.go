package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReviewService interface {
	Create(ctx context.Context, principal domain.Principal, productID int64, rating int32, comment string) (*domain.Review, error)
	Delete(ctx context.Context, principal domain.Principal, reviewID int64) error
	ListByProduct(ctx context.Context, productID, limit, offset int64) ([]domain.Review, int64, error)
}

type reviewService struct {
	pool        TxBeginner
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	vendorRepo  repository.VendorRepository
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewReviewService(
	pool TxBeginner,
	reviewRepo repository.ReviewRepository,
	productRepo repository.ProductRepository,
	vendorRepo repository.VendorRepository,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		pool:        pool,
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		logger:      logger,
		tracer:      otel.Tracer("review_service"),
	}
}

// Create stores the review and recomputes both aggregates in the same
// transaction, so a rating is never visible without its effect on the
// averages.
func (s *reviewService) Create(ctx context.Context, principal domain.Principal, productID int64, rating int32, comment string) (*domain.Review, error) {
	ctx, span := s.tracer.Start(ctx, "ReviewService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("rating", int(rating)),
	)

	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	review := &domain.Review{
		ProductID:  productID,
		CustomerID: principal.UserID,
		Rating:     rating,
		Comment:    comment,
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.reviewRepo.Create(ctx, tx, review); err != nil {
			return err
		}

		return s.recompute(ctx, tx, productID, product.VendorID)
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, principal domain.Principal, reviewID int64) error {
	ctx, span := s.tracer.Start(ctx, "ReviewService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("review_id", reviewID),
	)

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}

	if !principal.IsAdmin() && review.CustomerID != principal.UserID {
		return ErrNotAuthorized
	}

	product, err := s.productRepo.GetByID(ctx, review.ProductID)
	if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
		return err
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := s.reviewRepo.Delete(ctx, tx, reviewID); err != nil {
			return err
		}

		// A review of a deleted product has no aggregates left to maintain.
		if product == nil {
			return nil
		}

		return s.recompute(ctx, tx, review.ProductID, product.VendorID)
	})
}

func (s *reviewService) ListByProduct(ctx context.Context, productID, limit, offset int64) ([]domain.Review, int64, error) {
	ctx, span := s.tracer.Start(ctx, "ReviewService.ListByProduct")
	defer span.End()

	return s.reviewRepo.ListByProduct(ctx, productID, limit, offset)
}

func (s *reviewService) recompute(ctx context.Context, tx pgx.Tx, productID, vendorID int64) error {
	if err := s.productRepo.UpdateRating(ctx, tx, productID); err != nil {
		return err
	}

	return s.vendorRepo.UpdateRating(ctx, tx, vendorID)
}

func (s *reviewService) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}
