package service

import (
	"context"

	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type CatalogService interface {
	Create(ctx context.Context, principal domain.Principal, product *domain.Product) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error)
	Update(ctx context.Context, principal domain.Principal, id int64, input *domain.UpdateProductInput) error
	SetStatus(ctx context.Context, principal domain.Principal, id int64, status domain.ProductStatus) error
	Delete(ctx context.Context, principal domain.Principal, id int64) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	vendorRepo  repository.VendorRepository
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	vendorRepo repository.VendorRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		vendorRepo:  vendorRepo,
		logger:      logger,
		tracer:      otel.Tracer("catalog_service"),
	}
}

func (s *catalogService) Create(ctx context.Context, principal domain.Principal, product *domain.Product) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("name", product.Name),
	)

	vendor, err := s.vendorRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return 0, err
	}

	if vendor.Status != domain.VendorStatusApproved {
		mylogger.Warn(
			ctx,
			s.logger,
			"Product create rejected, vendor not approved",
			zap.Int64("vendor_id", vendor.ID),
			zap.String("status", string(vendor.Status)),
		)

		return 0, ErrVendorNotApproved
	}

	product.VendorID = vendor.ID
	if product.Status == "" {
		product.Status = domain.ProductStatusDraft
	}

	return s.productRepo.Create(ctx, product)
}

func (s *catalogService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.FindByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	return s.productRepo.GetByID(ctx, id)
}

func (s *catalogService) List(ctx context.Context, limit, offset int64, search string, vendorID int64) ([]domain.Product, int64, error) {
	ctx, span := s.tracer.Start(ctx, "CatalogService.List")
	defer span.End()

	return s.productRepo.List(ctx, limit, offset, search, vendorID)
}

// owns reports whether the principal may manage the product: its vendor, or
// an admin.
func (s *catalogService) owns(ctx context.Context, principal domain.Principal, productID int64) error {
	if principal.IsAdmin() {
		return nil
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	vendor, err := s.vendorRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return ErrNotAuthorized
	}

	if vendor.ID != product.VendorID {
		return ErrNotAuthorized
	}

	return nil
}

func (s *catalogService) Update(ctx context.Context, principal domain.Principal, id int64, input *domain.UpdateProductInput) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	if err := s.owns(ctx, principal, id); err != nil {
		return err
	}

	return s.productRepo.Update(ctx, id, input)
}

// SetStatus is the moderation entry point, admin only.
func (s *catalogService) SetStatus(ctx context.Context, principal domain.Principal, id int64, status domain.ProductStatus) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.SetStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.String("status", string(status)),
	)

	if !principal.IsAdmin() {
		return ErrNotAuthorized
	}

	if !status.Valid() {
		return ErrInvalidStatus
	}

	return s.productRepo.SetStatus(ctx, id, status)
}

func (s *catalogService) Delete(ctx context.Context, principal domain.Principal, id int64) error {
	ctx, span := s.tracer.Start(ctx, "CatalogService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	if err := s.owns(ctx, principal, id); err != nil {
		return err
	}

	return s.productRepo.SoftDelete(ctx, id)
}
