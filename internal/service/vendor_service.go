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

type VendorService interface {
	Register(ctx context.Context, principal domain.Principal, storeName, description string) (*domain.Vendor, error)
	GetByID(ctx context.Context, id int64) (*domain.Vendor, error)
	SetStatus(ctx context.Context, principal domain.Principal, id int64, status domain.VendorStatus) error
}

type vendorService struct {
	vendorRepo repository.VendorRepository
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewVendorService(vendorRepo repository.VendorRepository, logger *zap.Logger) VendorService {
	return &vendorService{
		vendorRepo: vendorRepo,
		logger:     logger,
		tracer:     otel.Tracer("vendor_service"),
	}
}

// Register creates a pending vendor profile. Approval is a separate admin
// action.
func (s *vendorService) Register(ctx context.Context, principal domain.Principal, storeName, description string) (*domain.Vendor, error) {
	ctx, span := s.tracer.Start(ctx, "VendorService.Register")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", principal.UserID),
		attribute.String("store_name", storeName),
	)

	vendor := &domain.Vendor{
		UserID:      principal.UserID,
		StoreName:   storeName,
		Description: description,
		Status:      domain.VendorStatusPending,
	}

	if _, err := s.vendorRepo.Create(ctx, vendor); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Vendor registration failed",
			zap.Int64("user_id", principal.UserID),
			zap.Error(err),
		)

		return nil, err
	}

	return vendor, nil
}

func (s *vendorService) GetByID(ctx context.Context, id int64) (*domain.Vendor, error) {
	ctx, span := s.tracer.Start(ctx, "VendorService.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	return s.vendorRepo.GetByID(ctx, id)
}

func (s *vendorService) SetStatus(ctx context.Context, principal domain.Principal, id int64, status domain.VendorStatus) error {
	ctx, span := s.tracer.Start(ctx, "VendorService.SetStatus")
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

	return s.vendorRepo.SetStatus(ctx, id, status)
}
