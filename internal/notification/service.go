package notification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/notification/email"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	outboxUtils "github.com/sakashimaa/marketplace/pkg/outbox/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Service turns order events into customer emails. Delivery is best effort:
// a missing recipient is logged and the event is acked so the partition
// does not stall.
type Service struct {
	emailSender email.Sender
	userRepo    repository.UserRepository
	logger      *zap.Logger
	pool        *pgxpool.Pool
	tracer      trace.Tracer
}

func NewService(
	emailSender email.Sender,
	userRepo repository.UserRepository,
	logger *zap.Logger,
	pool *pgxpool.Pool,
) *Service {
	return &Service{
		emailSender: emailSender,
		userRepo:    userRepo,
		logger:      logger,
		pool:        pool,
		tracer:      otel.Tracer("notification-service"),
	}
}

func (s *Service) HandleOrderCreated(ctx context.Context, eventID int64, event domain.OrderCreatedEvent) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCreated")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", event.OrderNumber),
	)

	to, ok := s.recipient(ctx, event.CustomerID)
	if !ok {
		return nil
	}

	return outboxUtils.ProcessWithDeduplication(ctx, s.pool, s.logger, eventID, func() error {
		return s.emailSender.SendOrderConfirmation(ctx, to, event.OrderNumber, event.TotalCents)
	})
}

func (s *Service) HandleOrderStatusChanged(ctx context.Context, eventID int64, event domain.OrderStatusChangedEvent) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderStatusChanged")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", event.OrderNumber),
		attribute.String("new_status", event.NewStatus),
	)

	to, ok := s.recipient(ctx, event.CustomerID)
	if !ok {
		return nil
	}

	return outboxUtils.ProcessWithDeduplication(ctx, s.pool, s.logger, eventID, func() error {
		return s.emailSender.SendStatusUpdate(ctx, to, event.OrderNumber, event.NewStatus)
	})
}

func (s *Service) HandleOrderCancelled(ctx context.Context, eventID int64, event domain.OrderCancelledEvent) error {
	ctx, span := s.tracer.Start(ctx, "NotificationService.HandleOrderCancelled")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("order_number", event.OrderNumber),
	)

	to, ok := s.recipient(ctx, event.CustomerID)
	if !ok {
		return nil
	}

	return outboxUtils.ProcessWithDeduplication(ctx, s.pool, s.logger, eventID, func() error {
		return s.emailSender.SendCancellation(ctx, to, event.OrderNumber, event.Reason)
	})
}

func (s *Service) recipient(ctx context.Context, customerID int64) (string, bool) {
	user, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"No email on file for customer, skipping notification",
				zap.Int64("customer_id", customerID),
			)
		} else {
			mylogger.Error(
				ctx,
				s.logger,
				"Error resolving notification recipient",
				zap.Int64("customer_id", customerID),
				zap.Error(err),
			)
		}

		return "", false
	}

	return user.Email, true
}
