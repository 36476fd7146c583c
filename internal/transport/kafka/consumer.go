package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/notification"
	"github.com/sakashimaa/marketplace/pkg/kafka"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.uber.org/zap"
)

type Consumer struct {
	service *notification.Service
	logger  *zap.Logger
}

func NewConsumer(service *notification.Service, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

func (c *Consumer) Start(ctx context.Context, brokers []string, topic string, groupID string) {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{topic},
		c.processMessage,
		c.logger,
	)

	consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
	)

	type EventWrapper struct {
		Event   string          `json:"event"`
		EventID int64           `json:"event_id"`
		Payload json.RawMessage `json:"payload"`
	}

	var wrapper EventWrapper
	if err := json.Unmarshal(msg.Value, &wrapper); err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper", zap.Error(err))
		return err
	}

	switch wrapper.Event {
	case "OrderCreated":
		var event domain.OrderCreatedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing order created event", zap.Error(err))
			return nil
		}

		if err := c.service.HandleOrderCreated(ctx, wrapper.EventID, event); err != nil {
			mylogger.Error(ctx, c.logger, "Error processing order created event", zap.Error(err))
			return err
		}
	case "OrderStatusChanged":
		var event domain.OrderStatusChangedEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing status changed event", zap.Error(err))
			return nil
		}

		if err := c.service.HandleOrderStatusChanged(ctx, wrapper.EventID, event); err != nil {
			mylogger.Error(ctx, c.logger, "Error processing status changed event", zap.Error(err))
			return err
		}
	case "OrderCancelled":
		var event domain.OrderCancelledEvent
		if err := json.Unmarshal(wrapper.Payload, &event); err != nil {
			mylogger.Error(ctx, c.logger, "Error parsing order cancelled event", zap.Error(err))
			return nil
		}

		if err := c.service.HandleOrderCancelled(ctx, wrapper.EventID, event); err != nil {
			mylogger.Error(ctx, c.logger, "Error processing order cancelled event", zap.Error(err))
			return err
		}
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event", wrapper.Event))
	}

	return nil
}
