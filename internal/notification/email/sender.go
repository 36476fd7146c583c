package email

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"time"

	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"github.com/sakashimaa/marketplace/pkg/utils"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Sender interface {
	SendOrderConfirmation(ctx context.Context, to string, orderNumber string, totalCents int64) error
	SendStatusUpdate(ctx context.Context, to string, orderNumber string, newStatus string) error
	SendCancellation(ctx context.Context, to string, orderNumber string, reason string) error
}

type smtpSender struct {
	from     string
	password string
	host     string
	port     string
	logger   *zap.Logger
	breaker  *gobreaker.CircuitBreaker
	tracer   trace.Tracer
}

func NewSMTPSender(logger *zap.Logger) Sender {
	return &smtpSender{
		from:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		logger:   logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "smtp",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		tracer: otel.Tracer("notification/email"),
	}
}

func (s *smtpSender) SendOrderConfirmation(ctx context.Context, to string, orderNumber string, totalCents int64) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendOrderConfirmation")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.String("order_number", orderNumber),
	)

	subject := "Subject: Your order has been placed.\n"
	body := fmt.Sprintf(`
		<h1>Thank you for your order! 🎉</h1>
		<p>Order <b>%s</b> has been placed successfully.</p>
		<p>Total: <b>$%d.%02d</b></p>
		<p>We will let you know when it ships.</p>
	`, orderNumber, totalCents/100, totalCents%100)

	return s.send(ctx, to, subject, body)
}

func (s *smtpSender) SendStatusUpdate(ctx context.Context, to string, orderNumber string, newStatus string) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendStatusUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.String("order_number", orderNumber),
		attribute.String("new_status", newStatus),
	)

	subject := fmt.Sprintf("Subject: Order %s is now %s.\n", orderNumber, newStatus)
	body := fmt.Sprintf(`
		<h1>Order update</h1>
		<p>Your order <b>%s</b> is now <b>%s</b>.</p>
	`, orderNumber, newStatus)

	return s.send(ctx, to, subject, body)
}

func (s *smtpSender) SendCancellation(ctx context.Context, to string, orderNumber string, reason string) error {
	ctx, span := s.tracer.Start(ctx, "smtp.SendCancellation")
	defer span.End()

	span.SetAttributes(
		attribute.String("to.email", to),
		attribute.String("order_number", orderNumber),
	)

	if reason == "" {
		reason = "no reason provided"
	}

	subject := "Subject: Your order has been cancelled.\n"
	body := fmt.Sprintf(`
		<h1>Order cancelled</h1>
		<p>Order <b>%s</b> has been cancelled (%s).</p>
		<p>Any reserved items have been returned to stock.</p>
	`, orderNumber, reason)

	return s.send(ctx, to, subject, body)
}

func (s *smtpSender) send(ctx context.Context, to string, subject string, body string) error {
	span := trace.SpanFromContext(ctx)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(subject + mime + body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	mylogger.Info(
		ctx,
		s.logger,
		"Sending email",
		zap.String("to", to),
	)

	_, err := utils.ExecuteWithBreaker(s.breaker, func() (struct{}, error) {
		return struct{}{}, smtp.SendMail(addr, auth, s.from, []string{to}, msg)
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			s.logger,
			"Error sending email",
			zap.String("to", to),
			zap.Error(err),
		)

		return fmt.Errorf("failed to send mail: %v", err)
	}

	mylogger.Info(ctx, s.logger, "Email sent successfully", zap.String("to", to))
	return nil
}
