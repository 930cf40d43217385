package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	awspkg "backoffice-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessagePoller is the queue side of the consumer (an SQS long-poll loop).
type MessagePoller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// PaymentRequestConsumer turns queued payment requests from the order
// pipeline into CreatePayment calls.
type PaymentRequestConsumer struct {
	poller   MessagePoller
	payments PaymentService
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewPaymentRequestConsumer(poller MessagePoller, payments PaymentService, metrics MetricsRecorder, logger *zap.Logger) *PaymentRequestConsumer {
	return &PaymentRequestConsumer{poller: poller, payments: payments, metrics: metrics, logger: logger}
}

// Start blocks until ctx is cancelled.
func (c *PaymentRequestConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting PaymentRequestConsumer (SQS)")
	if err := c.poller.StartPolling(ctx, c.Handle); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("SQS consumer error", zap.Error(err))
	}
}

// Handle processes one message body. Returning an error leaves the message
// on the queue for redelivery, so only transient failures do that; malformed
// or rejected requests are logged and dropped.
func (c *PaymentRequestConsumer) Handle(ctx context.Context, body string) error {
	var msg models.PaymentRequestMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		c.logger.Warn("Invalid payment request JSON, dropping", zap.Error(err))
		return nil
	}

	req, err := toCreateRequest(msg)
	if err != nil {
		c.logger.Warn("Invalid payment request, dropping", zap.String("order_id", msg.OrderID), zap.Error(err))
		return nil
	}

	result, err := c.payments.CreatePayment(ctx, req)
	if err != nil {
		if apperrors.StatusOf(err) < http.StatusInternalServerError {
			c.logger.Warn("Payment request rejected, dropping", zap.String("order_id", msg.OrderID), zap.Error(err))
			return nil
		}
		return err
	}

	if c.metrics != nil {
		_ = c.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"Queue": "payment-requests"})
	}
	c.logger.Info("Payment request processed",
		zap.String("order_id", msg.OrderID),
		zap.String("payment_id", result.Payment.ID.String()),
	)
	return nil
}

func toCreateRequest(msg models.PaymentRequestMessage) (*models.CreatePaymentRequest, error) {
	orderID, err := uuid.Parse(msg.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order_id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}
	method := msg.Method
	if method == "" {
		method = string(models.PaymentMethodStripe)
	}
	key := msg.IdempotencyKey
	if key == "" {
		key = requestKey(msg, method)
	}
	return &models.CreatePaymentRequest{
		OrderID:        orderID,
		UserID:         userID,
		Method:         method,
		Amount:         msg.Amount,
		Currency:       msg.Currency,
		UseCheckout:    msg.UseCheckout,
		IdempotencyKey: key,
	}, nil
}

// requestKey identifies a queued request by its content, so a redelivered
// message maps to the payment its first delivery created.
func requestKey(msg models.PaymentRequestMessage, method string) string {
	return fmt.Sprintf("payment-request:%s:%s:%s:%s:%t",
		msg.OrderID,
		strings.ToUpper(method),
		msg.Amount.String(),
		strings.ToLower(msg.Currency),
		msg.UseCheckout,
	)
}
