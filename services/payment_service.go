package services

import (
	"context"
	"errors"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	awspkg "backoffice-service/pkg/aws"
	"backoffice-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "usd"

// PaymentService routes payment operations to the strategy registered for
// the payment method.
type PaymentService interface {
	CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error)
	ConfirmPayment(ctx context.Context, method, transactionID string) (*models.Payment, error)
	CancelPayment(ctx context.Context, method, transactionID string) (*models.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error)
	ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
}

type paymentServiceImpl struct {
	strategies map[models.PaymentMethod]PaymentStrategy
	repo       repository.PaymentRepository
	publisher  EventPublisher
	metrics    MetricsRecorder
	logger     *zap.Logger
}

// NewPaymentService indexes strategies by their declared method. A later
// strategy for the same method replaces an earlier one. publisher and
// metrics may be nil.
func NewPaymentService(
	repo repository.PaymentRepository,
	publisher EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
	strategies ...PaymentStrategy,
) PaymentService {
	byMethod := make(map[models.PaymentMethod]PaymentStrategy, len(strategies))
	for _, st := range strategies {
		byMethod[st.Method()] = st
	}
	return &paymentServiceImpl{
		strategies: byMethod,
		repo:       repo,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

func (s *paymentServiceImpl) strategyFor(method string) (PaymentStrategy, error) {
	m, err := models.ParsePaymentMethod(method)
	if err != nil {
		return nil, apperrors.BadRequest("Unsupported payment method: %s", method)
	}
	st, ok := s.strategies[m]
	if !ok {
		return nil, apperrors.BadRequest("Payment method %s is not enabled", m)
	}
	return st, nil
}

func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error) {
	st, err := s.strategyFor(req.Method)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.BadRequest("Amount must be greater than zero")
	}
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}

	result, err := st.Create(ctx, req)
	if err != nil {
		s.logger.Warn("Payment creation failed",
			zap.String("method", string(st.Method())),
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err),
		)
		if errors.Is(err, apperrors.ErrProviderFailure) {
			s.count(ctx, awspkg.MetricProviderErrors, st.Method())
		}
		return nil, err
	}

	s.logger.Info("Payment created",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("order_id", result.Payment.OrderID.String()),
		zap.String("method", string(st.Method())),
	)
	s.count(ctx, awspkg.MetricPaymentCreated, st.Method())
	s.publish(ctx, models.EventPaymentCreated, result.Payment)
	return result, nil
}

func (s *paymentServiceImpl) ConfirmPayment(ctx context.Context, method, transactionID string) (*models.Payment, error) {
	st, err := s.strategyFor(method)
	if err != nil {
		return nil, err
	}
	confirmer, ok := st.(PaymentConfirmer)
	if !ok {
		return nil, apperrors.BadRequest("Payment method %s does not support confirmation", st.Method())
	}

	prior := s.currentStatus(ctx, transactionID)
	payment, err := confirmer.Confirm(ctx, transactionID)
	if err != nil {
		s.logger.Warn("Payment confirmation failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}
	s.recordOutcome(ctx, prior, payment)
	return payment, nil
}

func (s *paymentServiceImpl) CancelPayment(ctx context.Context, method, transactionID string) (*models.Payment, error) {
	st, err := s.strategyFor(method)
	if err != nil {
		return nil, err
	}
	canceler, ok := st.(PaymentCanceler)
	if !ok {
		return nil, apperrors.BadRequest("Payment method %s does not support cancellation", st.Method())
	}

	prior := s.currentStatus(ctx, transactionID)
	payment, err := canceler.Cancel(ctx, transactionID)
	if err != nil {
		s.logger.Warn("Payment cancellation failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}
	s.recordOutcome(ctx, prior, payment)
	return payment, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Payment with ID %s not found", id)
		}
		return nil, apperrors.Internal("Failed to load payment", err)
	}
	return payment, nil
}

func (s *paymentServiceImpl) GetPaymentByTransaction(ctx context.Context, transactionID string) (*models.Payment, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, apperrors.BadRequest("Transaction ID is required")
	}
	payment, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Payment with transaction ID %s not found", transactionID)
		}
		return nil, apperrors.Internal("Failed to load payment", err)
	}
	return payment, nil
}

func (s *paymentServiceImpl) ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	payments, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list payments", err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// currentStatus is the stored status before a reconciliation, or "" when it
// cannot be read.
func (s *paymentServiceImpl) currentStatus(ctx context.Context, transactionID string) models.PaymentStatus {
	payment, err := s.repo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return ""
	}
	return payment.Status
}

// recordOutcome counts and publishes a status transition. Reconciling to the
// status already stored (repeat webhooks, repeat confirms) emits nothing.
func (s *paymentServiceImpl) recordOutcome(ctx context.Context, prior models.PaymentStatus, payment *models.Payment) {
	if payment.Status == prior {
		s.logger.Debug("Payment status unchanged",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return
	}
	s.logger.Info("Payment reconciled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("from", string(prior)),
		zap.String("status", string(payment.Status)),
	)

	switch payment.Status {
	case models.PaymentStatusCompleted:
		s.count(ctx, awspkg.MetricPaymentSucceeded, payment.Method)
	case models.PaymentStatusFailed:
		s.count(ctx, awspkg.MetricPaymentFailed, payment.Method)
	case models.PaymentStatusRefunded:
		s.count(ctx, awspkg.MetricPaymentRefunded, payment.Method)
	}
	s.publish(ctx, models.EventTypeForStatus(payment.Status), payment)
}

// publish never fails the caller; the payment row is already the source of truth.
func (s *paymentServiceImpl) publish(ctx context.Context, eventType string, payment *models.Payment) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPaymentEvent(ctx, models.NewPaymentEvent(eventType, payment)); err != nil {
		s.logger.Warn("Failed to publish payment event",
			zap.String("type", eventType),
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *paymentServiceImpl) count(ctx context.Context, metric string, method models.PaymentMethod) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Method": string(method)}); err != nil {
		s.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}
