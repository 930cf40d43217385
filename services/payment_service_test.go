package services_test

import (
	"context"
	"errors"
	"testing"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	awspkg "backoffice-service/pkg/aws"
	"backoffice-service/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingStrategy records every call so tests can assert it was never reached.
type countingStrategy struct {
	method models.PaymentMethod
	calls  int
	keys   []string
	err    error
}

func (s *countingStrategy) Method() models.PaymentMethod { return s.method }

func (s *countingStrategy) Create(_ context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error) {
	s.calls++
	s.keys = append(s.keys, req.IdempotencyKey)
	if s.err != nil {
		return nil, s.err
	}
	return &models.PaymentResult{Payment: &models.Payment{
		ID: uuid.New(), OrderID: req.OrderID, UserID: req.UserID,
		Method: s.method, Amount: req.Amount, Currency: req.Currency,
		Status: models.PaymentStatusPending,
	}}, nil
}

type countingMetrics struct{ names []string }

func (m *countingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.names = append(m.names, name)
	return nil
}

func paymentRequest(method string) *models.CreatePaymentRequest {
	return &models.CreatePaymentRequest{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Method:  method,
		Amount:  decimal.RequireFromString("25.00"),
	}
}

func TestCreatePayment_UnregisteredMethodNeverReachesStrategy(t *testing.T) {
	cash := &countingStrategy{method: models.PaymentMethodCash}
	svc := services.NewPaymentService(newMemPaymentRepo(), nil, nil, zap.NewNop(), cash)

	for _, method := range []string{"STRIPE", "paypal", "", "bitcoin"} {
		_, err := svc.CreatePayment(context.Background(), paymentRequest(method))
		assert.True(t, errors.Is(err, apperrors.ErrBadRequest), "method %q", method)
	}
	assert.Zero(t, cash.calls)
}

func TestCreatePayment_DispatchesByMethodCaseInsensitively(t *testing.T) {
	cash := &countingStrategy{method: models.PaymentMethodCash}
	stripeSt := &countingStrategy{method: models.PaymentMethodStripe}
	pub := &recordingPublisher{}
	metrics := &countingMetrics{}
	svc := services.NewPaymentService(newMemPaymentRepo(), pub, metrics, zap.NewNop(), cash, stripeSt)

	res, err := svc.CreatePayment(context.Background(), paymentRequest("cash"))
	require.NoError(t, err)

	assert.Equal(t, 1, cash.calls)
	assert.Zero(t, stripeSt.calls)
	assert.Equal(t, "usd", res.Payment.Currency)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventPaymentCreated, pub.events[0].Type)
	assert.Equal(t, res.Payment.ID.String(), pub.events[0].PaymentID)
	assert.Contains(t, metrics.names, awspkg.MetricPaymentCreated)
}

func TestCreatePayment_RejectsNonPositiveAmount(t *testing.T) {
	cash := &countingStrategy{method: models.PaymentMethodCash}
	svc := services.NewPaymentService(newMemPaymentRepo(), nil, nil, zap.NewNop(), cash)

	req := paymentRequest("CASH")
	req.Amount = decimal.Zero
	_, err := svc.CreatePayment(context.Background(), req)
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
	assert.Zero(t, cash.calls)
}

func TestCreatePayment_PublishFailureDoesNotFailRequest(t *testing.T) {
	cash := &countingStrategy{method: models.PaymentMethodCash}
	pub := &recordingPublisher{err: errors.New("sns down")}
	svc := services.NewPaymentService(newMemPaymentRepo(), pub, nil, zap.NewNop(), cash)

	_, err := svc.CreatePayment(context.Background(), paymentRequest("CASH"))
	assert.NoError(t, err)
}

func TestConfirmAndCancel_UnsupportedCapability(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := services.NewPaymentService(repo, nil, nil, zap.NewNop(), services.NewCashStrategy(repo, zap.NewNop()))

	_, err := svc.ConfirmPayment(context.Background(), "CASH", "cash_123")
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "confirmation")

	_, err = svc.CancelPayment(context.Background(), "CASH", "cash_123")
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
	assert.Contains(t, err.Error(), "cancellation")
}

func TestConfirmPayment_PublishesOutcome(t *testing.T) {
	repo := newMemPaymentRepo()
	gw := newFakeGateway()
	repo.seed(models.PaymentMethodStripe, "pi_ok")
	gw.intents["pi_ok"] = stripeIntent("pi_ok", "succeeded")

	pub := &recordingPublisher{}
	svc := services.NewPaymentService(repo, pub, nil, zap.NewNop(),
		services.NewStripeStrategy(gw, repo, "", "", zap.NewNop()))

	p, err := svc.ConfirmPayment(context.Background(), "stripe", "pi_ok")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventPaymentCompleted, pub.events[0].Type)
}

func TestCashStrategy_CreatesPendingPayment(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := services.NewPaymentService(repo, nil, nil, zap.NewNop(), services.NewCashStrategy(repo, zap.NewNop()))

	res, err := svc.CreatePayment(context.Background(), paymentRequest("CASH"))
	require.NoError(t, err)

	p := res.Payment
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.Equal(t, "cash", p.Provider)
	require.NotNil(t, p.TransactionID)
	assert.Regexp(t, `^cash_[0-9a-f-]{36}$`, *p.TransactionID)
	assert.Empty(t, res.CheckoutURL)
	assert.Empty(t, res.ClientSecret)

	stored, err := svc.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.OrderID, stored.OrderID)

	list, err := svc.ListOrderPayments(context.Background(), p.OrderID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetPayment_NotFound(t *testing.T) {
	svc := services.NewPaymentService(newMemPaymentRepo(), nil, nil, zap.NewNop())
	_, err := svc.GetPayment(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestConfirmAfterRefund_PublishesNoCompletion(t *testing.T) {
	repo := newMemPaymentRepo()
	gw := newFakeGateway()
	repo.seed(models.PaymentMethodStripe, "pi_paid")
	gw.intents["pi_paid"] = stripeIntent("pi_paid", "succeeded")

	pub := &recordingPublisher{}
	svc := services.NewPaymentService(repo, pub, nil, zap.NewNop(),
		services.NewStripeStrategy(gw, repo, "", "", zap.NewNop()))
	ctx := context.Background()

	p, err := svc.CancelPayment(ctx, "stripe", "pi_paid")
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusRefunded, p.Status)

	p, err = svc.ConfirmPayment(ctx, "stripe", "pi_paid")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, p.Status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventPaymentRefunded, pub.events[0].Type)
}

func TestConfirmPayment_UnchangedStatusIsNotRepublished(t *testing.T) {
	repo := newMemPaymentRepo()
	gw := newFakeGateway()
	repo.seed(models.PaymentMethodStripe, "pi_ok")
	gw.intents["pi_ok"] = stripeIntent("pi_ok", "succeeded")

	pub := &recordingPublisher{}
	metrics := &countingMetrics{}
	svc := services.NewPaymentService(repo, pub, metrics, zap.NewNop(),
		services.NewStripeStrategy(gw, repo, "", "", zap.NewNop()))

	for i := 0; i < 3; i++ {
		_, err := svc.ConfirmPayment(context.Background(), "stripe", "pi_ok")
		require.NoError(t, err)
	}
	assert.Len(t, pub.events, 1)
	assert.Equal(t, []string{awspkg.MetricPaymentSucceeded}, metrics.names)
}

func TestGetPaymentByTransaction(t *testing.T) {
	repo := newMemPaymentRepo()
	seeded := repo.seed(models.PaymentMethodStripe, "pi_1")
	svc := services.NewPaymentService(repo, nil, nil, zap.NewNop())

	p, err := svc.GetPaymentByTransaction(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, p.ID)

	_, err = svc.GetPaymentByTransaction(context.Background(), "pi_missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = svc.GetPaymentByTransaction(context.Background(), " ")
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
}

func TestCashStrategy_SameKeyResolvesToOnePayment(t *testing.T) {
	repo := newMemPaymentRepo()
	svc := services.NewPaymentService(repo, nil, nil, zap.NewNop(), services.NewCashStrategy(repo, zap.NewNop()))
	req := paymentRequest("CASH")
	req.IdempotencyKey = "order-9"

	first, err := svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	again := *req
	second, err := svc.CreatePayment(context.Background(), &again)
	require.NoError(t, err)

	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, *first.Payment.TransactionID, *second.Payment.TransactionID)
	assert.Len(t, repo.rows, 1)
}
