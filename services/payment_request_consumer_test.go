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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedPoller hands each body to the handler once and keeps the errors.
type scriptedPoller struct {
	bodies  []string
	results []error
}

func (p *scriptedPoller) StartPolling(ctx context.Context, handler awspkg.MessageHandler) error {
	for _, b := range p.bodies {
		p.results = append(p.results, handler(ctx, b))
	}
	return context.Canceled
}

func newConsumer(st *countingStrategy) (*services.PaymentRequestConsumer, *countingMetrics) {
	metrics := &countingMetrics{}
	payments := services.NewPaymentService(newMemPaymentRepo(), nil, nil, zap.NewNop(), st)
	return services.NewPaymentRequestConsumer(&scriptedPoller{}, payments, metrics, zap.NewNop()), metrics
}

func requestBody(method string) string {
	return `{"order_id":"` + uuid.NewString() + `","user_id":"` + uuid.NewString() +
		`","method":"` + method + `","amount":"42.50","currency":"USD"}`
}

func TestConsumerHandle_CreatesPayment(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodCash}
	c, metrics := newConsumer(st)

	require.NoError(t, c.Handle(context.Background(), requestBody("cash")))
	assert.Equal(t, 1, st.calls)
	assert.Contains(t, metrics.names, awspkg.MetricSQSMessages)
}

func TestConsumerHandle_DefaultsToStripe(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodStripe}
	c, _ := newConsumer(st)

	require.NoError(t, c.Handle(context.Background(), requestBody("")))
	assert.Equal(t, 1, st.calls)
}

func TestConsumerHandle_DropsMalformedMessages(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodCash}
	c, _ := newConsumer(st)

	bodies := []string{
		`not json`,
		`{"order_id":"nope","user_id":"` + uuid.NewString() + `","method":"CASH","amount":"1"}`,
		`{"order_id":"` + uuid.NewString() + `","user_id":"","method":"CASH","amount":"1"}`,
	}
	for _, b := range bodies {
		assert.NoError(t, c.Handle(context.Background(), b), b)
	}
	assert.Zero(t, st.calls)
}

func TestConsumerHandle_DropsRejectedRequests(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodCash}
	c, _ := newConsumer(st)

	assert.NoError(t, c.Handle(context.Background(), requestBody("PAYPAL")))
	assert.Zero(t, st.calls)
}

func TestConsumerHandle_RetriesProviderFailures(t *testing.T) {
	st := &countingStrategy{
		method: models.PaymentMethodCash,
		err:    apperrors.ProviderError("upstream unavailable", errors.New("503")),
	}
	c, _ := newConsumer(st)

	err := c.Handle(context.Background(), requestBody("CASH"))
	assert.True(t, errors.Is(err, apperrors.ErrProviderFailure))
}

func TestConsumerStart_FeedsPollerMessagesToHandle(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodCash}
	payments := services.NewPaymentService(newMemPaymentRepo(), nil, nil, zap.NewNop(), st)
	poller := &scriptedPoller{bodies: []string{requestBody("CASH"), "garbage", requestBody("CASH")}}

	services.NewPaymentRequestConsumer(poller, payments, nil, zap.NewNop()).Start(context.Background())

	assert.Equal(t, []error{nil, nil, nil}, poller.results)
	assert.Equal(t, 2, st.calls)
}

func TestConsumerHandle_RedeliveryKeepsIdempotencyKey(t *testing.T) {
	st := &countingStrategy{method: models.PaymentMethodCash}
	c, _ := newConsumer(st)
	body := requestBody("CASH")

	require.NoError(t, c.Handle(context.Background(), body))
	require.NoError(t, c.Handle(context.Background(), body))
	require.Len(t, st.keys, 2)
	assert.NotEmpty(t, st.keys[0])
	assert.Equal(t, st.keys[0], st.keys[1])

	require.NoError(t, c.Handle(context.Background(), requestBody("CASH")))
	assert.NotEqual(t, st.keys[0], st.keys[2])

	explicit := `{"order_id":"` + uuid.NewString() + `","user_id":"` + uuid.NewString() +
		`","method":"CASH","amount":"1","idempotency_key":"ord-77-pay-1"}`
	require.NoError(t, c.Handle(context.Background(), explicit))
	assert.Equal(t, "ord-77-pay-1", st.keys[3])
}

func TestConsumerHandle_FailedInsertRedeliveryReusesStripeObject(t *testing.T) {
	repo := newMemPaymentRepo()
	repo.failNext = 1
	gw := newFakeGateway()
	payments := services.NewPaymentService(repo, nil, nil, zap.NewNop(),
		services.NewStripeStrategy(gw, repo, "", "", zap.NewNop()))
	c := services.NewPaymentRequestConsumer(&scriptedPoller{}, payments, nil, zap.NewNop())
	body := requestBody("STRIPE")

	err := c.Handle(context.Background(), body)
	require.Error(t, err, "a failed insert leaves the message for redelivery")
	firstKey := *gw.intentParams.IdempotencyKey

	require.NoError(t, c.Handle(context.Background(), body))
	assert.Equal(t, firstKey, *gw.intentParams.IdempotencyKey)
	assert.Len(t, repo.rows, 1)
}
