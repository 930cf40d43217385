package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeGateway is every Stripe call the payment subsystem makes.
type StripeGateway interface {
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	// GetCheckoutSession expands the session's payment_intent.
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	RefundPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.Refund, error)
}

// WebhookVerifier checks the Stripe-Signature header of a webhook delivery.
type WebhookVerifier interface {
	ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeService is the stripe-go backed StripeGateway. It owns its own
// client so the process-wide stripe.Key is never touched.
type StripeService struct {
	api        *client.API
	webhookKey string
}

func NewStripeService(secretKey, webhookKey string) *StripeService {
	return &StripeService{api: client.New(secretKey, nil), webhookKey: webhookKey}
}

func (s *StripeService) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return s.api.CheckoutSessions.New(params)
}

func (s *StripeService) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	return s.api.CheckoutSessions.Get(id, params)
}

func (s *StripeService) ExpireCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	return s.api.CheckoutSessions.Expire(id, params)
}

func (s *StripeService) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return s.api.PaymentIntents.New(params)
}

func (s *StripeService) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return s.api.PaymentIntents.Get(id, params)
}

func (s *StripeService) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	return s.api.PaymentIntents.Cancel(id, params)
}

func (s *StripeService) RefundPaymentIntent(ctx context.Context, paymentIntentID string) (*stripe.Refund, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.Context = ctx
	params.SetIdempotencyKey("refund_" + paymentIntentID)
	return s.api.Refunds.New(params)
}

// ConstructWebhookEvent verifies the signature and decodes the event. API
// version mismatches are tolerated; only the event id and object id are read.
func (s *StripeService) ConstructWebhookEvent(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookKey == "" {
		return stripe.Event{}, fmt.Errorf("stripe webhook secret not configured")
	}
	return webhook.ConstructEventWithOptions(payload, signature, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
