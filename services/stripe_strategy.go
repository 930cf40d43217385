package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stripeProvider = "stripe"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to the provider's integer minor
// units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// StripeStrategy implements card payments through Stripe Checkout Sessions
// (hosted redirect) or PaymentIntents (client-side confirmation).
type StripeStrategy struct {
	gateway    StripeGateway
	repo       repository.PaymentRepository
	successURL string
	cancelURL  string
	logger     *zap.Logger
}

func NewStripeStrategy(gateway StripeGateway, repo repository.PaymentRepository, successURL, cancelURL string, logger *zap.Logger) *StripeStrategy {
	return &StripeStrategy{
		gateway:    gateway,
		repo:       repo,
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}
}

func (s *StripeStrategy) Method() models.PaymentMethod { return models.PaymentMethodStripe }

// Create calls Stripe first and then records the local PENDING row. The local
// payment id doubles as the Stripe idempotency key and is derived from the
// request's idempotency key, so a retry after a failed insert gets the same
// provider object back instead of creating a second one.
func (s *StripeStrategy) Create(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error) {
	paymentID := paymentIDFor(req)
	minor := ToMinorUnits(req.Amount)
	if minor <= 0 {
		return nil, apperrors.BadRequest("Amount is below the smallest chargeable unit")
	}

	metadata := map[string]string{
		"order_id":   req.OrderID.String(),
		"user_id":    req.UserID.String(),
		"payment_id": paymentID.String(),
	}

	var (
		transactionID string
		checkoutURL   string
		clientSecret  string
		raw           interface{}
	)

	if req.UseCheckout {
		sess, err := s.gateway.NewCheckoutSession(ctx, s.checkoutParams(req, minor, paymentID, metadata))
		if err != nil {
			s.logger.Error("Stripe checkout session creation failed", zap.String("order_id", req.OrderID.String()), zap.Error(err))
			return nil, apperrors.ProviderError("Failed to create Stripe checkout session", err)
		}
		transactionID, checkoutURL, raw = sess.ID, sess.URL, sess
	} else {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(minor),
			Currency: stripe.String(req.Currency),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
		}
		if req.Description != "" {
			params.Description = stripe.String(req.Description)
		}
		for k, v := range metadata {
			params.AddMetadata(k, v)
		}
		params.SetIdempotencyKey(paymentID.String())

		pi, err := s.gateway.NewPaymentIntent(ctx, params)
		if err != nil {
			s.logger.Error("Stripe payment intent creation failed", zap.String("order_id", req.OrderID.String()), zap.Error(err))
			return nil, apperrors.ProviderError("Failed to create Stripe payment intent", err)
		}
		transactionID, clientSecret, raw = pi.ID, pi.ClientSecret, pi
	}

	payment := &models.Payment{
		ID:            paymentID,
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		Method:        models.PaymentMethodStripe,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        models.PaymentStatusPending,
		TransactionID: &transactionID,
		Provider:      stripeProvider,
		RawResponse:   snapshot(raw),
	}
	if checkoutURL != "" {
		payment.CheckoutURL = &checkoutURL
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		if existing, dup, dupErr := existingPayment(ctx, s.repo, req, paymentID, err); dup {
			if dupErr != nil {
				return nil, dupErr
			}
			s.logger.Info("Replayed Stripe payment create", zap.String("payment_id", paymentID.String()))
			return &models.PaymentResult{Payment: existing, CheckoutURL: checkoutURL, ClientSecret: clientSecret}, nil
		}
		s.logger.Error("Failed to save Stripe payment",
			zap.String("payment_id", paymentID.String()),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
		return nil, apperrors.Internal("Failed to save payment record", err)
	}

	return &models.PaymentResult{Payment: payment, CheckoutURL: checkoutURL, ClientSecret: clientSecret}, nil
}

func (s *StripeStrategy) checkoutParams(req *models.CreatePaymentRequest, minor int64, paymentID uuid.UUID, metadata map[string]string) *stripe.CheckoutSessionParams {
	name := req.Description
	if name == "" {
		name = "Order " + req.OrderID.String()
	}
	successURL := firstNonEmpty(req.SuccessURL, s.successURL)
	cancelURL := firstNonEmpty(req.CancelURL, s.cancelURL)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
				UnitAmount: stripe.Int64(minor),
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if successURL != "" {
		params.SuccessURL = stripe.String(successURL)
	}
	if cancelURL != "" {
		params.CancelURL = stripe.String(cancelURL)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(paymentID.String())
	return params
}

// Confirm asks Stripe for the authoritative state of transactionID, first as
// a PaymentIntent and then as a Checkout Session, and stores the mapped status
// together with the raw provider object. REFUNDED is terminal: a refunded
// intent still reports succeeded, so it is never reconciled again.
func (s *StripeStrategy) Confirm(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment, err := s.findPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusRefunded {
		s.logger.Debug("Skipping confirm of refunded payment", zap.String("transaction_id", transactionID))
		return payment, nil
	}

	var raw interface{}
	pi, piErr := s.gateway.GetPaymentIntent(ctx, transactionID)
	if piErr == nil {
		payment.Status = statusFromIntent(pi.Status)
		raw = pi
	} else {
		sess, sessErr := s.gateway.GetCheckoutSession(ctx, transactionID)
		if sessErr != nil {
			s.logger.Warn("Stripe object not resolvable",
				zap.String("transaction_id", transactionID),
				zap.NamedError("payment_intent_error", piErr),
				zap.NamedError("checkout_session_error", sessErr),
			)
			return nil, apperrors.ProviderError("Unable to retrieve Stripe payment "+transactionID, sessErr)
		}
		payment.Status = statusFromSession(sess)
		raw = sess
	}

	return s.save(ctx, payment, raw)
}

// Cancel voids a payment that has not settled and refunds one that has.
// Cancelling a refunded payment is a no-op.
func (s *StripeStrategy) Cancel(ctx context.Context, transactionID string) (*models.Payment, error) {
	payment, err := s.findPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentStatusRefunded {
		return payment, nil
	}

	pi, piErr := s.gateway.GetPaymentIntent(ctx, transactionID)
	if piErr != nil {
		sess, sessErr := s.gateway.GetCheckoutSession(ctx, transactionID)
		if sessErr != nil {
			s.logger.Warn("Stripe object not resolvable for cancel",
				zap.String("transaction_id", transactionID),
				zap.NamedError("payment_intent_error", piErr),
				zap.NamedError("checkout_session_error", sessErr),
			)
			return nil, apperrors.ProviderError("Unable to cancel Stripe payment "+transactionID, sessErr)
		}
		if sess.PaymentIntent == nil {
			return s.expireSession(ctx, payment, sess)
		}
		pi = sess.PaymentIntent
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		refund, err := s.gateway.RefundPaymentIntent(ctx, pi.ID)
		if err != nil {
			return nil, apperrors.ProviderError("Failed to refund Stripe payment "+pi.ID, err)
		}
		payment.Status = models.PaymentStatusRefunded
		return s.save(ctx, payment, refund)
	case stripe.PaymentIntentStatusCanceled:
		payment.Status = models.PaymentStatusFailed
		return s.save(ctx, payment, pi)
	default:
		canceled, err := s.gateway.CancelPaymentIntent(ctx, pi.ID)
		if err != nil {
			return nil, apperrors.ProviderError("Failed to cancel Stripe payment "+pi.ID, err)
		}
		payment.Status = models.PaymentStatusFailed
		return s.save(ctx, payment, canceled)
	}
}

// expireSession handles a session that never produced a PaymentIntent: an
// open one is expired at Stripe, and either way nothing was charged.
func (s *StripeStrategy) expireSession(ctx context.Context, payment *models.Payment, sess *stripe.CheckoutSession) (*models.Payment, error) {
	raw := sess
	if sess.Status == stripe.CheckoutSessionStatusOpen {
		expired, err := s.gateway.ExpireCheckoutSession(ctx, sess.ID)
		if err != nil {
			return nil, apperrors.ProviderError("Failed to expire Stripe checkout session "+sess.ID, err)
		}
		raw = expired
	}
	payment.Status = models.PaymentStatusFailed
	return s.save(ctx, payment, raw)
}

func (s *StripeStrategy) findPayment(ctx context.Context, transactionID string) (*models.Payment, error) {
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

func (s *StripeStrategy) save(ctx context.Context, payment *models.Payment, raw interface{}) (*models.Payment, error) {
	payment.RawResponse = snapshot(raw)
	if err := s.repo.Update(ctx, payment); err != nil {
		s.logger.Error("Failed to persist reconciled payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
			zap.Error(err),
		)
		return nil, apperrors.Internal("Failed to update payment record", err)
	}
	return payment, nil
}

func statusFromIntent(status stripe.PaymentIntentStatus) models.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentStatusCompleted
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		return models.PaymentStatusFailed
	default:
		return models.PaymentStatusPending
	}
}

func statusFromSession(sess *stripe.CheckoutSession) models.PaymentStatus {
	if sess.Status == stripe.CheckoutSessionStatusComplete {
		return models.PaymentStatusCompleted
	}
	if sess.PaymentIntent != nil {
		return statusFromIntent(sess.PaymentIntent.Status)
	}
	if sess.Status == stripe.CheckoutSessionStatusExpired {
		return models.PaymentStatusFailed
	}
	return models.PaymentStatusPending
}

// snapshot serialises a provider object for the audit column.
func snapshot(v interface{}) *string {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
