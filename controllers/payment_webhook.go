package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

const maxWebhookBody = int64(65536)

// StripeWebhook receives Stripe deliveries. A verified event only triggers a
// confirm reconciliation; the status always comes from Stripe's API, never
// from the event body. Verified deliveries are acknowledged with 200 even when
// reconciliation fails, so Stripe does not retry events we cannot act on.
func (pc *PaymentController) StripeWebhook(c *gin.Context) {
	if pc.verifier == nil {
		apperrors.Respond(c, apperrors.BadRequest("Stripe webhooks are not enabled"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Failed to read webhook body"))
		return
	}

	event, err := pc.verifier.ConstructWebhookEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		pc.logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		apperrors.Respond(c, apperrors.BadRequest("Invalid webhook"))
		return
	}

	pc.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			pc.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
			break
		}
		pc.reconcile(c, sess.ID, "")
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			pc.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
			break
		}
		pc.reconcile(c, pi.ID, pi.Metadata["payment_id"])
	default:
		pc.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// reconcile confirms the payment stored under transactionID. Checkout
// payments are stored under the session id, so a PaymentIntent event for one
// is resolved through the payment_id metadata stamped at creation.
func (pc *PaymentController) reconcile(c *gin.Context, transactionID, paymentID string) {
	ctx := c.Request.Context()
	method := string(models.PaymentMethodStripe)

	_, err := pc.service.ConfirmPayment(ctx, method, transactionID)
	if errors.Is(err, apperrors.ErrNotFound) && paymentID != "" {
		if id, parseErr := uuid.Parse(paymentID); parseErr == nil {
			if payment, getErr := pc.service.GetPayment(ctx, id); getErr == nil && payment.TransactionID != nil {
				_, err = pc.service.ConfirmPayment(ctx, method, *payment.TransactionID)
			}
		}
	}
	if err != nil {
		pc.logger.Warn("Webhook reconciliation failed",
			zap.String("transaction_id", transactionID),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
	}
}
