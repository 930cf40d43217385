package controllers

import (
	"net/http"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/middleware"
	"backoffice-service/models"
	"backoffice-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentController struct {
	service  services.PaymentService
	verifier services.WebhookVerifier
	logger   *zap.Logger
}

// NewPaymentController wires the payment handlers. verifier may be nil when
// Stripe is disabled; the webhook then rejects every delivery.
func NewPaymentController(service services.PaymentService, verifier services.WebhookVerifier, logger *zap.Logger) *PaymentController {
	return &PaymentController{service: service, verifier: verifier, logger: logger}
}

// CreatePayment handles POST /payments.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.New(http.StatusUnauthorized, "Unauthorized", nil))
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	req.UserID = userID
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := pc.service.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ConfirmPayment handles POST /payments/:method/:transaction_id/confirm.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	if !pc.ownsTransaction(c) {
		return
	}
	payment, err := pc.service.ConfirmPayment(c.Request.Context(), c.Param("method"), c.Param("transaction_id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// CancelPayment handles POST /payments/:method/:transaction_id/cancel.
func (pc *PaymentController) CancelPayment(c *gin.Context) {
	if !pc.ownsTransaction(c) {
		return
	}
	payment, err := pc.service.CancelPayment(c.Request.Context(), c.Param("method"), c.Param("transaction_id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// ownsTransaction lets the caller act on :transaction_id only when the payment
// is theirs. Another user's payment gets the same 404 as an unknown one.
func (pc *PaymentController) ownsTransaction(c *gin.Context) bool {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.New(http.StatusUnauthorized, "Unauthorized", nil))
		return false
	}

	transactionID := c.Param("transaction_id")
	payment, err := pc.service.GetPaymentByTransaction(c.Request.Context(), transactionID)
	if err != nil {
		apperrors.Respond(c, err)
		return false
	}
	if payment.UserID != userID {
		pc.logger.Warn("Payment action by non-owner",
			zap.String("transaction_id", transactionID),
			zap.String("user_id", userID.String()),
		)
		apperrors.Respond(c, apperrors.NotFound("Payment with transaction ID %s not found", transactionID))
		return false
	}
	return true
}

// GetPayment handles GET /payments/:id. Another user's payment reads as 404.
func (pc *PaymentController) GetPayment(c *gin.Context) {
	id, ok := uuidParam(c, "id", "payment")
	if !ok {
		return
	}
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.New(http.StatusUnauthorized, "Unauthorized", nil))
		return
	}

	payment, err := pc.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if payment.UserID != userID {
		apperrors.Respond(c, apperrors.NotFound("Payment with ID %s not found", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// GetOrderPayments handles GET /payments/order/:order_id, newest first.
func (pc *PaymentController) GetOrderPayments(c *gin.Context) {
	orderID, ok := uuidParam(c, "order_id", "order")
	if !ok {
		return
	}
	userID, err := middleware.GetUserID(c)
	if err != nil {
		apperrors.Respond(c, apperrors.New(http.StatusUnauthorized, "Unauthorized", nil))
		return
	}

	payments, err := pc.service.ListOrderPayments(c.Request.Context(), orderID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	owned := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if p.UserID == userID {
			owned = append(owned, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"payments": owned})
}
