package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentCreated   = "payment_created"
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
	EventPaymentRefunded  = "payment_refunded"
	EventPaymentPending   = "payment_pending"
)

type PaymentEvent struct {
	Type          string          `json:"type"`
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Method        PaymentMethod   `json:"method"`
	Status        PaymentStatus   `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CheckoutURL   string          `json:"checkout_url,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// EventTypeForStatus maps a payment's local status to the event announcing it.
func EventTypeForStatus(status PaymentStatus) string {
	switch status {
	case PaymentStatusCompleted:
		return EventPaymentCompleted
	case PaymentStatusFailed:
		return EventPaymentFailed
	case PaymentStatusRefunded:
		return EventPaymentRefunded
	default:
		return EventPaymentPending
	}
}

// NewPaymentEvent snapshots a payment into a bus message.
func NewPaymentEvent(eventType string, p *Payment) PaymentEvent {
	ev := PaymentEvent{
		Type:      eventType,
		PaymentID: p.ID.String(),
		OrderID:   p.OrderID.String(),
		UserID:    p.UserID.String(),
		Method:    p.Method,
		Status:    p.Status,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Timestamp: time.Now().UTC(),
	}
	if p.TransactionID != nil {
		ev.TransactionID = *p.TransactionID
	}
	if p.CheckoutURL != nil {
		ev.CheckoutURL = *p.CheckoutURL
	}
	return ev
}

// PaymentRequestMessage is a queued payment request from the order pipeline.
type PaymentRequestMessage struct {
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	Method      string          `json:"method"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	UseCheckout bool            `json:"use_checkout"`

	// IdempotencyKey is optional; without it one is derived from the order.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}
