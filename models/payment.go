package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of payment methods the service dispatches on.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "STRIPE"
	PaymentMethodCash   PaymentMethod = "CASH"
)

// ParsePaymentMethod accepts any casing ("stripe", "Stripe", "STRIPE").
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentMethodStripe, PaymentMethodCash:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported payment method %q", s)
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Payment is one payment attempt. Rows are never deleted.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(10);not null" json:"currency"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID *string         `gorm:"type:varchar(255);uniqueIndex" json:"transaction_id,omitempty"`
	Provider      string          `gorm:"type:varchar(32);not null" json:"provider"`
	CheckoutURL   *string         `gorm:"type:varchar(1024)" json:"checkout_url,omitempty"`
	RawResponse   *string         `gorm:"type:jsonb" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreatePaymentRequest is the payload for POST /payments and for queued
// payment requests. UserID is filled from X-User-ID on the HTTP path.
// IdempotencyKey comes from the Idempotency-Key header or the queued message;
// retries that carry the same key resolve to the same payment.
type CreatePaymentRequest struct {
	OrderID     uuid.UUID       `json:"order_id" binding:"required"`
	UserID      uuid.UUID       `json:"user_id"`
	Method      string          `json:"method" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Description string          `json:"description,omitempty" binding:"max=500"`
	UseCheckout bool            `json:"use_checkout"`
	SuccessURL  string          `json:"success_url,omitempty" binding:"omitempty,url"`
	CancelURL   string          `json:"cancel_url,omitempty" binding:"omitempty,url"`

	IdempotencyKey string `json:"-"`
}

// PaymentResult is what a strategy returns from create: the stored row plus
// whatever the client needs to finish the payment.
type PaymentResult struct {
	Payment      *Payment `json:"payment"`
	CheckoutURL  string   `json:"checkout_url,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
}
