package services

import (
	"context"
	"errors"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var paymentIDSpace = uuid.MustParse("6f1c2a4e-8d0b-4c59-9e3a-2b7d5f10c8a1")

// paymentIDFor derives the payment id from the caller's idempotency key, so
// a retried request reuses both the local row id and the provider idempotency
// key. The key is scoped to the user. Requests without a key get a fresh id.
func paymentIDFor(req *models.CreatePaymentRequest) uuid.UUID {
	if req.IdempotencyKey == "" {
		return uuid.New()
	}
	return uuid.NewSHA1(paymentIDSpace, []byte(req.UserID.String()+":"+req.IdempotencyKey))
}

// existingPayment resolves a duplicate insert to the row an earlier attempt
// with the same key already stored. ok is false when err was not a duplicate.
func existingPayment(ctx context.Context, repo repository.PaymentRepository, req *models.CreatePaymentRequest, id uuid.UUID, err error) (*models.Payment, bool, error) {
	if !errors.Is(err, gorm.ErrDuplicatedKey) || req.IdempotencyKey == "" {
		return nil, false, nil
	}
	payment, findErr := repo.FindByID(ctx, id)
	if findErr != nil {
		return nil, true, apperrors.Internal("Failed to load payment", findErr)
	}
	if payment.OrderID != req.OrderID || !payment.Amount.Equal(req.Amount) {
		return nil, true, apperrors.BadRequest("Idempotency key was already used for a different payment")
	}
	return payment, true, nil
}

// PaymentStrategy creates payments for one payment method.
type PaymentStrategy interface {
	Method() models.PaymentMethod
	Create(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error)
}

// PaymentConfirmer is implemented by strategies whose payments settle with
// an external provider and can be reconciled on demand.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, transactionID string) (*models.Payment, error)
}

// PaymentCanceler is implemented by strategies that can cancel or refund.
type PaymentCanceler interface {
	Cancel(ctx context.Context, transactionID string) (*models.Payment, error)
}
