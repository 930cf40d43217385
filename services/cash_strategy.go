package services

import (
	"context"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/repository"

	"go.uber.org/zap"
)

const cashProvider = "cash"

// CashStrategy records cash-on-delivery payments. Settlement happens offline,
// so it offers neither confirm nor cancel.
type CashStrategy struct {
	repo   repository.PaymentRepository
	logger *zap.Logger
}

func NewCashStrategy(repo repository.PaymentRepository, logger *zap.Logger) *CashStrategy {
	return &CashStrategy{repo: repo, logger: logger}
}

func (s *CashStrategy) Method() models.PaymentMethod { return models.PaymentMethodCash }

func (s *CashStrategy) Create(ctx context.Context, req *models.CreatePaymentRequest) (*models.PaymentResult, error) {
	paymentID := paymentIDFor(req)
	transactionID := "cash_" + paymentID.String()
	payment := &models.Payment{
		ID:            paymentID,
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		Method:        models.PaymentMethodCash,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        models.PaymentStatusPending,
		TransactionID: &transactionID,
		Provider:      cashProvider,
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		if existing, dup, dupErr := existingPayment(ctx, s.repo, req, paymentID, err); dup {
			if dupErr != nil {
				return nil, dupErr
			}
			return &models.PaymentResult{Payment: existing}, nil
		}
		s.logger.Error("Failed to save cash payment", zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to save payment record", err)
	}
	return &models.PaymentResult{Payment: payment}, nil
}
