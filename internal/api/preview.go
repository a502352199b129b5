package api

import (
	"context"
	"fmt"

	"payment-settlement-go/internal/models"
	"payment-settlement-go/internal/settlement"
	"payment-settlement-go/internal/store"
	"payment-settlement-go/internal/validate"

	"go.uber.org/zap"
)

// Preview validates p and reports the payer's balance and the fraud verdict
// the payment would get. Nothing is signed, broadcast or stored.
func (s *PaymentService) Preview(ctx context.Context, userId string, p settlement.Payment) (*models.PaymentPreview, error) {
	_, total, verr := settlement.ValidateItems(p)
	if verr != nil {
		return nil, verr
	}

	payer, err := s.wallet.Address(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve payer address: %w", err)
	}
	balance, err := s.wallet.Balance(ctx, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to get payer balance: %w", err)
	}

	preview := &models.PaymentPreview{
		Payer:        payer,
		Balance:      validate.ToDisplay(balance),
		TotalWei:     total.String(),
		Total:        validate.ToDisplay(total),
		Sufficient:   balance.Cmp(total) >= 0,
		Recipients:   len(p.Items),
		ContractAddr: s.contract,
	}

	if s.fraud != nil {
		recent, err := s.ledger.QueryTransactions(ctx, store.TransactionFilter{UserId: userId, Since: s.fraud.Window()})
		if err != nil {
			zap.L().Warn("Unable to load recent transactions for preview", zap.String("user_id", userId), zap.Error(err))
		}
		preview.Alerts = s.fraud.Assess(userId, total, recent).Alerts
	}

	return preview, nil
}
